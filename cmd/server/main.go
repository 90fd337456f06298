package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"ledgerflow/internal/blob"
	"ledgerflow/internal/config"
	"ledgerflow/internal/export"
	"ledgerflow/internal/header"
	"ledgerflow/internal/ingest"
	"ledgerflow/internal/logging"
	"ledgerflow/internal/sink"
	"ledgerflow/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"storage_backend", cfg.Storage.Backend,
		"ingest_max_concurrent", cfg.Ingest.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	store, err := buildStore(cfg)
	if err != nil {
		slog.Error("failed to initialize blob storage", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	sinks, pool, err := buildSinks(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize persistence", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	cache := header.NewCache(cfg.Ingest.HeaderCacheTTL)
	headers := header.NewExtractor(store, cache, cfg.Ingest.ScratchDir)

	processor := ingest.NewProcessor(store, headers, ingest.Config{
		CSVBatchSize:         cfg.Ingest.CSVBatchSize,
		WorkbookBatchSize:    cfg.Ingest.WorkbookBatchSize,
		ConstrainedBatchSize: cfg.Ingest.ConstrainedBatchSize,
		SizeThreshold:        cfg.Ingest.SizeThreshold,
		ScratchDir:           cfg.Ingest.ScratchDir,
	})
	limiter := ingest.NewLimiter(cfg.Ingest.MaxConcurrent, cfg.Ingest.MaxWaitTime)
	service := ingest.NewService(processor, limiter, cfg.Ingest.JobTimeout, cfg.Ingest.JobRetention)

	opts := web.Options{
		Store:          store,
		Location:       cfg.Storage.Bucket,
		Headers:        headers,
		Ingest:         service,
		Archiver:       export.NewArchiver(cfg.Export.ScratchDir),
		Sinks:          sinks,
		TrustedProxies: cfg.Security.TrustedProxies,
	}
	if cfg.Rate.Enabled {
		opts.RatePerIP = cfg.Rate.RequestsPerSecond
		opts.RateBurst = cfg.Rate.Burst
	}
	server := web.NewServer(opts)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.ActiveCount(); active > 0 {
			slog.Info("waiting for ingestions to complete", "active", active)
			if err := service.Drain(shutdownCtx); err != nil {
				slog.Warn("ingestions did not complete in time", "error", err)
			} else {
				slog.Info("all ingestions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// buildStore selects the blob backend from config.
func buildStore(cfg *config.Config) (blob.Store, error) {
	if strings.EqualFold(cfg.Storage.Backend, "memory") {
		slog.Warn("using in-memory blob storage, uploads will not survive restarts")
		return blob.NewMemStore(), nil
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Storage.Region)
	if cfg.Storage.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Storage.Endpoint)
	}
	if cfg.Storage.ForcePathStyle {
		awsCfg = awsCfg.WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}
	return blob.NewS3Store(sess), nil
}

// buildSinks wires the persistence factory. Without a database URL the
// server runs in development mode with in-memory sinks.
func buildSinks(ctx context.Context, cfg *config.Config) (web.SinkFactory, *pgxpool.Pool, error) {
	if cfg.Database.URL == "" {
		slog.Warn("no DATABASE_URL configured, ingested rows are kept in memory only")
		return func(string, []string) ingest.Sink {
			return sink.NewMemory()
		}, nil, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	return func(fileID string, fields []string) ingest.Sink {
		return sink.NewPostgres(pool, fileID, fields)
	}, pool, nil
}
