// Package config provides centralized configuration management. Settings
// come from environment variables with defaults, validated on startup so a
// misconfigured process fails before it serves traffic.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Ingest   IngestConfig
	Export   ExportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ShutdownTimeout bounds graceful shutdown, including the ingestion
	// drain (default: 45s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"45s"`
}

// StorageConfig holds blob storage settings.
type StorageConfig struct {
	// Backend selects the blob store: "s3" or "memory" (default: s3).
	// The memory backend is for local development only.
	Backend string `env:"STORAGE_BACKEND" default:"s3"`

	// Bucket is the bucket all API file keys resolve against.
	Bucket string `env:"STORAGE_BUCKET" default:"ledgerflow"`

	// Region is the S3 region (default: us-east-1)
	Region string `env:"STORAGE_REGION" default:"us-east-1"`

	// Endpoint overrides the S3 endpoint, for MinIO or localstack.
	Endpoint string `env:"STORAGE_ENDPOINT"`

	// ForcePathStyle switches to path-style addressing, required by most
	// S3-compatible stores (default: false)
	ForcePathStyle bool `env:"STORAGE_FORCE_PATH_STYLE" default:"false"`
}

// DatabaseConfig holds the Postgres pool settings. An empty URL puts the
// server in development mode with an in-memory sink.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the pool ceiling (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the pool floor (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime recycles connections after this age (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime closes connections idle this long (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	// MaxConcurrent is the parallel ingestion ceiling (default: 4)
	MaxConcurrent int `env:"INGEST_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a job waits for a slot (default: 10s)
	MaxWaitTime time.Duration `env:"INGEST_MAX_WAIT_TIME" default:"10s"`

	// JobTimeout bounds one ingestion end to end (default: 15m)
	JobTimeout time.Duration `env:"INGEST_JOB_TIMEOUT" default:"15m"`

	// JobRetention is how long finished jobs stay queryable (default: 5m)
	JobRetention time.Duration `env:"INGEST_JOB_RETENTION" default:"5m"`

	// CSVBatchSize is rows per sink batch on the delimited path (default: 1000)
	CSVBatchSize int `env:"INGEST_CSV_BATCH_SIZE" default:"1000"`

	// WorkbookBatchSize is rows per batch on the whole-parse workbook path
	// (default: 500)
	WorkbookBatchSize int `env:"INGEST_WORKBOOK_BATCH_SIZE" default:"500"`

	// ConstrainedBatchSize is rows per batch on the large-workbook path
	// (default: 100)
	ConstrainedBatchSize int `env:"INGEST_CONSTRAINED_BATCH_SIZE" default:"100"`

	// SizeThreshold is the workbook size in bytes that triggers the
	// constrained strategy (default: 30MB)
	SizeThreshold int64 `env:"INGEST_SIZE_THRESHOLD" default:"31457280"`

	// HeaderCacheTTL is how long extracted headers stay cached (default: 5m)
	HeaderCacheTTL time.Duration `env:"INGEST_HEADER_CACHE_TTL" default:"5m"`

	// ScratchDir is where workbook spools land; empty means the OS temp dir
	ScratchDir string `env:"INGEST_SCRATCH_DIR"`
}

// ExportConfig holds archive build settings.
type ExportConfig struct {
	// ScratchDir is where per-result workbooks are staged before zipping
	ScratchDir string `env:"EXPORT_SCRATCH_DIR"`
}

// RateLimitConfig holds per-IP request limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerSecond is the sustained per-IP rate (default: 5)
	RequestsPerSecond float64 `env:"RATE_LIMIT_REQUESTS_PER_SECOND" default:"5"`

	// Burst is the per-IP burst allowance (default: 10)
	Burst int `env:"RATE_LIMIT_BURST" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are believed
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
