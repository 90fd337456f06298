// Package web exposes the ingestion pipeline over a JSON HTTP API: file
// validation, cached header extraction, asynchronous ingestion jobs, and
// export archive builds.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ledgerflow/internal/blob"
	"ledgerflow/internal/export"
	"ledgerflow/internal/header"
	"ledgerflow/internal/ingest"
	"ledgerflow/internal/sniff"
	"ledgerflow/internal/web/middleware"
)

// SinkFactory builds the persistence sink for one ingestion job. fields is
// the canonical field set the job's records will carry.
type SinkFactory func(fileID string, fields []string) ingest.Sink

// Options carries the collaborators and tunables the server needs.
type Options struct {
	Store          blob.Store
	Location       string // bucket or container all API keys resolve against
	Headers        *header.Extractor
	Ingest         *ingest.Service
	Archiver       *export.Archiver
	Sinks          SinkFactory
	RatePerIP      float64 // requests per second per client, 0 disables limiting
	RateBurst      int
	TrustedProxies []string
}

// Server is the HTTP front of the pipeline.
type Server struct {
	store    blob.Store
	location string
	sniffer  *sniff.Sniffer
	headers  *header.Extractor
	ingest   *ingest.Service
	archiver *export.Archiver
	sinks    SinkFactory

	router *chi.Mux
	server *http.Server
}

func NewServer(opts Options) *Server {
	s := &Server{
		store:    opts.Store,
		location: opts.Location,
		sniffer:  sniff.New(opts.Store),
		headers:  opts.Headers,
		ingest:   opts.Ingest,
		archiver: opts.Archiver,
		sinks:    opts.Sinks,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware(opts)
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(opts.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(60 * time.Second))

	if opts.RatePerIP > 0 {
		s.router.Use(newRateLimiter(opts.RatePerIP, opts.RateBurst).middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/files/{key}/validate", s.handleValidate)
		r.Get("/files/{key}/headers", s.handleHeaders)

		r.Post("/ingestions", s.handleStartIngestion)
		r.Get("/ingestions/{id}", s.handleProgress)
		r.Get("/ingestions/{id}/result", s.handleResult)
		r.Post("/ingestions/{id}/cancel", s.handleCancel)

		r.Post("/exports", s.handleExport)
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Start begins listening on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // export builds run in-request
		IdleTimeout:  60 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the chi mux for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ref resolves an API file key against the configured location.
func (s *Server) ref(key string) blob.Ref {
	return blob.Ref{Location: s.location, Key: key}
}
