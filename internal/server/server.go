// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arampall/intelligent-document-extraction/internal/async"
	"github.com/arampall/intelligent-document-extraction/internal/common"
	"github.com/arampall/intelligent-document-extraction/internal/export"
	"github.com/arampall/intelligent-document-extraction/internal/ingest"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

type Server struct {
	cfg      common.ServerConfig
	profiles repository.ProfileRepository
	docs     repository.DocumentRepository
	jobs     repository.JobRepository
	results  repository.ExtractionRepository
	ingestor ingest.Ingestor
	queue    async.Queue
	exporter *export.Service
	logger   *slog.Logger

	http *http.Server
}

func New(
	cfg common.ServerConfig,
	profiles repository.ProfileRepository,
	docs repository.DocumentRepository,
	jobs repository.JobRepository,
	results repository.ExtractionRepository,
	ingestor ingest.Ingestor,
	queue async.Queue,
	exporter *export.Service,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		profiles: profiles,
		docs:     docs,
		jobs:     jobs,
		results:  results,
		ingestor: ingestor,
		queue:    queue,
		exporter: exporter,
		logger:   logger,
	}
	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/{id}", s.handleGetDocument)
	})
	r.Post("/ingest/directory", s.handleIngestDirectory)
	r.Get("/extractions", s.handleListExtractions)
	r.Get("/export/{format}", s.handleExport)

	return r
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.cfg.HTTPAddr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}
