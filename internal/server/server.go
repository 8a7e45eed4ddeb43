// Package server provides the HTTP API for the knowledge assistant.
package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/metrics"
	"knowledge-assistant/internal/models"
)

const maxUploadBytes = 32 << 20

type Answerer interface {
	GenerateAnswer(ctx context.Context, question string, history []models.ConversationTurn) *models.AnswerGenerationResult
}

type Searcher interface {
	Search(ctx context.Context, query string) []models.SearchResult
	BasicSearch(ctx context.Context, query string) []models.SearchResult
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, name string) (models.Document, error)
	GetDocument(ctx context.Context, id string) (models.Document, error)
}

type Ingestor interface {
	Ingest(ctx context.Context, doc models.Document, filename string, data []byte) (models.Document, error)
}

// Server is the HTTP server for the ask, search and upload API
type Server struct {
	answerer  Answerer
	searcher  Searcher
	documents DocumentStore
	ingestor  Ingestor
	config    *config.ServerConfig
	log       zerolog.Logger
	server    *http.Server
	uploads   sync.WaitGroup
}

func NewServer(answerer Answerer, searcher Searcher, documents DocumentStore, ingestor Ingestor, cfg *config.ServerConfig, logger zerolog.Logger) *Server {
	return &Server{
		answerer:  answerer,
		searcher:  searcher,
		documents: documents,
		ingestor:  ingestor,
		config:    cfg,
		log:       logger.With().Str("component", "server").Logger(),
	}
}

// Router builds the chi router with every route mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Use(middleware.Timeout(time.Duration(s.config.RequestTimeoutSeconds) * time.Second))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/documents", s.handleUpload)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("Starting server")
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server and waits for accepted uploads to finish ingesting
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	done := make(chan struct{})
	go func() {
		s.uploads.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn().Msg("shutdown deadline reached with ingestions still running")
	}
	return err
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
