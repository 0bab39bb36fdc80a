// Package httpapi exposes the Q&A pipeline over HTTP: the run endpoint that
// answers a batch of questions against a document, a read-only credential
// status endpoint, and a liveness probe. All processing endpoints sit behind
// a static bearer token.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Suraj-Bhadauria/hackrx-DO/internal/core/ports/driving"
	"github.com/Suraj-Bhadauria/hackrx-DO/internal/logger"
)

// Server hosts the HTTP API.
type Server struct {
	httpServer *http.Server
	query      driving.QueryService
	reporter   driving.PoolReporter
	token      string
}

// Config holds server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	// BearerToken is compared for exact equality on every request.
	BearerToken string

	// RequestTimeout bounds one whole run request. Batches wait on rate
	// windows, so this is generous by default (10 minutes).
	RequestTimeout time.Duration
}

// NewServer creates the API server.
func NewServer(cfg Config, query driving.QueryService, reporter driving.PoolReporter) *Server {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Minute
	}

	s := &Server{
		query:    query,
		reporter: reporter,
		token:    cfg.BearerToken,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /hackrx/run", s.requireAuth(s.handleRun))
	mux.HandleFunc("GET /api/v1/status", s.requireAuth(s.handleStatus))
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	logger.Info("HTTP API listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the server's handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
