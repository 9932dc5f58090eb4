// Package server exposes the search pipeline over HTTP: a unary JSON
// endpoint and a server-sent-events streaming endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sourcebot-dev/sourcebot-sub003/internal/search"
	"github.com/sourcebot-dev/sourcebot-sub003/internal/telemetry"
)

// SearchService is the part of the search pipeline the server fronts.
type SearchService interface {
	Search(ctx context.Context, userID string, req *search.Request) (*search.Response, error)
	StreamSearch(ctx context.Context, userID string, req *search.Request) (<-chan search.StreamEvent, error)
}

// Server serves the search API.
type Server struct {
	service    SearchService
	logger     *slog.Logger
	recorder   *telemetry.Recorder
	httpServer *http.Server
}

// New creates a server listening on addr. The recorder may be nil.
func New(addr string, service SearchService, logger *slog.Logger, recorder *telemetry.Recorder) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		service:  service,
		logger:   logger,
		recorder: recorder,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/stream_search", s.handleStreamSearch)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: streamed searches have no bounded duration.
	}
	return s
}

// Handler returns the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("search API listening", slog.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
