// Package server exposes the transform macro and the view generator over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pagopa/cdcview/artifactstore"
	"github.com/pagopa/cdcview/transform"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Port is the HTTP port to listen on.
	Port int
	// StoreDir is the artifact database directory. Empty for in-memory mode.
	StoreDir string
}

// Server serves the API until its context is canceled.
type Server struct {
	config     ServerConfig
	store      *artifactstore.Store
	logger     *slog.Logger
	api        *APIHandler
	httpServer *http.Server
}

// NewServer opens the artifact store and builds the API handler.
func NewServer(config ServerConfig, logger *slog.Logger) (*Server, error) {
	store, err := artifactstore.New(artifactstore.StoreOptions{
		Path:     config.StoreDir,
		InMemory: config.StoreDir == "",
	})
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	h := transform.NewHandler(transform.WithLogger(logger), transform.WithCache(store))
	return &Server{
		config: config,
		store:  store,
		logger: logger,
		api:    NewAPIHandler(h, store, logger),
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.api.RegisterRoutes(mux)
	return requestIDMiddleware(loggingMiddleware(s.logger, mux))
}

// Run listens on the configured port and shuts down when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", s.httpServer.Addr, "store", storeMode(s.config.StoreDir))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.store.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func storeMode(dir string) string {
	if dir == "" {
		return "in-memory"
	}
	return dir
}

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestIDMiddleware keeps the caller's request id or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", RequestID(r.Context()),
		)
	})
}
