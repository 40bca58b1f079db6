// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edverillo/ipwb/lib/config"
	"github.com/edverillo/ipwb/lib/index"
	"github.com/edverillo/ipwb/lib/replay"
	"github.com/edverillo/ipwb/lib/store"
	"github.com/edverillo/ipwb/lib/version"
)

// Server is the Memento replay HTTP server. It manages listener
// lifecycle and graceful shutdown; routing lives in handler.go.
type Server struct {
	config  *config.Config
	store   store.Client
	recon   *replay.Reconstructor
	logger  *slog.Logger
	metrics *Metrics

	// shutdownTimeout is the maximum time to wait for active
	// requests to complete after the context is cancelled.
	shutdownTimeout time.Duration

	// ready is closed after the listener is bound and the server
	// is accepting connections.
	ready chan struct{}

	// addr is the resolved listen address, available after ready
	// is closed.
	addr net.Addr
}

// Config configures a Server.
type Config struct {
	// Replay is the loaded replay configuration. Required.
	Replay *config.Config

	// Store fetches blobs and reports daemon liveness. Required.
	Store store.Client

	// ShutdownTimeout is the maximum time to wait for in-flight
	// requests during graceful shutdown. Defaults to 10 seconds
	// if zero.
	ShutdownTimeout time.Duration

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// New creates a replay server. Call Serve to start accepting
// connections.
func New(cfg Config) *Server {
	if cfg.Replay == nil {
		panic("server: Replay config is required")
	}
	if cfg.Store == nil {
		panic("server: Store is required")
	}
	if cfg.Logger == nil {
		panic("server: Logger is required")
	}

	timeout := cfg.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	metrics := NewMetrics()
	st := &instrumentedStore{inner: cfg.Store, metrics: metrics}

	return &Server{
		config:          cfg.Replay,
		store:           st,
		recon:           replay.NewReconstructor(st, cfg.Logger),
		logger:          cfg.Logger,
		metrics:         metrics,
		shutdownTimeout: timeout,
		ready:           make(chan struct{}),
	}
}

// Ready returns a channel that is closed once the server is bound
// and accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the resolved listen address. Only valid after Ready()
// is closed. Useful when the configured address uses port 0, where the
// resolved address contains the actual port.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Handler builds the full route table wrapped in the server
// middleware. Exposed so tests can drive the server through
// httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /memento/{datetime}/{urir...}", s.route("memento", s.handleMemento))
	mux.HandleFunc("GET /memento/*/{urir...}", s.route("captures", s.handleCaptures))
	mux.HandleFunc("GET /memento/*/{$}", s.route("captures", s.handleCaptureQuery))
	mux.HandleFunc("GET /timegate/{urir...}", s.route("timegate", s.handleTimegate))
	mux.HandleFunc("GET /timemap/{format}/{urir...}", s.route("timemap", s.handleTimemap))
	mux.HandleFunc("GET /health", s.route("health", s.handleHealth))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	return mux
}

// statusRecorder captures the written status code so the middleware
// can count and log it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// route wraps a handler with the outer boundary: the Server header,
// panic recovery, request logging, and per-route counters.
func (s *Server) route(name string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		recorder.Header().Set("Server", "InterPlanetary Wayback Replay/"+version.Short())

		start := time.Now()
		defer func() {
			if v := recover(); v != nil {
				s.logger.Error("handler panic",
					"route", name, "path", r.URL.Path, "panic", v)
				http.Error(recorder, "internal server error", http.StatusInternalServerError)
			}
			s.metrics.countRequest(name, recorder.status)
			s.logger.Info("request",
				"route", name,
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start))
		}()

		handler(recorder, r)
	}
}

// loadIndex reads a fresh index snapshot for one request. The index
// is append-mostly and owned by an external indexer, so every
// request resolves against whatever is on disk at read time.
func (s *Server) loadIndex(ctx context.Context) (*index.Index, error) {
	return index.Load(ctx, s.config.Index.Location, s.store)
}

// Serve starts accepting HTTP connections. Blocks until ctx is
// cancelled, then performs graceful shutdown: stops accepting new
// connections and waits up to ShutdownTimeout for active requests
// to complete.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Server.Listen, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler: s.Handler(),

		// Timeouts protect against slow clients holding
		// connections open. Reconstructed bodies are bounded by
		// the store's own fetch timeout, so these are generous.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("replay server listening",
		"address", s.addr.String(), "index", s.config.Index.Location)

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("replay server shutting down")
	case err := <-serveDone:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("replay server shutdown error", "error", err)
		return fmt.Errorf("replay server shutdown: %w", err)
	}

	s.logger.Info("replay server stopped")
	return nil
}
