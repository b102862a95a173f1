// Package metrics serves a Prometheus registry over HTTP for the
// lifetime of a context, shutting down gracefully when it ends.
//
// Basic usage:
//
//	srv := metrics.New(reg, metrics.WithHost("localhost:9090"))
//	go srv.Run(ctx)
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Path is where the registry is exposed.
const Path = "/metrics"

// Server exposes a registry at [Path].
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New creates a Server for reg. A default host of "localhost:9090",
// sensible timeouts, and the default slog logger are used unless
// overridden via options.
func New(reg *prometheus.Registry, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	mux := http.NewServeMux()
	mux.Handle(Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              "localhost:9090",
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if o.host != "" {
		srv.Addr = o.host
	}

	s := Server{
		srv:             srv,
		shutdownTimeout: 5 * time.Second,
		logger:          slog.Default(),
	}

	if o.shutdownTimeout != 0 {
		s.shutdownTimeout = o.shutdownTimeout
	}
	if o.logger != nil {
		s.logger = o.logger
	}

	return &s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run listens on the configured address and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends, then shuts down gracefully. It returns
// nil on clean shutdown or an error if serving or shutting down fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serverErrs := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server started", "addr", ln.Addr().String())
		serverErrs <- s.srv.Serve(ln)
	}()

	select {
	case err := <-serverErrs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}

		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.srv.Close()
			return fmt.Errorf("metrics server didn't stop gracefully: %w", err)
		}

		<-serverErrs
		s.logger.Info("metrics server stopped")

		return nil
	}
}
