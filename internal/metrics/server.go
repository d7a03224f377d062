package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the Prometheus scrape endpoint and liveness probes for a
// running supervisor. It binds lazily in Start so ":0" addresses resolve
// to a real port, which Addr reports.
type Server struct {
	addr   string
	logger *slog.Logger
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
	started  time.Time
}

// NewServer creates a Server that will listen on addr once started.
func NewServer(addr string, logger *slog.Logger) *Server {
	s := &Server{
		addr:   addr,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/readyz", s.healthHandler)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	return s
}

// healthHandler reports supervisor liveness. Readiness is the same
// condition: once the server is up the supervisor is serving.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	uptime := time.Since(s.started)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(uptime.Seconds()),
	})
}

// Start binds the listen address and serves in the background. Use
// Shutdown to stop. A bind failure is returned synchronously so the
// caller can fail fast on a misconfigured address.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind metrics address %q: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.started = time.Now()
	s.mu.Unlock()

	s.logger.Info("metrics_server_listening", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics_server_error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("metrics_server_shutting_down")
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address after Start, or the configured address
// before it. The distinction matters for ":0" listeners.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
