package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radio-control/rigcore/internal/auth"
)

// Server is the HTTP API server of one rig.
type Server struct {
	mu         sync.Mutex
	httpServer *http.Server
	stopped    bool

	rig       RigPort
	catalog   CatalogPort
	telemetry TelemetryPort
	state     *State
	auth      *auth.Middleware
	metrics   http.Handler
	logger    *zap.SugaredLogger
	heartbeat time.Duration
	startTime time.Time
	version   string
}

// Option configures a Server.
type Option func(*Server)

// WithAuth protects every endpoint except health with m.
func WithAuth(m *auth.Middleware) Option {
	return func(s *Server) { s.auth = m }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) { s.logger = l }
}

// WithHeartbeat sets the interval of SSE heartbeats. The default is 15s.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// WithVersion sets the version reported by health and capabilities.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a server for rig. state must be attached to the same
// controller as a listener.
func NewServer(rig RigPort, catalog CatalogPort, telemetry TelemetryPort, state *State, opts ...Option) *Server {
	s := &Server{
		rig:       rig,
		catalog:   catalog,
		telemetry: telemetry,
		state:     state,
		logger:    zap.NewNop().Sugar(),
		heartbeat: 15 * time.Second,
		startTime: time.Now(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// Start serves on addr until Stop is called. It returns nil at once if Stop
// was called first.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Infof("Serving rig API for %s on %s", s.rig.Name(), addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop shuts the server down, waiting for in-flight requests until ctx ends.
// Event streams end when the telemetry hub stops.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
