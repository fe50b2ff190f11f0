package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/radio-control/rigcore/internal/audit"
	"github.com/radio-control/rigcore/internal/cat"
	"github.com/radio-control/rigcore/internal/cat/fake"
	"github.com/radio-control/rigcore/internal/cat/rigctld"
	"github.com/radio-control/rigcore/internal/config"
	"github.com/radio-control/rigcore/internal/logging"
	"github.com/radio-control/rigcore/internal/metrics"
	"github.com/radio-control/rigcore/internal/pttline"
	"github.com/radio-control/rigcore/internal/registry"
	"github.com/radio-control/rigcore/internal/rig"
)

// inputDebounce is how long the PTT line input must hold a new state.
const inputDebounce = 20 * time.Millisecond

// env holds the configuration and shared services of one command run.
type env struct {
	cfg      *config.Config
	logger   *zap.SugaredLogger
	backend  cat.Backend
	registry *registry.Registry
	audit    *audit.Logger
	promReg  *prometheus.Registry
	metrics  *metrics.Collector
}

// loadConfig loads the configuration and applies the persistent flags.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return nil, err
	}

	if s := v.GetString("backend"); s != "" {
		cfg.Backend.Type = s
	}
	if s := v.GetString("rig"); s != "" {
		cfg.Rig.Name = s
	}
	if s := v.GetString("port"); s != "" {
		cfg.Rig.SerialPort = s
	}
	if n := v.GetInt("baud"); n > 0 {
		cfg.Rig.BaudRate = n
	}
	if s := v.GetString("log-level"); s != "" {
		cfg.Logging.Level = s
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newEnv(v *viper.Viper) (*env, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging, v.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	rt := &env{
		cfg:     cfg,
		logger:  logger,
		backend: newBackend(cfg, logger),
		promReg: prometheus.NewRegistry(),
	}
	rt.registry = registry.New(rt.backend, registry.WithLogger(logger))
	rt.promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt.metrics = metrics.New(rt.promReg)

	if cfg.Audit.Enabled {
		rt.audit, err = audit.NewLogger(cfg.Audit)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize audit logger: %w", err)
		}
		logger.Infof("Auditing commands to %s", rt.audit.FilePath())
	}
	logger.Debugf("Using %s backend for %q", cfg.Backend.Type, cfg.Rig.Name)
	return rt, nil
}

func newBackend(cfg *config.Config, logger *zap.SugaredLogger) cat.Backend {
	if cfg.Backend.Type == config.BackendFake {
		return fake.NewBackend()
	}
	return rigctld.New(
		rigctld.WithLauncher(rigctld.ExecLauncher{Path: cfg.Backend.RigctldPath}),
		rigctld.WithStartupTimeout(cfg.Timing.StartupTimeout()),
		rigctld.WithLogger(logger),
	)
}

func (rt *env) newController(listeners ...rig.Listener) *rig.Controller {
	opts := []rig.Option{rig.WithLogger(rt.logger), rig.WithMetrics(rt.metrics)}
	if rt.audit != nil {
		opts = append(opts, rig.WithAuditLogger(rt.audit))
	}
	for _, l := range listeners {
		opts = append(opts, rig.WithListener(l))
	}
	return rig.NewController(rt.backend, rt.registry, rt.cfg.Rig, &rt.cfg.Timing, opts...)
}

// closeController tears c down, giving up after the configured close timeout.
func (rt *env) closeController(c *rig.Controller) error {
	done := make(chan error, 1)
	go func() { done <- c.Close() }()

	timeout := rt.cfg.Timing.CloseTimeout()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %v waiting for %s to close", timeout, c.Name())
	}
}

// openPttLine opens the configured PTT line, or returns nil when none is set.
func (rt *env) openPttLine() (*pttline.SerialLine, error) {
	if rt.cfg.PttLine.Port == "" {
		return nil, nil
	}
	return pttline.Open(rt.cfg.PttLine,
		pttline.WithPollInterval(rt.cfg.Timing.PttPoll()),
		pttline.WithLogger(rt.logger))
}

// followPtt keys line whenever the controller reports a PTT change.
func followPtt(line pttline.Line, logger *zap.SugaredLogger) rig.Listener {
	return rig.ListenerFuncs{
		OnPttChanged: func(c *rig.Controller, on bool) {
			if err := line.SetPTT(on); err != nil {
				logger.Warnf("Failed to follow PTT of %s on the PTT line: %v", c.Name(), err)
			}
		},
	}
}

// withPttLine opens the PTT line and builds a controller bound to it. The
// returned close function releases the line.
func (rt *env) withPttLine(listeners ...rig.Listener) (*rig.Controller, func() error, error) {
	line, err := rt.openPttLine()
	if err != nil {
		return nil, nil, err
	}
	if line == nil {
		return rt.newController(listeners...), func() error { return nil }, nil
	}

	c := rt.newController(append(listeners, followPtt(line, rt.logger))...)
	if rt.cfg.PttLine.MonitorInput {
		if err := line.MonitorInput(inputDebounce, c.SetPTT); err != nil {
			return nil, nil, errors.Join(err, rt.closeController(c), line.Close())
		}
	}
	return c, line.Close, nil
}

func (rt *env) metricsHandler() http.Handler {
	return promhttp.HandlerFor(rt.promReg, promhttp.HandlerOpts{})
}

// pollFreqMode asks c for its frequency and mode every interval until ctx ends.
func pollFreqMode(ctx context.Context, c *rig.Controller, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.RequestCurrentFrequencyMode()
		}
	}
}

// serveHTTP runs srv until ctx ends.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve %s: %w", srv.Addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (rt *env) Close() error {
	var err error
	if rt.audit != nil {
		err = rt.audit.Close()
	}
	_ = rt.logger.Sync()
	return err
}
