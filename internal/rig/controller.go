package rig

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/radio-control/rigcore/internal/audit"
	"github.com/radio-control/rigcore/internal/cat"
	"github.com/radio-control/rigcore/internal/config"
	"github.com/radio-control/rigcore/internal/metrics"
	"github.com/radio-control/rigcore/internal/registry"
)

// Controller serializes commands for one radio onto a single worker.
type Controller struct {
	backend  cat.Backend
	registry *registry.Registry
	rigCfg   config.RigConfig
	timing   *config.TimingConfig

	listeners Listeners
	logger    *zap.SugaredLogger
	audit     AuditLogger
	metrics   *metrics.Collector

	exec *executor

	// conn is owned by the worker goroutine.
	conn *connection

	closing     atomic.Bool
	closeOnce   sync.Once
	teardownErr error
}

// connection is the state of an open radio. It exists only while connected.
type connection struct {
	handle       cat.Handle
	rig          cat.RigDescriptor
	multipleVFOs bool
	ptt          bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithListener adds an event listener. Listeners are called in the order
// they were added.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		if l != nil {
			c.listeners = append(c.listeners, l)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAuditLogger records every executed command.
func WithAuditLogger(a AuditLogger) Option {
	return func(c *Controller) { c.audit = a }
}

// WithMetrics reports command and state metrics to m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates a controller for the rig described by rigCfg and
// starts its worker. A nil registry selects the process-wide registry of
// backend; a nil timing selects the defaults. The registry is populated
// eagerly; a discovery failure is logged and retried by Connect.
func NewController(backend cat.Backend, reg *registry.Registry, rigCfg config.RigConfig, timing *config.TimingConfig, opts ...Option) *Controller {
	if reg == nil {
		reg = registry.Shared(backend)
	}
	if timing == nil {
		timing = config.LoadTimingBaseline()
	}
	c := &Controller{
		backend:  backend,
		registry: reg,
		rigCfg:   rigCfg,
		timing:   timing,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timing.DiscoverTimeout())
	defer cancel()
	if _, err := reg.Discover(ctx); err != nil {
		c.logger.Warnf("Rig discovery failed: %v", err)
	}

	c.exec = newExecutor(c.run, c.metrics.SetQueueDepth)
	return c
}

// Name returns the configured rig name.
func (c *Controller) Name() string {
	return c.rigCfg.Name
}

// Connect opens the radio.
func (c *Controller) Connect() {
	c.submit(Command{Kind: CmdConnect})
}

// Disconnect closes the radio, releasing PTT first if keyed.
func (c *Controller) Disconnect() {
	c.submit(Command{Kind: CmdDisconnect})
}

// SetPTT keys or unkeys the transmitter.
func (c *Controller) SetPTT(on bool) {
	c.submit(Command{Kind: CmdSetPTT, PTT: on})
}

// SetFrequency tunes the active VFO to hz.
func (c *Controller) SetFrequency(hz uint64) {
	c.submit(Command{Kind: CmdSetFrequency, Frequency: hz})
}

// SetMode changes the mode of the active VFO.
func (c *Controller) SetMode(mode Mode) {
	c.submit(Command{Kind: CmdSetMode, Mode: mode})
}

// RequestCurrentFrequencyMode reads the frequency and mode back from the
// radio and reports them with FreqModeChanged.
func (c *Controller) RequestCurrentFrequencyMode() {
	c.submit(Command{Kind: CmdRefreshFreqMode})
}

// Close disconnects the radio if connected and stops the worker. It blocks
// until every command queued before it, and the final disconnect, have run.
// The disconnect error, if any, is also reported to listeners. Close must
// not be called from a Listener. Later calls return the first result.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.exec.stopWith(Command{Kind: cmdTeardown})
	})
	return c.teardownErr
}

// submit queues cmd. closing is only a fast path; enqueue itself refuses
// anything behind the teardown.
func (c *Controller) submit(cmd Command) {
	if c.closing.Load() || !c.exec.enqueue(cmd) {
		c.logger.Warnf("Dropping %s for %s: controller closed", cmd.Kind, c.rigCfg.Name)
	}
}

// enqueueRefresh queues a frequency/mode read-back on behalf of a command
// that just changed the radio. Nothing is queued once Close has started.
func (c *Controller) enqueueRefresh() {
	if c.closing.Load() || !c.exec.enqueue(Command{Kind: CmdRefreshFreqMode}) {
		c.logger.Debugf("Skipping frequency/mode refresh for %s: closing", c.rigCfg.Name)
	}
}

// run executes one command on the worker.
func (c *Controller) run(cmd Command) {
	start := time.Now()

	var err error
	switch cmd.Kind {
	case CmdConnect:
		err = c.connect()
	case CmdDisconnect:
		err = c.disconnect()
	case CmdSetPTT:
		err = c.setPTT(cmd.PTT)
	case CmdSetFrequency:
		err = c.setFrequency(cmd.Frequency)
	case CmdSetMode:
		err = c.setMode(cmd.Mode)
	case CmdRefreshFreqMode:
		err = c.refreshFreqMode()
	case cmdTeardown:
		err = c.disconnect()
		c.teardownErr = err
	}

	elapsed := time.Since(start)
	c.metrics.ObserveCommand(cmd.Kind.String(), err, elapsed)
	if c.audit != nil {
		ctx := audit.WithParams(context.Background(), cmd.params())
		c.audit.LogAction(ctx, cmd.Kind.String(), c.rigCfg.Name, err, elapsed)
	}
	c.logger.Debugf("%s on %s took %v", cmd.Kind, c.rigCfg.Name, elapsed)

	if err != nil {
		c.emitError(err)
	}
}

// deviceContext bounds one device call.
func (c *Controller) deviceContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timing.CommandTimeout())
}
