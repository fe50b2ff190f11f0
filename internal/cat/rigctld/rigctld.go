// Package rigctld implements cat.Backend on top of hamlib's rigctld daemon.
//
// Open starts one daemon per connection on a free loopback port, configured
// with the connection tokens, and talks to it with the extended response
// protocol ("+\command"). Every response ends with an "RPRT n" line whose
// status is mapped through cat.NewStatusError.
package rigctld

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/radio-control/rigcore/internal/cat"
)

const (
	defaultHost           = "127.0.0.1"
	defaultStartupTimeout = 5 * time.Second
)

// Backend starts rigctld daemons.
type Backend struct {
	launcher       Launcher
	host           string
	startupTimeout time.Duration
	freePort       func() (int, error)
	logger         *zap.SugaredLogger
}

var _ cat.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithLauncher replaces the exec launcher.
func WithLauncher(l Launcher) Option {
	return func(b *Backend) { b.launcher = l }
}

// WithStartupTimeout bounds how long Open waits for a new daemon to accept
// connections.
func WithStartupTimeout(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.startupTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Backend. Without WithLauncher it runs "rigctld" from PATH.
func New(opts ...Option) *Backend {
	b := &Backend{
		launcher:       ExecLauncher{},
		host:           defaultHost,
		startupTimeout: defaultStartupTimeout,
		freePort:       freePort,
		logger:         zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Discover lists the models compiled into rigctld.
func (b *Backend) Discover(ctx context.Context) ([]cat.RigDescriptor, error) {
	out, err := b.launcher.List(ctx)
	if err != nil {
		return nil, errors.Join(cat.ErrIO, err)
	}
	return ParseList(out)
}

// Open starts a daemon for rig and connects to it. On any failure the daemon
// is stopped before returning.
func (b *Backend) Open(ctx context.Context, rig cat.RigDescriptor, cfg cat.OpenConfig) (cat.Handle, error) {
	port, err := b.freePort()
	if err != nil {
		return nil, fmt.Errorf("open %s: allocate port: %w", rig.Name(), errors.Join(cat.ErrIO, err))
	}
	args := Args(rig.ID, b.host, port, cfg)
	b.logger.Debugf("Starting rigctld %s", strings.Join(args, " "))

	proc, err := b.launcher.Start(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", rig.Name(), errors.Join(cat.ErrConfig, err))
	}

	addr := net.JoinHostPort(b.host, strconv.Itoa(port))
	var d net.Dialer
	conn, err := backoff.Retry(ctx, func() (net.Conn, error) {
		return d.DialContext(ctx, "tcp", addr)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(b.startupTimeout),
	)
	if err != nil {
		if stopErr := proc.Stop(); stopErr != nil {
			b.logger.Warnf("Failed to stop rigctld for %s: %v", rig.Name(), stopErr)
		}
		return nil, fmt.Errorf("open %s: connect %s: %w", rig.Name(), addr, errors.Join(cat.ErrIO, err))
	}

	b.logger.Infof("Connected to rigctld for %s on %s", rig.Name(), addr)
	return &Handle{
		conn:   conn,
		reader: bufio.NewReader(conn),
		proc:   proc,
		logger: b.logger,
	}, nil
}

// Args renders the daemon command line for rig.
func Args(id cat.ModelID, host string, port int, cfg cat.OpenConfig) []string {
	args := []string{
		"-m", strconv.Itoa(int(id)),
		"-T", host,
		"-t", strconv.Itoa(port),
		"--vfo",
	}
	for _, tok := range cfg.Tokens() {
		args = append(args, "-C", tok.String())
	}
	return args
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(defaultHost, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Handle is a connection to one rigctld daemon. Calls are serialized.
type Handle struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	proc   Process
	closed bool
	logger *zap.SugaredLogger
}

var _ cat.Handle = (*Handle)(nil)

// Close asks the daemon to quit, closes the connection and stops the process.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return cat.ErrClosed
	}
	h.closed = true

	_ = h.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, _ = h.conn.Write([]byte("q\n"))
	return errors.Join(h.conn.Close(), h.proc.Stop())
}

// VFO returns the active VFO.
func (h *Handle) VFO(ctx context.Context) (cat.VFO, error) {
	values, err := h.transact(ctx, "get_vfo")
	if err != nil {
		return "", err
	}
	v, err := first("get_vfo", values)
	return cat.VFO(v), err
}

// VFOList returns the VFOs the rig advertises.
func (h *Handle) VFOList(ctx context.Context) ([]cat.VFO, error) {
	values, err := h.transact(ctx, "get_vfo_list")
	if err != nil {
		return nil, err
	}
	v, err := first("get_vfo_list", values)
	if err != nil {
		return nil, err
	}
	var vfos []cat.VFO
	for _, name := range strings.Fields(v) {
		vfos = append(vfos, cat.VFO(name))
	}
	return vfos, nil
}

// Frequency returns the dial frequency of vfo.
func (h *Handle) Frequency(ctx context.Context, vfo cat.VFO) (uint64, error) {
	values, err := h.transact(ctx, "get_freq", string(vfo))
	if err != nil {
		return 0, err
	}
	v, err := first("get_freq", values)
	if err != nil {
		return 0, err
	}
	// Some rigs report fractional Hz.
	hz, err := strconv.ParseFloat(v, 64)
	if err != nil || hz < 0 {
		return 0, fmt.Errorf("get_freq: bad frequency %q: %w", v, cat.ErrProtocol)
	}
	return uint64(hz), nil
}

// SetFrequency tunes vfo.
func (h *Handle) SetFrequency(ctx context.Context, vfo cat.VFO, hz uint64) error {
	_, err := h.transact(ctx, "set_freq", string(vfo), strconv.FormatUint(hz, 10))
	return err
}

// Mode returns the mode and passband of vfo.
func (h *Handle) Mode(ctx context.Context, vfo cat.VFO) (cat.ModeCode, cat.Passband, error) {
	values, err := h.transact(ctx, "get_mode", string(vfo))
	if err != nil {
		return cat.ModeNone, 0, err
	}
	if len(values) < 2 {
		return cat.ModeNone, 0, fmt.Errorf("get_mode: %d values: %w", len(values), cat.ErrProtocol)
	}
	pb, err := strconv.Atoi(values[1])
	if err != nil {
		return cat.ModeNone, 0, fmt.Errorf("get_mode: bad passband %q: %w", values[1], cat.ErrProtocol)
	}
	return cat.ModeCode(values[0]), cat.Passband(pb), nil
}

// SetMode changes the mode of vfo.
func (h *Handle) SetMode(ctx context.Context, vfo cat.VFO, mode cat.ModeCode, passband cat.Passband) error {
	_, err := h.transact(ctx, "set_mode", string(vfo), string(mode), strconv.Itoa(int(passband)))
	return err
}

// PTT returns the transmit state.
func (h *Handle) PTT(ctx context.Context, vfo cat.VFO) (bool, error) {
	values, err := h.transact(ctx, "get_ptt", string(vfo))
	if err != nil {
		return false, err
	}
	v, err := first("get_ptt", values)
	if err != nil {
		return false, err
	}
	return v != "0", nil
}

// SetPTT keys or unkeys the transmitter.
func (h *Handle) SetPTT(ctx context.Context, vfo cat.VFO, on bool) error {
	state := "0"
	if on {
		state = "1"
	}
	_, err := h.transact(ctx, "set_ptt", string(vfo), state)
	return err
}

// transact sends one extended-protocol command and collects the values of
// the response, in order, up to the RPRT line.
func (h *Handle) transact(ctx context.Context, op string, args ...string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, cat.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := h.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%s: %w", op, errors.Join(cat.ErrIO, err))
	}

	line := "+\\" + strings.Join(append([]string{op}, args...), " ") + "\n"
	h.logger.Debugf("rigctld <- %s", strings.TrimSpace(line))
	if _, err := h.conn.Write([]byte(line)); err != nil {
		return nil, wireError(op, err)
	}

	var values []string
	for {
		resp, err := h.reader.ReadString('\n')
		if err != nil {
			return nil, wireError(op, err)
		}
		resp = strings.TrimSpace(resp)
		if resp == "" {
			continue
		}
		if status, ok := strings.CutPrefix(resp, "RPRT "); ok {
			code, err := strconv.Atoi(strings.TrimSpace(status))
			if err != nil {
				return nil, fmt.Errorf("%s: bad status %q: %w", op, status, cat.ErrProtocol)
			}
			return values, cat.NewStatusError(op, code)
		}
		key, value, found := strings.Cut(resp, ":")
		if !found || key == op {
			// command echo
			continue
		}
		values = append(values, strings.TrimSpace(value))
	}
}

func first(op string, values []string) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("%s: empty response: %w", op, cat.ErrProtocol)
	}
	return values[0], nil
}

func wireError(op string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, errors.Join(cat.ErrTimeout, err))
	}
	return fmt.Errorf("%s: %w", op, errors.Join(cat.ErrIO, err))
}
