// Package fake provides an in-memory CAT backend that records every device
// call. It backs the "fake" backend type of the CLI and the controller tests.
package fake

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/radio-control/rigcore/internal/cat"
)

// Operation names recorded in the call log.
const (
	OpDiscover   = "discover"
	OpOpen       = "open"
	OpClose      = "close"
	OpGetVFO     = "get_vfo"
	OpGetVFOList = "get_vfo_list"
	OpGetFreq    = "get_freq"
	OpSetFreq    = "set_freq"
	OpGetMode    = "get_mode"
	OpSetMode    = "set_mode"
	OpGetPTT     = "get_ptt"
	OpSetPTT     = "set_ptt"
)

// DefaultRigs is the catalog served when no rigs are configured.
var DefaultRigs = []cat.RigDescriptor{
	{Manufacturer: "Hamlib", Model: "Dummy", ID: 1},
	{Manufacturer: "Icom", Model: "IC-7300", ID: 3073},
	{Manufacturer: "Yaesu", Model: "FT-991", ID: 1035},
	{Manufacturer: "Kenwood", Model: "TS-590S", ID: 2031},
	{Manufacturer: "Elecraft", Model: "K3/KX3", ID: 2029},
}

// Call is one recorded backend call.
type Call struct {
	Op    string
	VFO   cat.VFO
	Value any
}

func (c Call) String() string {
	if c.VFO == "" && c.Value == nil {
		return c.Op
	}
	return fmt.Sprintf("%s(%s, %v)", c.Op, c.VFO, c.Value)
}

type failure struct {
	op    string
	vfo   cat.VFO
	err   error
	times int // negative fails forever
}

type vfoState struct {
	frequency uint64
	mode      cat.ModeCode
	passband  cat.Passband
}

// Backend implements cat.Backend in memory.
type Backend struct {
	mu sync.Mutex

	rigs     []cat.RigDescriptor
	vfos     []cat.VFO
	active   cat.VFO
	state    map[cat.VFO]*vfoState
	ptt      bool
	calls    []Call
	failures []*failure
	configs  []cat.OpenConfig
	open     *Handle

	// BeforeCall, when set, runs before every recorded call outside the lock.
	BeforeCall func(Call)
}

// Option configures a Backend.
type Option func(*Backend)

// WithRigs replaces the discovery catalog.
func WithRigs(rigs ...cat.RigDescriptor) Option {
	return func(b *Backend) {
		b.rigs = slices.Clone(rigs)
	}
}

// WithVFOs sets the advertised VFO list. The first entry becomes active.
func WithVFOs(vfos ...cat.VFO) Option {
	return func(b *Backend) {
		b.vfos = slices.Clone(vfos)
		if len(vfos) > 0 {
			b.active = vfos[0]
		}
	}
}

// WithSingleVFO models a rig that only advertises VFO A.
func WithSingleVFO() Option {
	return WithVFOs(cat.VFOA)
}

// NewBackend creates a fake backend tuned to 14.074 MHz USB on VFO A.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		rigs:   slices.Clone(DefaultRigs),
		vfos:   []cat.VFO{cat.VFOA, cat.VFOB},
		active: cat.VFOA,
		state: map[cat.VFO]*vfoState{
			cat.VFOA: {frequency: 14074000, mode: cat.ModeUSB, passband: 2400},
			cat.VFOB: {frequency: 7074000, mode: cat.ModeLSB, passband: 2400},
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fail makes the next times calls of op fail with err. An empty vfo matches
// any selector; times < 0 fails every call.
func (b *Backend) Fail(op string, vfo cat.VFO, err error, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, &failure{op: op, vfo: vfo, err: err, times: times})
}

// ClearFailures removes every pending failure.
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = nil
}

// Calls returns a copy of the call log.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

// CallsOf returns the recorded calls of the given operations, in order.
func (b *Backend) CallsOf(ops ...string) []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Call
	for _, c := range b.calls {
		if slices.Contains(ops, c.Op) {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times op was called.
func (b *Backend) Count(op string) int {
	return len(b.CallsOf(op))
}

// Reset clears the call log.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// OpenConfigs returns the configurations passed to Open.
func (b *Backend) OpenConfigs() []cat.OpenConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.configs)
}

// Tune sets the state of vfo directly, as an operator turning the dial would.
func (b *Backend) Tune(vfo cat.VFO, hz uint64, mode cat.ModeCode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.vfoLocked(vfo)
	st.frequency = hz
	st.mode = mode
}

// Transmitting reports the simulated PTT state.
func (b *Backend) Transmitting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ptt
}

// Discover returns the configured catalog.
func (b *Backend) Discover(ctx context.Context) ([]cat.RigDescriptor, error) {
	if err := b.record(ctx, Call{Op: OpDiscover}); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.rigs), nil
}

// Open opens the simulated rig. Only one handle may be open at a time.
func (b *Backend) Open(ctx context.Context, rig cat.RigDescriptor, cfg cat.OpenConfig) (cat.Handle, error) {
	if err := b.record(ctx, Call{Op: OpOpen, Value: rig.Name()}); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !slices.Contains(b.rigs, rig) {
		return nil, fmt.Errorf("open %s: %w", rig.Name(), cat.ErrConfig)
	}
	if b.open != nil {
		return nil, fmt.Errorf("open %s: %w", rig.Name(), cat.ErrBusy)
	}
	b.configs = append(b.configs, cfg)
	b.open = &Handle{backend: b, rig: rig}
	return b.open, nil
}

func (b *Backend) record(ctx context.Context, call Call) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if hook := b.BeforeCall; hook != nil {
		hook(call)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	for i, f := range b.failures {
		if f.op != call.Op || (f.vfo != "" && f.vfo != call.VFO) {
			continue
		}
		if f.times > 0 {
			f.times--
			if f.times == 0 {
				b.failures = slices.Delete(b.failures, i, i+1)
			}
		}
		return f.err
	}
	return nil
}

// vfoLocked resolves the current-VFO sentinel and returns the VFO state.
func (b *Backend) vfoLocked(vfo cat.VFO) *vfoState {
	if vfo == cat.VFOCurrent {
		vfo = b.active
	}
	st, ok := b.state[vfo]
	if !ok {
		st = &vfoState{mode: cat.ModeUSB}
		b.state[vfo] = st
	}
	return st
}

func (b *Backend) knownLocked(vfo cat.VFO) bool {
	return vfo == cat.VFOCurrent || slices.Contains(b.vfos, vfo)
}

// Handle is an open fake rig.
type Handle struct {
	backend *Backend
	rig     cat.RigDescriptor
	closed  bool
}

var _ cat.Handle = (*Handle)(nil)

func (h *Handle) call(ctx context.Context, call Call) error {
	if err := h.backend.record(ctx, call); err != nil {
		return err
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	if h.closed {
		return cat.ErrClosed
	}
	if call.VFO != "" && !h.backend.knownLocked(call.VFO) {
		return cat.NewStatusError(call.Op, -16)
	}
	return nil
}

// Close closes the handle.
func (h *Handle) Close() error {
	if err := h.call(context.Background(), Call{Op: OpClose}); err != nil {
		return err
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	h.closed = true
	h.backend.open = nil
	h.backend.ptt = false
	return nil
}

// VFO returns the active VFO.
func (h *Handle) VFO(ctx context.Context) (cat.VFO, error) {
	if err := h.call(ctx, Call{Op: OpGetVFO}); err != nil {
		return "", err
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return h.backend.active, nil
}

// VFOList returns the advertised VFOs.
func (h *Handle) VFOList(ctx context.Context) ([]cat.VFO, error) {
	if err := h.call(ctx, Call{Op: OpGetVFOList}); err != nil {
		return nil, err
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return slices.Clone(h.backend.vfos), nil
}

// Frequency returns the frequency of vfo.
func (h *Handle) Frequency(ctx context.Context, vfo cat.VFO) (uint64, error) {
	if err := h.call(ctx, Call{Op: OpGetFreq, VFO: vfo}); err != nil {
		return 0, err
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return h.backend.vfoLocked(vfo).frequency, nil
}

// SetFrequency tunes vfo.
func (h *Handle) SetFrequency(ctx context.Context, vfo cat.VFO, hz uint64) error {
	if err := h.call(ctx, Call{Op: OpSetFreq, VFO: vfo, Value: hz}); err != nil {
		return err
	}
	if hz == 0 {
		return cat.NewStatusError(OpSetFreq, -1)
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	h.backend.vfoLocked(vfo).frequency = hz
	return nil
}

// Mode returns the mode of vfo.
func (h *Handle) Mode(ctx context.Context, vfo cat.VFO) (cat.ModeCode, cat.Passband, error) {
	if err := h.call(ctx, Call{Op: OpGetMode, VFO: vfo}); err != nil {
		return cat.ModeNone, 0, err
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	st := h.backend.vfoLocked(vfo)
	return st.mode, st.passband, nil
}

// SetMode changes the mode of vfo.
func (h *Handle) SetMode(ctx context.Context, vfo cat.VFO, mode cat.ModeCode, passband cat.Passband) error {
	if err := h.call(ctx, Call{Op: OpSetMode, VFO: vfo, Value: mode}); err != nil {
		return err
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	st := h.backend.vfoLocked(vfo)
	st.mode = mode
	if passband != cat.PassbandNoChange {
		st.passband = passband
	}
	return nil
}

// PTT returns the transmit state.
func (h *Handle) PTT(ctx context.Context, vfo cat.VFO) (bool, error) {
	if err := h.call(ctx, Call{Op: OpGetPTT, VFO: vfo}); err != nil {
		return false, err
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return h.backend.ptt, nil
}

// SetPTT keys or unkeys the simulated transmitter.
func (h *Handle) SetPTT(ctx context.Context, vfo cat.VFO, on bool) error {
	if err := h.call(ctx, Call{Op: OpSetPTT, VFO: vfo, Value: on}); err != nil {
		return err
	}
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	h.backend.ptt = on
	return nil
}
