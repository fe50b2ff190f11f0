package rig

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radio-control/rigcore/internal/cat"
	"github.com/radio-control/rigcore/internal/cat/fake"
	"github.com/radio-control/rigcore/internal/config"
	"github.com/radio-control/rigcore/internal/metrics"
	"github.com/radio-control/rigcore/internal/registry"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type freqMode struct {
	hz   uint64
	mode Mode
}

// recorder is a Listener that keeps every event.
type recorder struct {
	mu        sync.Mutex
	connected int
	errs      []error
	ptt       []bool
	freqModes []freqMode
}

func (r *recorder) RigConnected(*Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected++
}

func (r *recorder) RigError(_ *Controller, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) PttChanged(_ *Controller, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ptt = append(r.ptt, on)
}

func (r *recorder) FreqModeChanged(_ *Controller, hz uint64, mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.freqModes = append(r.freqModes, freqMode{hz: hz, mode: mode})
}

func (r *recorder) Connected() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) PTT() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.ptt...)
}

func (r *recorder) FreqModes() []freqMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]freqMode(nil), r.freqModes...)
}

func (r *recorder) sawFreqMode(want freqMode) bool {
	for _, fm := range r.FreqModes() {
		if fm == want {
			return true
		}
	}
	return false
}

func dummyRig() config.RigConfig {
	return config.RigConfig{Name: "Hamlib Dummy", SerialPort: "/dev/ttyUSB0", PttType: "CAT"}
}

func newTestController(t *testing.T, b cat.Backend, rigCfg config.RigConfig, opts ...Option) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]Option{WithListener(rec)}, opts...)
	c := NewController(b, registry.New(b), rigCfg, config.LoadTimingBaseline(), opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, rec
}

// connect connects c and waits for the connected event.
func connect(t *testing.T, c *Controller, rec *recorder) {
	t.Helper()
	c.Connect()
	require.Eventually(t, func() bool { return rec.Connected() == 1 }, waitFor, tick)
}

func callStrings(calls []fake.Call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.String())
	}
	return out
}

func TestCommandsRunInSubmissionOrder(t *testing.T) {
	b := fake.NewBackend()
	c, _ := newTestController(t, b, dummyRig())

	c.Connect()
	c.SetFrequency(7074000)
	c.SetMode(ModeLSB)
	c.SetPTT(true)
	c.SetPTT(false)
	c.Disconnect()
	require.NoError(t, c.Close())

	got := callStrings(b.CallsOf(fake.OpOpen, fake.OpSetFreq, fake.OpSetMode, fake.OpSetPTT, fake.OpClose))
	assert.Equal(t, []string{
		"open(, Hamlib Dummy)",
		"set_freq(VFOA, 7074000)",
		"set_mode(VFOA, LSB)",
		"set_ptt(currVFO, true)",
		"set_ptt(currVFO, false)",
		"close",
	}, got)
}

func TestConnectProbesVFOs(t *testing.T) {
	tests := []struct {
		name    string
		opts    []fake.Option
		wantVFO cat.VFO
	}{
		{name: "dual VFO", wantVFO: cat.VFOA},
		{name: "single VFO", opts: []fake.Option{fake.WithSingleVFO()}, wantVFO: cat.VFOCurrent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fake.NewBackend(tt.opts...)
			c, rec := newTestController(t, b, dummyRig())
			connect(t, c, rec)

			c.SetFrequency(14313000)
			require.NoError(t, c.Close())

			calls := b.CallsOf(fake.OpSetFreq)
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantVFO, calls[0].VFO)
			assert.Empty(t, rec.Errors())
		})
	}
}

func TestConnectTwiceOpensOnce(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())

	c.Connect()
	c.Connect()
	require.NoError(t, c.Close())

	assert.Equal(t, 1, b.Count(fake.OpOpen))
	assert.Equal(t, 1, rec.Connected())

	errs := rec.Errors()
	require.Len(t, errs, 1)
	var connErr *ConnectionError
	require.ErrorAs(t, errs[0], &connErr)
	assert.Equal(t, ReasonAlreadyConnected, connErr.Reason)
	assert.Equal(t, "Cannot connect to Hamlib Dummy: already connected", errs[0].Error())
}

func TestConnectUnknownRig(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, config.RigConfig{Name: "Nope Radio"})

	c.Connect()
	require.NoError(t, c.Close())

	assert.Zero(t, b.Count(fake.OpOpen))
	errs := rec.Errors()
	require.Len(t, errs, 1)
	var connErr *ConnectionError
	require.ErrorAs(t, errs[0], &connErr)
	assert.Equal(t, ReasonRigNotFound, connErr.Reason)
	assert.Equal(t, "RIG_NOT_FOUND", connErr.Code())
}

func TestConnectOpenFailureLeavesDisconnected(t *testing.T) {
	b := fake.NewBackend()
	b.Fail(fake.OpOpen, "", cat.ErrIO, 1)
	c, rec := newTestController(t, b, dummyRig())

	c.Connect()
	c.SetFrequency(7074000)
	c.Connect()
	require.NoError(t, c.Close())

	errs := rec.Errors()
	require.Len(t, errs, 2)
	var connErr *ConnectionError
	require.ErrorAs(t, errs[0], &connErr)
	assert.Equal(t, ReasonOpenFailed, connErr.Reason)
	assert.ErrorIs(t, errs[0], cat.ErrIO)
	assert.ErrorIs(t, errs[1], ErrNotConnected)

	assert.Equal(t, 2, b.Count(fake.OpOpen))
	assert.Equal(t, 1, rec.Connected())
}

func TestOpenConfig(t *testing.T) {
	tests := []struct {
		name string
		rig  config.RigConfig
		want cat.OpenConfig
	}{
		{
			name: "icom gets CI-V address",
			rig: config.RigConfig{
				Name: "Icom IC-7300", SerialPort: "/dev/ttyUSB1", BaudRate: 19200,
				CIVAddress: 0x94, PttType: "RTS", PttSerialPort: "/dev/ttyUSB2",
			},
			want: cat.OpenConfig{
				CIVAddress: "0x94", PortPath: "/dev/ttyUSB1", BaudRate: 19200,
				PttType: cat.PttRTS, PttPortPath: "/dev/ttyUSB2",
			},
		},
		{
			name: "other manufacturers ignore CI-V address",
			rig:  config.RigConfig{Name: "Yaesu FT-991", SerialPort: "/dev/ttyUSB0", CIVAddress: 0x94},
			want: cat.OpenConfig{PortPath: "/dev/ttyUSB0", PttType: cat.PttCAT},
		},
		{
			name: "icom without address",
			rig:  config.RigConfig{Name: "Icom IC-7300", SerialPort: "/dev/ttyUSB0", PttType: "none"},
			want: cat.OpenConfig{PortPath: "/dev/ttyUSB0", PttType: cat.PttNone},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fake.NewBackend()
			c, rec := newTestController(t, b, tt.rig)
			connect(t, c, rec)
			require.NoError(t, c.Close())

			assert.Equal(t, []cat.OpenConfig{tt.want}, b.OpenConfigs())
		})
	}
}

func TestOperationsRequireConnection(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())

	c.SetFrequency(7074000)
	c.SetMode(ModeUSB)
	c.SetPTT(true)
	c.RequestCurrentFrequencyMode()
	c.Disconnect()
	require.NoError(t, c.Close())

	errs := rec.Errors()
	require.Len(t, errs, 4)
	for _, err := range errs {
		var opErr *OperationError
		require.ErrorAs(t, err, &opErr)
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.Equal(t, "NOT_CONNECTED", opErr.Code())
	}
	assert.Equal(t, "Cannot set frequency: not connected to radio", errs[0].Error())
	assert.Equal(t, []fake.Call{{Op: fake.OpDiscover}}, b.Calls())
}

func TestExampleScenario(t *testing.T) {
	rig := cat.RigDescriptor{Manufacturer: "ExampleMfg", Model: "Model100", ID: 100}
	b := fake.NewBackend(fake.WithRigs(rig))
	c, rec := newTestController(t, b, config.RigConfig{Name: "ExampleMfg Model100"})

	connect(t, c, rec)
	c.SetFrequency(14313000)

	require.Eventually(t, func() bool {
		return rec.sawFreqMode(freqMode{hz: 14313000, mode: ModeUSB})
	}, waitFor, tick)
	require.NoError(t, c.Close())

	assert.Equal(t, []string{"set_freq(VFOA, 14313000)"}, callStrings(b.CallsOf(fake.OpSetFreq)))
	assert.Empty(t, rec.Errors())
}

func TestConnectSeedsFrequencyAndMode(t *testing.T) {
	b := fake.NewBackend()
	b.Tune(cat.VFOA, 3573000, cat.ModePKTUSB)
	c, rec := newTestController(t, b, dummyRig())

	c.Connect()
	require.Eventually(t, func() bool {
		return rec.sawFreqMode(freqMode{hz: 3573000, mode: ModeDIGU})
	}, waitFor, tick)

	// Mode is read before frequency.
	reads := b.CallsOf(fake.OpGetMode, fake.OpGetFreq)
	require.Len(t, reads, 2)
	assert.Equal(t, fake.OpGetMode, reads[0].Op)
	assert.Equal(t, fake.OpGetFreq, reads[1].Op)
}

func TestRefreshReportsUnmappedModeAsUnknown(t *testing.T) {
	b := fake.NewBackend()
	b.Tune(cat.VFOA, 7030000, cat.ModeCW)
	c, rec := newTestController(t, b, dummyRig())

	c.Connect()
	require.Eventually(t, func() bool {
		return rec.sawFreqMode(freqMode{hz: 7030000, mode: ModeUnknown})
	}, waitFor, tick)
	assert.Empty(t, rec.Errors())
}

func TestInterlockBracketsFrequencyChange(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	c.SetPTT(true)
	c.SetFrequency(14313000)
	c.SetMode(ModeDIGU)
	require.NoError(t, c.Close())

	assert.Equal(t, []string{
		"set_ptt(currVFO, true)",
		"set_ptt(currVFO, false)",
		"set_freq(VFOA, 14313000)",
		"set_ptt(currVFO, true)",
		"set_ptt(currVFO, false)",
		"set_mode(VFOA, PKTUSB)",
		"set_ptt(currVFO, true)",
		// released by the final disconnect
		"set_ptt(currVFO, false)",
	}, callStrings(b.CallsOf(fake.OpSetPTT, fake.OpSetFreq, fake.OpSetMode)))

	assert.Equal(t, []bool{true, false}, rec.PTT())
	assert.Empty(t, rec.Errors())
	assert.False(t, b.Transmitting())
}

func TestInterlockAbortsWhenReleaseFails(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	c.SetPTT(true)
	require.Eventually(t, b.Transmitting, waitFor, tick)
	b.Fail(fake.OpSetPTT, "", cat.ErrRejected, 1)

	c.SetFrequency(14313000)
	require.Eventually(t, func() bool { return len(rec.Errors()) == 1 }, waitFor, tick)

	assert.Zero(t, b.Count(fake.OpSetFreq))
	assert.Equal(t, []bool{true}, rec.PTT())
	assert.ErrorIs(t, rec.Errors()[0], cat.ErrRejected)
	assert.Contains(t, rec.Errors()[0].Error(), "release PTT")
	assert.True(t, b.Transmitting())

	// Still keyed, so a later change is bracketed again.
	c.SetFrequency(7074000)
	require.NoError(t, c.Close())
	assert.Equal(t, []string{
		"set_ptt(currVFO, true)",
		"set_ptt(currVFO, false)",
		"set_ptt(currVFO, false)",
		"set_freq(VFOA, 7074000)",
		"set_ptt(currVFO, true)",
		"set_ptt(currVFO, false)",
	}, callStrings(b.CallsOf(fake.OpSetPTT, fake.OpSetFreq)))
}

func TestSetPTTTwiceEmitsOnce(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	c.SetPTT(true)
	c.SetPTT(true)
	require.Eventually(t, func() bool { return b.Count(fake.OpSetPTT) == 2 }, waitFor, tick)

	assert.Equal(t, []bool{true}, rec.PTT())
}

func TestSetPTTFailureKeepsTrackedState(t *testing.T) {
	b := fake.NewBackend()
	b.Fail(fake.OpSetPTT, "", cat.NewStatusError(fake.OpSetPTT, -9), 1)
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	c.SetPTT(true)
	require.NoError(t, c.Close())

	assert.Empty(t, rec.PTT())
	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cat.ErrRejected)
	assert.Equal(t, "Cannot set PTT: set_ptt failed: rejected", errs[0].Error())

	// Never keyed, so teardown does not release.
	assert.Equal(t, 1, b.Count(fake.OpSetPTT))
}

func TestPTTOffRefreshesFrequencyAndMode(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	c.SetPTT(true)
	require.Eventually(t, b.Transmitting, waitFor, tick)
	b.Tune(cat.VFOA, 7100000, cat.ModeLSB)
	c.SetPTT(false)

	require.Eventually(t, func() bool {
		return rec.sawFreqMode(freqMode{hz: 7100000, mode: ModeLSB})
	}, waitFor, tick)
	assert.Equal(t, []bool{true, false}, rec.PTT())
}

func TestVFOFallbackRecovers(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig(), WithMetrics(metrics.New(reg)))
	connect(t, c, rec)

	b.Fail(fake.OpSetFreq, cat.VFOA, cat.NewStatusError(fake.OpSetFreq, -16), 1)
	c.SetFrequency(14313000)
	require.Eventually(t, func() bool {
		return rec.sawFreqMode(freqMode{hz: 14313000, mode: ModeUSB})
	}, waitFor, tick)
	require.NoError(t, c.Close())

	assert.Equal(t, []string{
		"set_freq(VFOA, 14313000)",
		"set_freq(currVFO, 14313000)",
	}, callStrings(b.CallsOf(fake.OpSetFreq)))
	assert.Empty(t, rec.Errors())
	assert.Equal(t, 1.0, gathered(t, reg, "rigcore_vfo_fallbacks_total"))
}

func TestVFOFallbackExhausted(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	b.Fail(fake.OpSetMode, "", cat.ErrNotImplemented, -1)
	c.SetMode(ModeFM)
	require.NoError(t, c.Close())

	assert.Equal(t, 2, b.Count(fake.OpSetMode))
	errs := rec.Errors()
	require.Len(t, errs, 1)
	var opErr *OperationError
	require.ErrorAs(t, errs[0], &opErr)
	assert.Equal(t, "set mode", opErr.Op)
	assert.ErrorIs(t, errs[0], cat.ErrNotImplemented)
}

func TestSingleVFONoFallback(t *testing.T) {
	b := fake.NewBackend(fake.WithSingleVFO())
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	b.Fail(fake.OpSetFreq, "", cat.ErrIO, -1)
	c.SetFrequency(14313000)
	require.NoError(t, c.Close())

	assert.Equal(t, 1, b.Count(fake.OpSetFreq))
	require.Len(t, rec.Errors(), 1)
}

func TestSetModeUnknown(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	c.SetMode(ModeUnknown)
	require.NoError(t, c.Close())

	assert.Zero(t, b.Count(fake.OpSetMode))
	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "Cannot set mode: mode not recognized", errs[0].Error())
}

func TestDisconnectReleasesPTT(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	c.SetPTT(true)
	c.Disconnect()
	c.Disconnect()
	require.NoError(t, c.Close())

	assert.Equal(t, []string{
		"set_ptt(currVFO, true)",
		"set_ptt(currVFO, false)",
		"close",
	}, callStrings(b.CallsOf(fake.OpSetPTT, fake.OpClose)))
	assert.Equal(t, []bool{true, false}, rec.PTT())
}

func TestReconnectAfterDisconnect(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	c.Disconnect()
	c.Connect()
	require.Eventually(t, func() bool { return rec.Connected() == 2 }, waitFor, tick)
	require.NoError(t, c.Close())

	assert.Equal(t, 2, b.Count(fake.OpOpen))
	assert.Equal(t, 2, b.Count(fake.OpClose))
}

func TestCloseWaitsForBackendClose(t *testing.T) {
	b := fake.NewBackend()
	var closed atomic.Bool
	b.BeforeCall = func(call fake.Call) {
		if call.Op == fake.OpClose {
			time.Sleep(50 * time.Millisecond)
			closed.Store(true)
		}
	}
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	require.NoError(t, c.Close())
	assert.True(t, closed.Load())
	assert.Equal(t, 1, b.Count(fake.OpClose))

	require.NoError(t, c.Close())
	assert.Equal(t, 1, b.Count(fake.OpClose))
}

func TestCloseRunsQueuedCommands(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())

	c.Connect()
	c.SetFrequency(7074000)
	c.SetFrequency(14313000)
	require.NoError(t, c.Close())

	assert.Equal(t, 1, rec.Connected())
	assert.Equal(t, 2, b.Count(fake.OpSetFreq))
	assert.Equal(t, 1, b.Count(fake.OpClose))
}

func TestCloseReportsTeardownError(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())
	connect(t, c, rec)

	b.Fail(fake.OpClose, "", cat.ErrIO, 1)
	err := c.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, cat.ErrIO)

	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], cat.ErrIO)
	assert.Equal(t, err, c.Close())
}

func TestCommandsAfterCloseAreDropped(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())
	require.NoError(t, c.Close())

	c.Connect()
	c.SetPTT(true)

	assert.Zero(t, b.Count(fake.OpOpen))
	assert.Zero(t, rec.Connected())
	assert.Empty(t, rec.Errors())
}

func TestCloseRefusesCommandsRacingTeardown(t *testing.T) {
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig())

	opening := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	b.BeforeCall = func(call fake.Call) {
		if call.Op == fake.OpOpen {
			once.Do(func() {
				close(opening)
				<-release
			})
		}
	}

	c.Connect()
	<-opening

	closed := make(chan error, 1)
	go func() { closed <- c.Close() }()
	require.Eventually(t, func() bool {
		c.exec.mu.Lock()
		defer c.exec.mu.Unlock()
		return c.exec.stopping
	}, waitFor, tick)

	// A submit that passed the closing check before Close started.
	assert.False(t, c.exec.enqueue(Command{Kind: CmdConnect}))
	assert.False(t, c.exec.enqueue(Command{Kind: CmdRefreshFreqMode}))

	close(release)
	require.NoError(t, <-closed)

	assert.Equal(t, 1, b.Count(fake.OpOpen))
	assert.Equal(t, 1, b.Count(fake.OpClose))
	assert.Empty(t, rec.Errors())
}

func TestPanickingListenerDoesNotStopWorker(t *testing.T) {
	b := fake.NewBackend()
	panicky := ListenerFuncs{OnRigConnected: func(*Controller) { panic("boom") }}
	c, rec := newTestController(t, b, dummyRig(), WithListener(panicky))

	c.Connect()
	c.SetFrequency(7074000)
	require.NoError(t, c.Close())

	assert.Equal(t, 1, rec.Connected())
	assert.Equal(t, 1, b.Count(fake.OpSetFreq))
}

type auditEntry struct {
	action string
	rig    string
	err    error
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *auditRecorder) LogAction(_ context.Context, action, rig string, err error, _ time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, rig: rig, err: err})
}

func TestAuditRecordsCommands(t *testing.T) {
	b := fake.NewBackend()
	a := &auditRecorder{}
	c, _ := newTestController(t, b, dummyRig(), WithAuditLogger(a))

	c.SetPTT(true)
	c.Connect()
	require.NoError(t, c.Close())

	a.mu.Lock()
	defer a.mu.Unlock()
	require.GreaterOrEqual(t, len(a.entries), 3)
	assert.Equal(t, "set_ptt", a.entries[0].action)
	assert.ErrorIs(t, a.entries[0].err, ErrNotConnected)
	assert.Equal(t, "connect", a.entries[1].action)
	assert.NoError(t, a.entries[1].err)
	assert.Equal(t, "Hamlib Dummy", a.entries[1].rig)
	assert.Equal(t, "teardown", a.entries[len(a.entries)-1].action)
}

func TestControllerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := fake.NewBackend()
	c, rec := newTestController(t, b, dummyRig(), WithMetrics(metrics.New(reg)))
	connect(t, c, rec)
	assert.Equal(t, 1.0, gathered(t, reg, "rigcore_rig_connected"))

	c.SetPTT(true)
	require.Eventually(t, func() bool { return gathered(t, reg, "rigcore_ptt_active") == 1 }, waitFor, tick)

	require.NoError(t, c.Close())
	assert.Equal(t, 0.0, gathered(t, reg, "rigcore_rig_connected"))
	assert.Equal(t, 0.0, gathered(t, reg, "rigcore_ptt_active"))
	assert.Equal(t, 0.0, gathered(t, reg, "rigcore_command_queue_depth"))
}

// gathered returns the sum of every sample of the named counter or gauge.
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			}
		}
	}
	return sum
}

func ExampleController() {
	rig := cat.RigDescriptor{Manufacturer: "ExampleMfg", Model: "Model100", ID: 100}
	b := fake.NewBackend(fake.WithRigs(rig))

	tuned := make(chan freqMode, 4)
	c := NewController(b, registry.New(b), config.RigConfig{Name: rig.Name()}, nil,
		WithListener(ListenerFuncs{
			OnFreqModeChanged: func(_ *Controller, hz uint64, mode Mode) {
				tuned <- freqMode{hz: hz, mode: mode}
			},
		}))

	c.Connect()
	<-tuned
	c.SetFrequency(14313000)
	fm := <-tuned
	_ = c.Close()

	fmt.Println(fm.hz, fm.mode)
	// Output: 14313000 USB
}
