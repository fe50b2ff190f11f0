// Package cattest provides a backend-agnostic conformance suite for CAT
// backends. Any cat.Backend must pass it before the controller relies on it.
package cattest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radio-control/rigcore/internal/cat"
)

// Expectations describes the rig the suite drives.
type Expectations struct {
	// Rig is the descriptor name to open; empty opens the first discovered rig.
	Rig string
	// Config is passed to Open.
	Config cat.OpenConfig
	// Frequency is a frequency the rig accepts, in Hz.
	Frequency uint64
	// Mode is a mode the rig accepts.
	Mode cat.ModeCode
	// Timeout bounds every device call.
	Timeout time.Duration
}

// RunConformance runs the suite. newBackend is called once per subtest so
// state does not leak between them.
func RunConformance(t *testing.T, newBackend func(t *testing.T) cat.Backend, exp Expectations) {
	t.Helper()
	if exp.Timeout == 0 {
		exp.Timeout = 5 * time.Second
	}
	if exp.Frequency == 0 {
		exp.Frequency = 14313000
	}
	if exp.Mode == cat.ModeNone {
		exp.Mode = cat.ModeUSB
	}

	t.Run("Discover", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), exp.Timeout)
		defer cancel()

		rigs, err := newBackend(t).Discover(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, rigs)
		for _, rig := range rigs {
			assert.NotEmpty(t, rig.Manufacturer, "rig %d has no manufacturer", rig.ID)
			assert.NotEmpty(t, rig.Model, "rig %d has no model", rig.ID)
		}
	})

	t.Run("VFOs", func(t *testing.T) {
		h, ctx := open(t, newBackend(t), exp)

		vfo, err := h.VFO(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, vfo)

		vfos, err := h.VFOList(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, vfos)
	})

	t.Run("FrequencyRoundTrip", func(t *testing.T) {
		h, ctx := open(t, newBackend(t), exp)

		require.NoError(t, h.SetFrequency(ctx, cat.VFOCurrent, exp.Frequency))
		got, err := h.Frequency(ctx, cat.VFOCurrent)
		require.NoError(t, err)
		assert.Equal(t, exp.Frequency, got)
	})

	t.Run("ModeRoundTrip", func(t *testing.T) {
		h, ctx := open(t, newBackend(t), exp)

		require.NoError(t, h.SetMode(ctx, cat.VFOCurrent, exp.Mode, cat.PassbandNoChange))
		got, _, err := h.Mode(ctx, cat.VFOCurrent)
		require.NoError(t, err)
		assert.Equal(t, exp.Mode, got)
	})

	t.Run("PTTRoundTrip", func(t *testing.T) {
		h, ctx := open(t, newBackend(t), exp)

		for _, state := range []bool{true, false} {
			require.NoError(t, h.SetPTT(ctx, cat.VFOCurrent, state))
			got, err := h.PTT(ctx, cat.VFOCurrent)
			require.NoError(t, err)
			assert.Equal(t, state, got)
		}
	})

	t.Run("InvalidFrequencyIsNormalized", func(t *testing.T) {
		h, ctx := open(t, newBackend(t), exp)

		err := h.SetFrequency(ctx, cat.VFOCurrent, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, cat.ErrInvalidParam), "want ErrInvalidParam, got %v", err)
	})

	t.Run("CallsAfterCloseFail", func(t *testing.T) {
		backend := newBackend(t)
		ctx, cancel := context.WithTimeout(context.Background(), exp.Timeout)
		defer cancel()

		h, err := backend.Open(ctx, descriptor(ctx, t, backend, exp.Rig), exp.Config)
		require.NoError(t, err)
		require.NoError(t, h.Close())

		_, err = h.Frequency(ctx, cat.VFOCurrent)
		assert.Error(t, err)
	})
}

func open(t *testing.T, backend cat.Backend, exp Expectations) (cat.Handle, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), exp.Timeout)
	t.Cleanup(cancel)

	h, err := backend.Open(ctx, descriptor(ctx, t, backend, exp.Rig), exp.Config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h, ctx
}

func descriptor(ctx context.Context, t *testing.T, backend cat.Backend, name string) cat.RigDescriptor {
	t.Helper()
	rigs, err := backend.Discover(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, rigs)
	if name == "" {
		return rigs[0]
	}
	for _, rig := range rigs {
		if rig.Name() == name {
			return rig
		}
	}
	t.Fatalf("rig %q not discovered", name)
	return cat.RigDescriptor{}
}
