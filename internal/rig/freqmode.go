package rig

import (
	"context"
	"errors"

	"github.com/radio-control/rigcore/internal/cat"
)

// resolveVFO picks the selector for the next device call. Single-VFO rigs
// always use the current-VFO sentinel.
func (c *Controller) resolveVFO() cat.VFO {
	if !c.conn.multipleVFOs {
		return cat.VFOCurrent
	}
	ctx, cancel := c.deviceContext()
	defer cancel()
	vfo, err := c.conn.handle.VFO(ctx)
	if err != nil {
		if !errors.Is(err, cat.ErrNotAvailable) {
			c.logger.Debugf("VFO query failed, using %s: %v", cat.VFOCurrent, err)
		}
		return cat.VFOCurrent
	}
	return vfo
}

// withVFOFallback calls fn with vfo and, if that fails, once more with the
// current-VFO sentinel. Only the last error is returned.
func withVFOFallback[T any](c *Controller, op string, vfo cat.VFO, fn func(context.Context, cat.VFO) (T, error)) (T, error) {
	selectors := []cat.VFO{vfo}
	if vfo != cat.VFOCurrent {
		selectors = append(selectors, cat.VFOCurrent)
	}

	var (
		result T
		err    error
	)
	for i, sel := range selectors {
		ctx, cancel := c.deviceContext()
		result, err = fn(ctx, sel)
		cancel()
		if err == nil {
			return result, nil
		}
		if i < len(selectors)-1 {
			c.metrics.VFOFallback()
			c.logger.Debugf("%v", &TransientVFOError{Op: op, VFO: sel, Err: err})
		}
	}
	return result, err
}

// noResult adapts a call without a result to withVFOFallback.
func noResult(fn func(context.Context, cat.VFO) error) func(context.Context, cat.VFO) (struct{}, error) {
	return func(ctx context.Context, vfo cat.VFO) (struct{}, error) {
		return struct{}{}, fn(ctx, vfo)
	}
}

func (c *Controller) setFrequency(hz uint64) error {
	const op = "set frequency"
	if c.conn == nil {
		return &OperationError{Op: op, Err: ErrNotConnected}
	}

	return c.withInterlock(op, func() error {
		h := c.conn.handle
		_, err := withVFOFallback(c, op, c.resolveVFO(), noResult(func(ctx context.Context, vfo cat.VFO) error {
			return h.SetFrequency(ctx, vfo, hz)
		}))
		if err != nil {
			return &OperationError{Op: op, Err: err}
		}
		c.enqueueRefresh()
		return nil
	})
}

func (c *Controller) setMode(mode Mode) error {
	const op = "set mode"
	if c.conn == nil {
		return &OperationError{Op: op, Err: ErrNotConnected}
	}
	code, ok := mode.catCode()
	if !ok {
		return &OperationError{Op: op, Err: ErrUnknownMode}
	}

	return c.withInterlock(op, func() error {
		h := c.conn.handle
		_, err := withVFOFallback(c, op, c.resolveVFO(), noResult(func(ctx context.Context, vfo cat.VFO) error {
			return h.SetMode(ctx, vfo, code, cat.PassbandNoChange)
		}))
		if err != nil {
			return &OperationError{Op: op, Err: err}
		}
		c.enqueueRefresh()
		return nil
	})
}

func (c *Controller) refreshFreqMode() error {
	const op = "get frequency/mode"
	if c.conn == nil {
		return &OperationError{Op: op, Err: ErrNotConnected}
	}
	h := c.conn.handle
	vfo := c.resolveVFO()

	code, err := withVFOFallback(c, "get mode", vfo, func(ctx context.Context, v cat.VFO) (cat.ModeCode, error) {
		code, _, err := h.Mode(ctx, v)
		return code, err
	})
	if err != nil {
		return &OperationError{Op: "get mode", Err: err}
	}

	hz, err := withVFOFallback(c, "get frequency", vfo, h.Frequency)
	if err != nil {
		return &OperationError{Op: "get frequency", Err: err}
	}

	c.emitFreqMode(hz, modeFromCAT(code))
	return nil
}
