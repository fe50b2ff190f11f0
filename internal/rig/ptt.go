package rig

import (
	"errors"

	"github.com/radio-control/rigcore/internal/cat"
)

func (c *Controller) setPTT(on bool) error {
	if c.conn == nil {
		return &OperationError{Op: "set PTT", Err: ErrNotConnected}
	}

	ctx, cancel := c.deviceContext()
	defer cancel()
	if err := c.conn.handle.SetPTT(ctx, cat.VFOCurrent, on); err != nil {
		return &OperationError{Op: "set PTT", Err: err}
	}

	c.setTracked(on)
	if !on {
		// The operator may have retuned while transmitting.
		c.enqueueRefresh()
	}
	return nil
}

// setTracked records the transmit state and reports real transitions.
func (c *Controller) setTracked(on bool) {
	if c.conn.ptt == on {
		return
	}
	c.conn.ptt = on
	c.metrics.SetTransmitting(on)
	c.emitPtt(on)
}

// withInterlock runs change with the transmitter unkeyed. When PTT is on it is
// released first; if that fails change does not run. Afterwards PTT is keyed
// again whether or not change succeeded. The release and re-key do not
// change the tracked state or emit events unless re-keying fails.
func (c *Controller) withInterlock(op string, change func() error) error {
	if !c.conn.ptt {
		return change()
	}

	ctx, cancel := c.deviceContext()
	err := c.conn.handle.SetPTT(ctx, cat.VFOCurrent, false)
	cancel()
	if err != nil {
		return &OperationError{Op: op + ": release PTT", Err: err}
	}

	changeErr := change()

	ctx, cancel = c.deviceContext()
	err = c.conn.handle.SetPTT(ctx, cat.VFOCurrent, true)
	cancel()
	if err != nil {
		c.setTracked(false)
		return errors.Join(changeErr, &OperationError{Op: op + ": restore PTT", Err: err})
	}
	return changeErr
}
