package rig

// Event type names, used for metrics and telemetry.
const (
	EventRigConnected    = "rigConnected"
	EventRigError        = "rigError"
	EventPttChanged      = "pttChanged"
	EventFreqModeChanged = "freqModeChanged"
)

// Listener receives controller events. Methods are called from the
// controller's worker goroutine, one at a time, and must not block for long:
// the next command waits until they return.
type Listener interface {
	RigConnected(c *Controller)
	RigError(c *Controller, err error)
	PttChanged(c *Controller, on bool)
	FreqModeChanged(c *Controller, hz uint64, mode Mode)
}

// ListenerFuncs adapts functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	OnRigConnected    func(c *Controller)
	OnRigError        func(c *Controller, err error)
	OnPttChanged      func(c *Controller, on bool)
	OnFreqModeChanged func(c *Controller, hz uint64, mode Mode)
}

func (f ListenerFuncs) RigConnected(c *Controller) {
	if f.OnRigConnected != nil {
		f.OnRigConnected(c)
	}
}

func (f ListenerFuncs) RigError(c *Controller, err error) {
	if f.OnRigError != nil {
		f.OnRigError(c, err)
	}
}

func (f ListenerFuncs) PttChanged(c *Controller, on bool) {
	if f.OnPttChanged != nil {
		f.OnPttChanged(c, on)
	}
}

func (f ListenerFuncs) FreqModeChanged(c *Controller, hz uint64, mode Mode) {
	if f.OnFreqModeChanged != nil {
		f.OnFreqModeChanged(c, hz, mode)
	}
}

// Listeners fans events out to several listeners in order.
type Listeners []Listener

func (ls Listeners) RigConnected(c *Controller) {
	for _, l := range ls {
		l.RigConnected(c)
	}
}

func (ls Listeners) RigError(c *Controller, err error) {
	for _, l := range ls {
		l.RigError(c, err)
	}
}

func (ls Listeners) PttChanged(c *Controller, on bool) {
	for _, l := range ls {
		l.PttChanged(c, on)
	}
}

func (ls Listeners) FreqModeChanged(c *Controller, hz uint64, mode Mode) {
	for _, l := range ls {
		l.FreqModeChanged(c, hz, mode)
	}
}

// notify delivers one event to every listener. A panicking listener is
// logged and skipped so that it cannot stop the worker.
func (c *Controller) notify(event string, deliver func(Listener)) {
	c.metrics.Event(event)
	for _, l := range c.listeners {
		c.deliver(event, l, deliver)
	}
}

func (c *Controller) deliver(event string, l Listener, deliver func(Listener)) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("Listener panicked on %s: %v", event, r)
		}
	}()
	deliver(l)
}

func (c *Controller) emitConnected() {
	c.notify(EventRigConnected, func(l Listener) { l.RigConnected(c) })
}

func (c *Controller) emitError(err error) {
	c.logger.Warnf("%s: %v", c.rigCfg.Name, err)
	c.notify(EventRigError, func(l Listener) { l.RigError(c, err) })
}

func (c *Controller) emitPtt(on bool) {
	c.notify(EventPttChanged, func(l Listener) { l.PttChanged(c, on) })
}

func (c *Controller) emitFreqMode(hz uint64, mode Mode) {
	c.notify(EventFreqModeChanged, func(l Listener) { l.FreqModeChanged(c, hz, mode) })
}
