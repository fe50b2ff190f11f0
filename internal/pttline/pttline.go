// Package pttline keys a transmitter through a serial port control line
// (RTS or DTR) and watches CTS for a transmit request from outside, such as a
// foot switch or a sound card interface.
package pttline

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/radio-control/rigcore/internal/config"
)

// ErrMonitoring is returned by MonitorInput when input monitoring already runs.
var ErrMonitoring = errors.New("input monitoring already running")

// Line is a PTT line.
type Line interface {
	SetPTT(on bool) error
	MonitorInput(debounce time.Duration, fn func(on bool)) error
	Close() error
}

// Port is the part of serial.Port used by a Line.
type Port interface {
	SetRTS(rts bool) error
	SetDTR(dtr bool) error
	GetModemStatusBits() (*serial.ModemStatusBits, error)
	Close() error
}

// Opener opens a serial port.
type Opener func(name string, mode *serial.Mode) (Port, error)

func openSerial(name string, mode *serial.Mode) (Port, error) {
	return serial.Open(name, mode)
}

// Signal is the control line used for keying.
type Signal int

// Control lines.
const (
	SignalRTS Signal = iota
	SignalDTR
)

func (s Signal) String() string {
	if s == SignalDTR {
		return "DTR"
	}
	return "RTS"
}

// ParseSignal parses RTS or DTR, ignoring case.
func ParseSignal(s string) (Signal, error) {
	switch strings.ToUpper(s) {
	case "RTS":
		return SignalRTS, nil
	case "DTR":
		return SignalDTR, nil
	default:
		return SignalRTS, fmt.Errorf("invalid signal %q, must be RTS or DTR", s)
	}
}

// SerialLine is a Line on a serial port.
type SerialLine struct {
	port     Port
	name     string
	signal   Signal
	inverted bool
	poll     time.Duration
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	stop   chan struct{}
	wg     sync.WaitGroup
	closed bool
	opener Opener
}

var _ Line = (*SerialLine)(nil)

// Option configures a SerialLine.
type Option func(*SerialLine)

// WithOpener replaces serial.Open.
func WithOpener(o Opener) Option {
	return func(l *SerialLine) { l.opener = o }
}

// WithPollInterval sets how often CTS is sampled. The default is 10ms.
func WithPollInterval(d time.Duration) Option {
	return func(l *SerialLine) {
		if d > 0 {
			l.poll = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(l *SerialLine) { l.logger = log }
}

// Open opens the port named in cfg with the transmitter unkeyed. With
// Inverted set, both the keying line and CTS are active low.
func Open(cfg config.PttLineConfig, opts ...Option) (*SerialLine, error) {
	signal, err := ParseSignal(cfg.Signal)
	if err != nil {
		return nil, err
	}
	l := &SerialLine{
		name:     cfg.Port,
		signal:   signal,
		inverted: cfg.Inverted,
		poll:     10 * time.Millisecond,
		logger:   zap.NewNop().Sugar(),
		opener:   openSerial,
	}
	for _, opt := range opts {
		opt(l)
	}

	idle := cfg.Inverted
	mode := &serial.Mode{
		BaudRate: 9600,
		InitialStatusBits: &serial.ModemOutputBits{
			RTS: signal == SignalRTS && idle,
			DTR: signal == SignalDTR && idle,
		},
	}
	port, err := l.opener(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open PTT port %s: %w", cfg.Port, err)
	}
	l.port = port

	// Not every driver honours the initial bits.
	if err := l.SetPTT(false); err != nil {
		_ = port.Close()
		return nil, err
	}
	l.logger.Infof("PTT line on %s using %s (inverted: %t)", cfg.Port, signal, cfg.Inverted)
	return l, nil
}

// SetPTT drives the keying line.
func (l *SerialLine) SetPTT(on bool) error {
	level := on != l.inverted
	var err error
	switch l.signal {
	case SignalDTR:
		err = l.port.SetDTR(level)
	default:
		err = l.port.SetRTS(level)
	}
	if err != nil {
		return fmt.Errorf("failed to set %s on %s: %w", l.signal, l.name, err)
	}
	return nil
}

func (l *SerialLine) input() (bool, error) {
	bits, err := l.port.GetModemStatusBits()
	if err != nil {
		return false, err
	}
	return bits.CTS != l.inverted, nil
}

// MonitorInput samples CTS and calls fn from a separate goroutine whenever
// the input has changed and then held its new state for debounce. The state
// at the time of the call is taken as the starting point and not reported.
func (l *SerialLine) MonitorInput(debounce time.Duration, fn func(on bool)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("failed to monitor %s: line closed", l.name)
	}
	if l.stop != nil {
		return ErrMonitoring
	}

	initial, err := l.input()
	if err != nil {
		return fmt.Errorf("failed to read CTS on %s: %w", l.name, err)
	}
	l.stop = make(chan struct{})
	l.wg.Add(1)
	go l.monitor(l.stop, initial, debounce, fn)
	return nil
}

func (l *SerialLine) monitor(stop <-chan struct{}, state bool, debounce time.Duration, fn func(bool)) {
	defer l.wg.Done()
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	reported, last := state, state
	since := time.Now()
	failing := false
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			cur, err := l.input()
			if err != nil {
				if !failing {
					l.logger.Warnf("Reading CTS on %s failed: %v", l.name, err)
					failing = true
				}
				continue
			}
			failing = false

			if cur != last {
				last = cur
				since = now
			}
			if cur != reported && now.Sub(since) >= debounce {
				reported = cur
				fn(cur)
			}
		}
	}
}

// Close stops input monitoring, unkeys and closes the port.
func (l *SerialLine) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	if l.stop != nil {
		close(l.stop)
	}
	l.mu.Unlock()
	l.wg.Wait()

	return errors.Join(l.SetPTT(false), l.port.Close())
}
