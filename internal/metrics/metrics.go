// Package metrics exposes Prometheus instrumentation for the rig controller.
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector holds the controller metrics.
type Collector struct {
	commands     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	vfoFallbacks prometheus.Counter
	events       *prometheus.CounterVec
	queueDepth   prometheus.Gauge
	connected    prometheus.Gauge
	transmitting prometheus.Gauge
}

// New registers the collector's metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		commands: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rigcore_commands_total",
				Help: "Total number of executed rig commands",
			},
			[]string{"command", "result"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rigcore_command_duration_seconds",
				Help:    "Rig command execution time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		vfoFallbacks: f.NewCounter(
			prometheus.CounterOpts{
				Name: "rigcore_vfo_fallbacks_total",
				Help: "Device calls retried on the current-VFO selector",
			},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rigcore_events_total",
				Help: "Events delivered to listeners",
			},
			[]string{"type"},
		),
		queueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "rigcore_command_queue_depth",
				Help: "Commands waiting for the worker",
			},
		),
		connected: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "rigcore_rig_connected",
				Help: "1 while a rig is connected",
			},
		),
		transmitting: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "rigcore_ptt_active",
				Help: "1 while the transmitter is keyed",
			},
		),
	}
}

// ObserveCommand records one executed command.
func (c *Collector) ObserveCommand(command string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	c.commands.WithLabelValues(command, result).Inc()
	c.duration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// VFOFallback counts one retry on the current-VFO selector.
func (c *Collector) VFOFallback() {
	if c == nil {
		return
	}
	c.vfoFallbacks.Inc()
}

// Event counts one delivered event.
func (c *Collector) Event(eventType string) {
	if c == nil {
		return
	}
	c.events.WithLabelValues(eventType).Inc()
}

// SetQueueDepth reports the number of pending commands.
func (c *Collector) SetQueueDepth(n int) {
	if c == nil {
		return
	}
	c.queueDepth.Set(float64(n))
}

// SetConnected reports the connection state.
func (c *Collector) SetConnected(on bool) {
	if c == nil {
		return
	}
	c.connected.Set(boolToFloat(on))
}

// SetTransmitting reports the tracked PTT state.
func (c *Collector) SetTransmitting(on bool) {
	if c == nil {
		return
	}
	c.transmitting.Set(boolToFloat(on))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
