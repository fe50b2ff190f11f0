package config

import "time"

// TimingConfig holds the timeouts and buffer sizes of the control core.
// Durations are stored in milliseconds.
type TimingConfig struct {
	ConnectTimeoutMs  int `yaml:"connectTimeoutMs"`
	CommandTimeoutMs  int `yaml:"commandTimeoutMs"`
	DiscoverTimeoutMs int `yaml:"discoverTimeoutMs"`
	StartupTimeoutMs  int `yaml:"startupTimeoutMs"` // rigctld daemon start
	CloseTimeoutMs    int `yaml:"closeTimeoutMs"`
	PttPollMs         int `yaml:"pttPollMs"`
	HeartbeatMs       int `yaml:"heartbeatMs"` // SSE keep-alive
	EventBufferSize   int `yaml:"eventBufferSize"`
}

// LoadTimingBaseline returns the default timing values.
func LoadTimingBaseline() *TimingConfig {
	return &TimingConfig{
		ConnectTimeoutMs:  10000,
		CommandTimeoutMs:  3000,
		DiscoverTimeoutMs: 10000,
		StartupTimeoutMs:  5000,
		CloseTimeoutMs:    15000,
		PttPollMs:         10,
		HeartbeatMs:       15000,
		EventBufferSize:   50,
	}
}

// ConnectTimeout bounds backend Open plus the capability probe.
func (t *TimingConfig) ConnectTimeout() time.Duration {
	return ms(t.ConnectTimeoutMs)
}

// CommandTimeout bounds each device call of a command.
func (t *TimingConfig) CommandTimeout() time.Duration {
	return ms(t.CommandTimeoutMs)
}

// DiscoverTimeout bounds rig catalog enumeration.
func (t *TimingConfig) DiscoverTimeout() time.Duration {
	return ms(t.DiscoverTimeoutMs)
}

// StartupTimeout bounds how long a backend daemon may take to accept connections.
func (t *TimingConfig) StartupTimeout() time.Duration {
	return ms(t.StartupTimeoutMs)
}

// CloseTimeout bounds how long the CLI waits for teardown.
func (t *TimingConfig) CloseTimeout() time.Duration {
	return ms(t.CloseTimeoutMs)
}

// PttPoll is the PTT line input polling period.
func (t *TimingConfig) PttPoll() time.Duration {
	return ms(t.PttPollMs)
}

// Heartbeat is the interval of SSE heartbeat comments on idle streams.
func (t *TimingConfig) Heartbeat() time.Duration {
	return ms(t.HeartbeatMs)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
