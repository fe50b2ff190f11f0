package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultFile is read when Load is given no path and the file exists.
const DefaultFile = "rigcore.yaml"

// Backend types.
const (
	BackendRigctld = "rigctld"
	BackendFake    = "fake"
)

// Config is the complete rigcore configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Rig     RigConfig     `yaml:"rig"`
	Timing  TimingConfig  `yaml:"timing"`
	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit"`
	Metrics MetricsConfig `yaml:"metrics"`
	PttLine PttLineConfig `yaml:"pttLine"`
	API     APIConfig     `yaml:"api"`
}

// BackendConfig selects the CAT backend.
type BackendConfig struct {
	Type        string `yaml:"type"`
	RigctldPath string `yaml:"rigctldPath"`
}

// RigConfig is the connect-time configuration of one rig.
type RigConfig struct {
	// Name is "<manufacturer> <model>" and must match a registry entry.
	Name       string `yaml:"name"`
	SerialPort string `yaml:"serialPort"`
	// BaudRate 0 keeps the backend default.
	BaudRate int `yaml:"baudRate"`
	// CIVAddress is only sent to rigs whose manufacturer uses CI-V addressing.
	// 0 keeps the backend default.
	CIVAddress    int    `yaml:"civAddress"`
	PttType       string `yaml:"pttType"` // CAT, RTS, DTR or NONE
	PttSerialPort string `yaml:"pttSerialPort"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// AuditConfig configures the command audit trail.
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of /metrics; empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// PttLineConfig configures the optional serial PTT line.
type PttLineConfig struct {
	Port         string `yaml:"port"`
	Signal       string `yaml:"signal"` // RTS or DTR
	Inverted     bool   `yaml:"inverted"`
	MonitorInput bool   `yaml:"monitorInput"`
}

// APIConfig configures the HTTP control API served by "rigcore serve".
type APIConfig struct {
	Addr string     `yaml:"addr"`
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig configures bearer token verification. Tokens carry a "scopes"
// claim with any of read, control and telemetry.
type AuthConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Algorithm     string `yaml:"algorithm"` // HS256 or RS256
	SecretFile    string `yaml:"secretFile"`
	PublicKeyFile string `yaml:"publicKeyFile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Type:        BackendRigctld,
			RigctldPath: "rigctld",
		},
		Rig: RigConfig{
			Name:    "Hamlib Dummy",
			PttType: "CAT",
		},
		Timing: *LoadTimingBaseline(),
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Audit: AuditConfig{
			Path:       "rigcore-audit.jsonl",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		PttLine: PttLineConfig{
			Signal: "RTS",
		},
		API: APIConfig{
			Addr: "127.0.0.1:8000",
			Auth: AuthConfig{Algorithm: "HS256"},
		},
	}
}

// Load merges defaults, the YAML file at path and RIGCORE_* environment
// overrides, then validates the result. An empty path reads DefaultFile when
// it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// applyEnvOverrides applies RIGCORE_* variables. Malformed numbers are errors.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	setString(&cfg.Backend.Type, "RIGCORE_BACKEND")
	setString(&cfg.Backend.RigctldPath, "RIGCORE_RIGCTLD_PATH")

	setString(&cfg.Rig.Name, "RIGCORE_RIG_NAME")
	setString(&cfg.Rig.SerialPort, "RIGCORE_SERIAL_PORT")
	errs = append(errs, setInt(&cfg.Rig.BaudRate, "RIGCORE_BAUD_RATE"))
	errs = append(errs, setInt(&cfg.Rig.CIVAddress, "RIGCORE_CIV_ADDRESS"))
	setString(&cfg.Rig.PttType, "RIGCORE_PTT_TYPE")
	setString(&cfg.Rig.PttSerialPort, "RIGCORE_PTT_SERIAL_PORT")

	errs = append(errs, setMs(&cfg.Timing.ConnectTimeoutMs, "RIGCORE_TIMING_CONNECT_TIMEOUT"))
	errs = append(errs, setMs(&cfg.Timing.CommandTimeoutMs, "RIGCORE_TIMING_COMMAND_TIMEOUT"))
	errs = append(errs, setMs(&cfg.Timing.DiscoverTimeoutMs, "RIGCORE_TIMING_DISCOVER_TIMEOUT"))
	errs = append(errs, setMs(&cfg.Timing.StartupTimeoutMs, "RIGCORE_TIMING_STARTUP_TIMEOUT"))
	errs = append(errs, setMs(&cfg.Timing.CloseTimeoutMs, "RIGCORE_TIMING_CLOSE_TIMEOUT"))
	errs = append(errs, setMs(&cfg.Timing.PttPollMs, "RIGCORE_TIMING_PTT_POLL"))
	errs = append(errs, setMs(&cfg.Timing.HeartbeatMs, "RIGCORE_TIMING_HEARTBEAT"))
	errs = append(errs, setInt(&cfg.Timing.EventBufferSize, "RIGCORE_TIMING_EVENT_BUFFER_SIZE"))

	setString(&cfg.Logging.Level, "RIGCORE_LOG_LEVEL")
	setString(&cfg.Logging.Format, "RIGCORE_LOG_FORMAT")
	setString(&cfg.Logging.File, "RIGCORE_LOG_FILE")

	if val := os.Getenv("RIGCORE_AUDIT_PATH"); val != "" {
		cfg.Audit.Path = val
		cfg.Audit.Enabled = true
	}
	setString(&cfg.Metrics.Addr, "RIGCORE_METRICS_ADDR")
	setString(&cfg.PttLine.Port, "RIGCORE_PTT_LINE_PORT")
	setString(&cfg.API.Addr, "RIGCORE_API_ADDR")
	if val := os.Getenv("RIGCORE_API_SECRET_FILE"); val != "" {
		cfg.API.Auth.SecretFile = val
		cfg.API.Auth.Enabled = true
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

// setInt accepts decimal, 0x-prefixed hex and 0o-prefixed octal.
func setInt(dst *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.ParseInt(val, 0, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = int(n)
	return nil
}

// setMs parses a Go duration ("250ms", "5s") into milliseconds.
func setMs(dst *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = int(d / time.Millisecond)
	return nil
}

// GetEnvVar returns the value of an environment variable with a default.
func GetEnvVar(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
