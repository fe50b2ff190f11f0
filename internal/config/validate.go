package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/radio-control/rigcore/internal/cat"
)

// Validate checks the merged configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateBackend(&cfg.Backend); err != nil {
		return fmt.Errorf("backend validation failed: %w", err)
	}
	if err := ValidateRig(&cfg.Rig); err != nil {
		return fmt.Errorf("rig validation failed: %w", err)
	}
	if err := ValidateTiming(&cfg.Timing); err != nil {
		return fmt.Errorf("timing validation failed: %w", err)
	}
	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}
	if cfg.Audit.Enabled && cfg.Audit.Path == "" {
		return fmt.Errorf("audit validation failed: path is required when enabled")
	}
	if err := validatePttLine(&cfg.PttLine); err != nil {
		return fmt.Errorf("ptt line validation failed: %w", err)
	}
	if err := validateAPI(&cfg.API); err != nil {
		return fmt.Errorf("api validation failed: %w", err)
	}
	return nil
}

func validateBackend(b *BackendConfig) error {
	switch b.Type {
	case BackendRigctld:
		if b.RigctldPath == "" {
			return fmt.Errorf("rigctld path is required")
		}
	case BackendFake:
	default:
		return fmt.Errorf("invalid backend %q, must be one of: %s, %s", b.Type, BackendRigctld, BackendFake)
	}
	return nil
}

// ValidateRig checks the connect-time settings of a rig.
func ValidateRig(r *RigConfig) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rig name is required")
	}
	if r.BaudRate < 0 {
		return fmt.Errorf("baud rate must be non-negative, got %d", r.BaudRate)
	}
	// CI-V addresses are a single byte.
	if r.CIVAddress < 0 || r.CIVAddress > 0xFF {
		return fmt.Errorf("CI-V address 0x%X out of range [0x00, 0xFF]", r.CIVAddress)
	}
	if _, err := cat.ParsePttType(r.PttType); err != nil {
		return err
	}
	return nil
}

// ValidateTiming checks that every timeout is positive.
func ValidateTiming(t *TimingConfig) error {
	if t == nil {
		return fmt.Errorf("config cannot be nil")
	}
	for name, v := range map[string]int{
		"connect timeout":  t.ConnectTimeoutMs,
		"command timeout":  t.CommandTimeoutMs,
		"discover timeout": t.DiscoverTimeoutMs,
		"startup timeout":  t.StartupTimeoutMs,
		"close timeout":    t.CloseTimeoutMs,
		"ptt poll":         t.PttPollMs,
		"heartbeat":        t.HeartbeatMs,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %dms", name, v)
		}
	}
	if t.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", t.EventBufferSize)
	}
	if t.CommandTimeoutMs > t.ConnectTimeoutMs {
		return fmt.Errorf("command timeout %dms must not exceed connect timeout %dms", t.CommandTimeoutMs, t.ConnectTimeoutMs)
	}
	return nil
}

func validateLogging(l *LoggingConfig) error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(l.Level)) {
		return fmt.Errorf("invalid level %q", l.Level)
	}
	if l.Format != "console" && l.Format != "json" {
		return fmt.Errorf("invalid format %q, must be console or json", l.Format)
	}
	return nil
}

func validatePttLine(p *PttLineConfig) error {
	if p.Port == "" {
		return nil
	}
	if !strings.EqualFold(p.Signal, "RTS") && !strings.EqualFold(p.Signal, "DTR") {
		return fmt.Errorf("invalid signal %q, must be RTS or DTR", p.Signal)
	}
	return nil
}

func validateAPI(a *APIConfig) error {
	if !a.Auth.Enabled {
		return nil
	}
	switch a.Auth.Algorithm {
	case "HS256":
		if a.Auth.SecretFile == "" {
			return fmt.Errorf("HS256 requires secretFile")
		}
	case "RS256":
		if a.Auth.PublicKeyFile == "" {
			return fmt.Errorf("RS256 requires publicKeyFile")
		}
	default:
		return fmt.Errorf("invalid auth algorithm %q, must be HS256 or RS256", a.Auth.Algorithm)
	}
	return nil
}
