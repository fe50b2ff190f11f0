package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/radio-control/rigcore/internal/cat"
	"github.com/radio-control/rigcore/internal/config"
)

// Outcomes.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeError   = "ERROR"
)

// Entry is a single audit log line.
type Entry struct {
	Timestamp time.Time      `json:"ts"`
	Rig       string         `json:"rig"`
	Action    string         `json:"action"`
	Params    map[string]any `json:"params,omitempty"`
	Outcome   string         `json:"outcome"`
	Code      string         `json:"code"`
	Error     string         `json:"error,omitempty"`
	LatencyMs int64          `json:"latencyMs"`
}

// Coder is implemented by errors that carry a normalized code.
type Coder interface {
	Code() string
}

type paramsKey struct{}

// WithParams attaches command parameters to ctx for the next LogAction.
func WithParams(ctx context.Context, params map[string]any) context.Context {
	return context.WithValue(ctx, paramsKey{}, params)
}

// Logger appends entries to a rotating JSONL file.
type Logger struct {
	mu     sync.Mutex
	out    *lumberjack.Logger
	closed bool
}

// NewLogger opens the audit file described by cfg, creating its directory.
func NewLogger(cfg config.AuditConfig) (*Logger, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("audit path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	out := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	// Open eagerly so permission problems surface at start-up.
	if _, err := out.Write(nil); err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &Logger{out: out}, nil
}

// LogAction records one executed command. err is nil on success.
func (l *Logger) LogAction(ctx context.Context, action, rig string, err error, latency time.Duration) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Rig:       rig,
		Action:    action,
		Outcome:   OutcomeSuccess,
		Code:      Code(err),
		LatencyMs: latency.Milliseconds(),
	}
	if params, ok := ctx.Value(paramsKey{}).(map[string]any); ok {
		entry.Params = params
	}
	if err != nil {
		entry.Outcome = OutcomeError
		entry.Error = err.Error()
	}
	l.writeEntry(entry)
}

func (l *Logger) writeEntry(entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal audit entry: %v\n", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write audit entry: %v\n", err)
	}
}

// Code maps err to its normalized code.
func Code(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	var se *cat.StatusError
	if errors.As(err, &se) {
		return se.Code.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return cat.ErrTimeout.Error()
	}
	return OutcomeError
}

// FilePath returns the path of the active audit file.
func (l *Logger) FilePath() string {
	return l.out.Filename
}

// Rotate closes the active file, renames it with a timestamp and opens a new one.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.out.Rotate(); err != nil {
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}
	return nil
}

// Close closes the audit file. Later entries are dropped.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.out.Close()
}
