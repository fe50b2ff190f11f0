package rig

import (
	"errors"
	"fmt"

	"github.com/radio-control/rigcore/internal/cat"
)

var (
	// ErrNotConnected is returned for operations issued with no open connection.
	ErrNotConnected = errors.New("not connected to radio")
	// ErrUnknownMode is returned by SetMode for modes with no backend mapping.
	ErrUnknownMode = errors.New("mode not recognized")
)

// ConnectReason classifies connection failures.
type ConnectReason string

// Connection failure reasons.
const (
	ReasonAlreadyConnected ConnectReason = "already connected"
	ReasonRigNotFound      ConnectReason = "rig not found"
	ReasonOpenFailed       ConnectReason = "open failed"
)

// ConnectionError reports a failed Connect.
type ConnectionError struct {
	Reason ConnectReason
	Rig    string
	Err    error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("Cannot connect to %s: %s", e.Rig, e.Reason)
	if e.Err != nil {
		msg += ": " + describe(e.Err)
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Code returns the normalized code used in the audit trail.
func (e *ConnectionError) Code() string {
	switch e.Reason {
	case ReasonAlreadyConnected:
		return "ALREADY_CONNECTED"
	case ReasonRigNotFound:
		return "RIG_NOT_FOUND"
	default:
		return "OPEN_FAILED"
	}
}

// OperationError reports a failed command on a connected (or expected to be
// connected) rig. Op is a human-readable verb phrase such as "set frequency".
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("Cannot %s: %s", e.Op, describe(e.Err))
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Code returns the normalized code used in the audit trail.
func (e *OperationError) Code() string {
	var se *cat.StatusError
	switch {
	case errors.Is(e.Err, ErrNotConnected):
		return "NOT_CONNECTED"
	case errors.Is(e.Err, ErrUnknownMode):
		return "UNKNOWN_MODE"
	case errors.As(e.Err, &se):
		return se.Code.Error()
	default:
		return "OPERATION_FAILED"
	}
}

// TransientVFOError describes a first attempt that failed on a specific VFO
// and is about to be retried on the current-VFO selector. It is logged and
// counted, never delivered to listeners.
type TransientVFOError struct {
	Op  string
	VFO cat.VFO
	Err error
}

func (e *TransientVFOError) Error() string {
	return fmt.Sprintf("%s on %s failed, retrying on %s: %v", e.Op, e.VFO, cat.VFOCurrent, e.Err)
}

func (e *TransientVFOError) Unwrap() error {
	return e.Err
}

// describe renders bare backend status errors for people and leaves wrapped
// errors, which already carry context, as they are.
func describe(err error) string {
	if _, ok := err.(*cat.StatusError); ok {
		return cat.Describe(err)
	}
	return err.Error()
}
