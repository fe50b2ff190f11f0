package cat

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized backend errors.
var (
	ErrInvalidParam   = errors.New("INVALID_PARAM")
	ErrConfig         = errors.New("INVALID_CONFIG")
	ErrNotImplemented = errors.New("NOT_IMPLEMENTED")
	ErrTimeout        = errors.New("TIMEOUT")
	ErrIO             = errors.New("IO_ERROR")
	ErrInternal       = errors.New("INTERNAL")
	ErrProtocol       = errors.New("PROTOCOL_ERROR")
	ErrRejected       = errors.New("REJECTED")
	ErrNotAvailable   = errors.New("NOT_AVAILABLE")
	ErrBusy           = errors.New("BUSY")
	ErrInvalidVFO     = errors.New("INVALID_VFO")
	ErrClosed         = errors.New("HANDLE_CLOSED")
)

// StatusErrors maps hamlib status codes (the magnitude of RPRT values) to the
// normalized errors. Codes missing from the table map to ErrInternal.
var StatusErrors = map[int]error{
	1:  ErrInvalidParam, // RIG_EINVAL
	2:  ErrConfig,       // RIG_ECONF
	3:  ErrInternal,     // RIG_ENOMEM
	4:  ErrNotImplemented,
	5:  ErrTimeout,
	6:  ErrIO,
	7:  ErrInternal,
	8:  ErrProtocol,
	9:  ErrRejected,
	10: ErrInvalidParam, // RIG_ETRUNC
	11: ErrNotAvailable,
	12: ErrNotAvailable, // RIG_ENTARGET
	13: ErrIO,           // RIG_BUSERROR
	14: ErrBusy,         // RIG_BUSBUSY
	15: ErrInvalidParam, // RIG_EARG
	16: ErrInvalidVFO,
	17: ErrInvalidParam, // RIG_EDOM
}

// StatusError wraps a normalized error with the backend status that caused it.
type StatusError struct {
	Op     string // backend operation, e.g. "set_freq"
	Status int    // backend status code, negative as reported on the wire
	Code   error  // normalized error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Code, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Code
}

// NewStatusError maps a backend status code to a StatusError. A zero status is
// success and yields nil.
func NewStatusError(op string, status int) error {
	if status == 0 {
		return nil
	}
	code := status
	if code < 0 {
		code = -code
	}
	normalized, ok := StatusErrors[code]
	if !ok {
		normalized = ErrInternal
	}
	return &StatusError{Op: op, Status: status, Code: normalized}
}

// Describe renders err for people: the normalized code in lower case words
// followed by the backend detail.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var se *StatusError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s failed: %s", se.Op, strings.ToLower(strings.ReplaceAll(se.Code.Error(), "_", " ")))
	}
	return err.Error()
}
