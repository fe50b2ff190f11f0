package api

import (
	"errors"
	"net/http"

	"github.com/radio-control/rigcore/internal/cat"
	"github.com/radio-control/rigcore/internal/rig"
)

// Error codes.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeInvalidRange     = "INVALID_RANGE"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL"
)

// APIError is an error with its HTTP status.
type APIError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

func badRequest(message string) *APIError {
	return &APIError{Code: CodeBadRequest, Message: message, StatusCode: http.StatusBadRequest}
}

// writeErr maps err to a status and error envelope.
func writeErr(w http.ResponseWriter, err error) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		WriteError(w, apiErr.StatusCode, apiErr.Code, apiErr.Message, nil)
	case errors.Is(err, rig.ErrUnknownMode):
		WriteError(w, http.StatusBadRequest, CodeInvalidRange, err.Error(), nil)
	case errors.Is(err, cat.ErrTimeout), errors.Is(err, cat.ErrIO):
		WriteError(w, http.StatusServiceUnavailable, CodeUnavailable, err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, CodeInternal, "Internal server error",
			map[string]any{"original": err.Error()})
	}
}
