package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Response is the envelope of every JSON response.
type Response struct {
	Result        string `json:"result"`
	Data          any    `json:"data,omitempty"`
	Code          string `json:"code,omitempty"`
	Message       string `json:"message,omitempty"`
	Details       any    `json:"details,omitempty"`
	CorrelationID string `json:"correlationId"`
}

// WriteSuccess writes data with status 200.
func WriteSuccess(w http.ResponseWriter, data any) {
	writeResponse(w, http.StatusOK, &Response{Result: "ok", Data: data, CorrelationID: correlationID()})
}

// WriteAccepted writes data with status 202 for queued commands.
func WriteAccepted(w http.ResponseWriter, data any) {
	writeResponse(w, http.StatusAccepted, &Response{Result: "accepted", Data: data, CorrelationID: correlationID()})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details any) {
	writeResponse(w, statusCode, &Response{
		Result:        "error",
		Code:          code,
		Message:       message,
		Details:       details,
		CorrelationID: correlationID(),
	})
}

func writeResponse(w http.ResponseWriter, statusCode int, response *Response) {
	body, err := json.Marshal(response)
	if err != nil {
		http.Error(w, fmt.Sprintf("Internal server error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(body, '\n'))
}

var correlationSeq atomic.Uint64

func correlationID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), correlationSeq.Add(1))
}
