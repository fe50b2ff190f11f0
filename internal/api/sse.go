package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/radio-control/rigcore/internal/telemetry"
)

// handleTelemetry streams rig events as Server-Sent Events until the client
// goes away or the hub stops.
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, CodeInternal, "Streaming not supported", nil)
		return
	}

	var lastID int64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 0 {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "Invalid Last-Event-ID", nil)
			return
		}
		lastID = id
	}

	sub, err := s.telemetry.Subscribe(r.Context(), s.rig.Name(), lastID)
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, CodeUnavailable, "Telemetry service not available", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	s.logger.Debugf("Telemetry client %s connected (last ID %d)", sub.ID, lastID)

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case e, ok := <-sub.Events:
			if !ok {
				return
			}
			if err := writeEvent(w, e); err != nil {
				s.logger.Debugf("Telemetry client %s write failed: %v", sub.ID, err)
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

// writeEvent writes one event in SSE framing. The data line carries the
// whole event so that clients see the rig and timestamp too.
func writeEvent(w io.Writer, e telemetry.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.ID, e.Type, data)
	return err
}
