package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/radio-control/rigcore/internal/auth"
	"github.com/radio-control/rigcore/internal/rig"
)

const apiV1 = "/api/v1"

// RegisterRoutes registers all endpoints on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Health stays open for probes.
	mux.HandleFunc(apiV1+"/health", s.handleHealth)

	mux.HandleFunc(apiV1+"/capabilities", s.guard(auth.ScopeRead, s.handleCapabilities))
	mux.HandleFunc(apiV1+"/rigs", s.guard(auth.ScopeRead, s.handleRigs))
	mux.HandleFunc(apiV1+"/rig", s.guard(auth.ScopeRead, s.handleRig))

	mux.HandleFunc(apiV1+"/rig/connect", s.guard(auth.ScopeControl, s.command("connect", RigPort.Connect)))
	mux.HandleFunc(apiV1+"/rig/disconnect", s.guard(auth.ScopeControl, s.command("disconnect", s.disconnect)))
	mux.HandleFunc(apiV1+"/rig/refresh", s.guard(auth.ScopeControl, s.command("refresh", RigPort.RequestCurrentFrequencyMode)))
	mux.HandleFunc(apiV1+"/rig/ptt", s.guard(auth.ScopeControl, s.handleSetPTT))
	mux.HandleFunc(apiV1+"/rig/frequency", s.guard(auth.ScopeControl, s.handleSetFrequency))
	mux.HandleFunc(apiV1+"/rig/mode", s.guard(auth.ScopeControl, s.handleSetMode))

	mux.HandleFunc(apiV1+"/telemetry", s.guard(auth.ScopeTelemetry, s.handleTelemetry))

	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
}

// guard wraps h with the scope check when auth is configured.
func (s *Server) guard(scope string, h http.HandlerFunc) http.HandlerFunc {
	if s.auth == nil {
		return h
	}
	return s.auth.RequireScope(scope, h)
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	WriteError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Only "+method+" method is allowed", nil)
	return false
}

// decodeStrict decodes exactly one JSON object with no unknown fields.
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("Malformed JSON or unknown fields")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return badRequest("Trailing data after JSON object")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	WriteSuccess(w, map[string]any{
		"status":    "ok",
		"rig":       s.rig.Name(),
		"uptimeSec": time.Since(s.startTime).Seconds(),
		"version":   s.version,
	})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	modes := make([]string, 0, len(rig.Modes()))
	for _, m := range rig.Modes() {
		modes = append(modes, m.String())
	}
	WriteSuccess(w, map[string]any{
		"telemetry": []string{"sse"},
		"commands":  []string{"connect", "disconnect", "refresh", "ptt", "frequency", "mode"},
		"modes":     modes,
		"version":   s.version,
	})
}

func (s *Server) handleRigs(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	rigs, err := s.catalog.Discover(r.Context())
	if err != nil {
		WriteError(w, http.StatusServiceUnavailable, CodeUnavailable, err.Error(), nil)
		return
	}
	WriteSuccess(w, map[string]any{"rigs": rigs})
}

func (s *Server) handleRig(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	WriteSuccess(w, s.state.Snapshot())
}

// command handles a parameterless control endpoint.
func (s *Server) command(name string, run func(RigPort)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		run(s.rig)
		s.logger.Debugf("Queued %s for %s", name, s.rig.Name())
		WriteAccepted(w, map[string]any{"command": name})
	}
}

func (s *Server) disconnect(p RigPort) {
	p.Disconnect()
	s.state.Disconnected()
}

func (s *Server) handleSetPTT(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req struct {
		On *bool `json:"on"`
	}
	if err := decodeStrict(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.On == nil {
		writeErr(w, badRequest("on is required"))
		return
	}
	s.rig.SetPTT(*req.On)
	WriteAccepted(w, map[string]any{"command": "ptt", "on": *req.On})
}

func (s *Server) handleSetFrequency(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req struct {
		FrequencyHz *uint64 `json:"frequencyHz"`
	}
	if err := decodeStrict(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.FrequencyHz == nil {
		writeErr(w, badRequest("frequencyHz is required"))
		return
	}
	hz := *req.FrequencyHz
	if hz == 0 {
		WriteError(w, http.StatusBadRequest, CodeInvalidRange, "frequencyHz must be positive", nil)
		return
	}
	s.rig.SetFrequency(hz)
	WriteAccepted(w, map[string]any{"command": "frequency", "frequencyHz": hz})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeStrict(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.Mode == "" {
		writeErr(w, badRequest("mode is required"))
		return
	}
	mode, err := rig.ParseMode(req.Mode)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.rig.SetMode(mode)
	WriteAccepted(w, map[string]any{"command": "mode", "mode": mode.String()})
}
