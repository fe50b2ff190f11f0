package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/radio-control/rigcore/internal/auth"
	"github.com/radio-control/rigcore/internal/cat"
	"github.com/radio-control/rigcore/internal/cat/fake"
	"github.com/radio-control/rigcore/internal/config"
	"github.com/radio-control/rigcore/internal/registry"
	"github.com/radio-control/rigcore/internal/rig"
	"github.com/radio-control/rigcore/internal/telemetry"
)

type testRig struct {
	backend    *fake.Backend
	controller *rig.Controller
	hub        *telemetry.Hub
	state      *State
	server     *Server
}

func newTestRig(t *testing.T, opts ...Option) *testRig {
	t.Helper()
	tr := &testRig{
		backend: fake.NewBackend(),
		hub:     telemetry.NewHub(nil),
		state:   NewState("Hamlib Dummy"),
	}
	reg := registry.New(tr.backend)
	tr.controller = rig.NewController(tr.backend, reg, config.RigConfig{Name: "Hamlib Dummy"}, nil,
		rig.WithListener(tr.hub), rig.WithListener(tr.state))
	tr.server = NewServer(tr.controller, reg, tr.hub, tr.state, opts...)
	t.Cleanup(func() {
		_ = tr.controller.Close()
		tr.hub.Stop()
	})
	return tr
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	tr := newTestRig(t, WithVersion("1.2.3"))
	h := tr.server.Handler()

	w, resp := do(t, h, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK || resp.Result != "ok" {
		t.Fatalf("Expected 200 ok, got %d %+v", w.Code, resp)
	}
	data := resp.Data.(map[string]any)
	if data["rig"] != "Hamlib Dummy" || data["version"] != "1.2.3" {
		t.Errorf("Unexpected health data %v", data)
	}
	if resp.CorrelationID == "" {
		t.Error("Expected correlation ID")
	}

	w, resp = do(t, h, http.MethodPost, "/api/v1/health", "")
	if w.Code != http.StatusMethodNotAllowed || resp.Code != CodeMethodNotAllowed {
		t.Errorf("Expected 405, got %d %+v", w.Code, resp)
	}
	if w.Header().Get("Allow") != http.MethodGet {
		t.Errorf("Allow = %q, want GET", w.Header().Get("Allow"))
	}
}

func TestCapabilitiesListsModes(t *testing.T) {
	tr := newTestRig(t)
	_, resp := do(t, tr.server.Handler(), http.MethodGet, "/api/v1/capabilities", "")

	modes, _ := resp.Data.(map[string]any)["modes"].([]any)
	if len(modes) != len(rig.Modes()) || modes[0] != "USB" {
		t.Errorf("Unexpected modes %v", modes)
	}
}

func TestRigsAreSorted(t *testing.T) {
	b := fake.NewBackend(fake.WithRigs(
		cat.RigDescriptor{Manufacturer: "Yaesu", Model: "FT-991", ID: 1035},
		cat.RigDescriptor{Manufacturer: "icom", Model: "IC-7300", ID: 3073},
		cat.RigDescriptor{Manufacturer: "Elecraft", Model: "K3", ID: 2029},
	))
	s := NewServer(nil, registry.New(b), nil, nil)

	w, resp := do(t, s.Handler(), http.MethodGet, "/api/v1/rigs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	rigs := resp.Data.(map[string]any)["rigs"].([]any)
	var got []string
	for _, r := range rigs {
		got = append(got, r.(map[string]any)["manufacturer"].(string))
	}
	if strings.Join(got, ",") != "Elecraft,icom,Yaesu" {
		t.Errorf("Expected case-insensitive manufacturer order, got %v", got)
	}
}

func TestRigsDiscoveryFailure(t *testing.T) {
	b := fake.NewBackend()
	b.Fail(fake.OpDiscover, "", cat.ErrIO, -1)
	s := NewServer(nil, registry.New(b), nil, nil)

	w, resp := do(t, s.Handler(), http.MethodGet, "/api/v1/rigs", "")
	if w.Code != http.StatusServiceUnavailable || resp.Code != CodeUnavailable {
		t.Errorf("Expected 503 UNAVAILABLE, got %d %+v", w.Code, resp)
	}
}

func TestControlCommands(t *testing.T) {
	tr := newTestRig(t)
	h := tr.server.Handler()

	w, resp := do(t, h, http.MethodPost, "/api/v1/rig/connect", "")
	if w.Code != http.StatusAccepted || resp.Result != "accepted" {
		t.Fatalf("Expected 202 accepted, got %d %+v", w.Code, resp)
	}
	waitFor(t, "connect", func() bool { return !tr.state.Snapshot().ConnectedAt.IsZero() })

	if w, _ := do(t, h, http.MethodPost, "/api/v1/rig/frequency", `{"frequencyHz":7074000}`); w.Code != http.StatusAccepted {
		t.Fatalf("frequency: expected 202, got %d", w.Code)
	}
	if w, _ := do(t, h, http.MethodPost, "/api/v1/rig/mode", `{"mode":"lsb"}`); w.Code != http.StatusAccepted {
		t.Fatalf("mode: expected 202, got %d", w.Code)
	}
	if w, _ := do(t, h, http.MethodPost, "/api/v1/rig/refresh", ""); w.Code != http.StatusAccepted {
		t.Fatalf("refresh: expected 202, got %d", w.Code)
	}
	waitFor(t, "tuning", func() bool {
		snap := tr.state.Snapshot()
		return snap.FrequencyHz == 7074000 && snap.Mode == "LSB"
	})

	if w, _ := do(t, h, http.MethodPost, "/api/v1/rig/ptt", `{"on":true}`); w.Code != http.StatusAccepted {
		t.Fatalf("ptt: expected 202, got %d", w.Code)
	}
	waitFor(t, "transmit", func() bool { return tr.state.Snapshot().Transmitting })

	_, resp = do(t, h, http.MethodGet, "/api/v1/rig", "")
	data := resp.Data.(map[string]any)
	if data["rig"] != "Hamlib Dummy" || data["transmitting"] != true || data["mode"] != "LSB" {
		t.Errorf("Unexpected rig state %v", data)
	}

	if w, _ := do(t, h, http.MethodPost, "/api/v1/rig/disconnect", ""); w.Code != http.StatusAccepted {
		t.Fatalf("disconnect: expected 202, got %d", w.Code)
	}
	_, resp = do(t, h, http.MethodGet, "/api/v1/rig", "")
	data = resp.Data.(map[string]any)
	if _, ok := data["connectedAt"]; ok || data["transmitting"] != false {
		t.Errorf("Expected disconnected rig state, got %v", data)
	}

	if err := tr.controller.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if tr.backend.Transmitting() {
		t.Error("Disconnect must leave the transmitter unkeyed")
	}
}

func TestControlRequestValidation(t *testing.T) {
	tr := newTestRig(t)
	h := tr.server.Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"ptt missing on", http.MethodPost, "/api/v1/rig/ptt", `{}`, http.StatusBadRequest, CodeBadRequest},
		{"ptt unknown field", http.MethodPost, "/api/v1/rig/ptt", `{"on":true,"vfo":"B"}`, http.StatusBadRequest, CodeBadRequest},
		{"ptt trailing data", http.MethodPost, "/api/v1/rig/ptt", `{"on":true}{}`, http.StatusBadRequest, CodeBadRequest},
		{"ptt via GET", http.MethodGet, "/api/v1/rig/ptt", "", http.StatusMethodNotAllowed, CodeMethodNotAllowed},
		{"frequency missing", http.MethodPost, "/api/v1/rig/frequency", `{}`, http.StatusBadRequest, CodeBadRequest},
		{"zero frequency", http.MethodPost, "/api/v1/rig/frequency", `{"frequencyHz":0}`, http.StatusBadRequest, CodeInvalidRange},
		{"negative frequency", http.MethodPost, "/api/v1/rig/frequency", `{"frequencyHz":-5}`, http.StatusBadRequest, CodeBadRequest},
		{"mode missing", http.MethodPost, "/api/v1/rig/mode", `{}`, http.StatusBadRequest, CodeBadRequest},
		{"empty mode", http.MethodPost, "/api/v1/rig/mode", `{"mode":""}`, http.StatusBadRequest, CodeBadRequest},
		{"unsupported mode", http.MethodPost, "/api/v1/rig/mode", `{"mode":"CW"}`, http.StatusBadRequest, CodeInvalidRange},
		{"connect via GET", http.MethodGet, "/api/v1/rig/connect", "", http.StatusMethodNotAllowed, CodeMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, h, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus || resp.Code != tt.wantCode {
				t.Errorf("Expected %d %s, got %d %+v", tt.wantStatus, tt.wantCode, w.Code, resp)
			}
		})
	}

	if err := tr.controller.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if calls := tr.backend.CallsOf(fake.OpOpen, fake.OpSetPTT, fake.OpSetFreq, fake.OpSetMode); len(calls) != 0 {
		t.Errorf("Rejected requests must not reach the backend, got %v", calls)
	}
}

type tokens map[string]*auth.Claims

func (tk tokens) VerifyToken(token string) (*auth.Claims, error) {
	if c, ok := tk[token]; ok {
		return c, nil
	}
	return nil, errors.New("token verification failed")
}

func TestAuthScopes(t *testing.T) {
	m := auth.NewMiddleware(tokens{
		"viewer":   {Subject: "viewer-1", Scopes: []string{auth.ScopeRead, auth.ScopeTelemetry}},
		"operator": {Subject: "operator-1", Scopes: []string{auth.ScopeRead, auth.ScopeControl}},
	}, nil)
	tr := newTestRig(t, WithAuth(m))
	h := tr.server.Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
	}{
		{"health is open", http.MethodGet, "/api/v1/health", "", "", http.StatusOK},
		{"state needs a token", http.MethodGet, "/api/v1/rig", "", "", http.StatusUnauthorized},
		{"viewer reads state", http.MethodGet, "/api/v1/rig", "", "viewer", http.StatusOK},
		{"viewer cannot key", http.MethodPost, "/api/v1/rig/ptt", `{"on":true}`, "viewer", http.StatusForbidden},
		{"operator keys", http.MethodPost, "/api/v1/rig/ptt", `{"on":false}`, "operator", http.StatusAccepted},
		{"operator lacks telemetry", http.MethodGet, "/api/v1/telemetry", "", "operator", http.StatusForbidden},
		{"forged token", http.MethodGet, "/api/v1/rigs", "", "forged", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var header []string
			if tt.token != "" {
				header = []string{"Authorization", "Bearer " + tt.token}
			}
			w, _ := do(t, h, tt.method, tt.path, tt.body, header...)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("rigcore_connected 1\n"))
	})
	tr := newTestRig(t, WithMetricsHandler(metrics))

	w, _ := do(t, tr.server.Handler(), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "rigcore_connected") {
		t.Errorf("Expected metrics body, got %d %q", w.Code, w.Body.String())
	}
}

type sseEvent struct {
	id, typ, data string
}

// readSSE returns the next event, skipping heartbeat comments when
// skipComments is set.
func readSSE(t *testing.T, r *bufio.Reader, skipComments bool) (sseEvent, string) {
	t.Helper()
	var (
		e       sseEvent
		comment string
	)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if e.typ != "" {
				return e, ""
			}
			if comment != "" && !skipComments {
				return e, comment
			}
			comment = ""
		case strings.HasPrefix(line, ":"):
			comment = line
		case strings.HasPrefix(line, "id: "):
			e.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			e.typ = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			e.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, url, lastID string) *bufio.Reader {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url+"/api/v1/telemetry", nil)
	if err != nil {
		t.Fatal(err)
	}
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET telemetry failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}
	return bufio.NewReader(resp.Body)
}

func TestTelemetryStream(t *testing.T) {
	tr := newTestRig(t, WithHeartbeat(20*time.Millisecond))
	ts := httptest.NewServer(tr.server.Handler())
	t.Cleanup(ts.Close)
	// Streams end when the hub stops, so it must stop before the server closes.
	t.Cleanup(tr.hub.Stop)

	stream := openStream(t, ts.URL, "")
	tr.controller.Connect()

	e, _ := readSSE(t, stream, true)
	if e.typ != rig.EventRigConnected || e.id != "1" {
		t.Fatalf("Expected rigConnected with ID 1, got %+v", e)
	}
	e, _ = readSSE(t, stream, true)
	if e.typ != rig.EventFreqModeChanged {
		t.Fatalf("Expected freqModeChanged, got %+v", e)
	}
	var event telemetry.Event
	if err := json.Unmarshal([]byte(e.data), &event); err != nil {
		t.Fatalf("Failed to decode event data: %v", err)
	}
	if event.Rig != "Hamlib Dummy" || event.Data["mode"] != "USB" {
		t.Errorf("Unexpected event %+v", event)
	}

	if _, comment := readSSE(t, stream, false); !strings.HasPrefix(comment, ": heartbeat") {
		t.Errorf("Expected heartbeat comment, got %q", comment)
	}

	// A reconnecting client resumes after the last ID it saw.
	resumed := openStream(t, ts.URL, "1")
	e, _ = readSSE(t, resumed, true)
	if e.id != "2" || e.typ != rig.EventFreqModeChanged {
		t.Errorf("Expected replay of event 2, got %+v", e)
	}
}

func TestTelemetryRejectsBadLastEventID(t *testing.T) {
	tr := newTestRig(t)
	w, resp := do(t, tr.server.Handler(), http.MethodGet, "/api/v1/telemetry", "", "Last-Event-ID", "abc")
	if w.Code != http.StatusBadRequest || resp.Code != CodeBadRequest {
		t.Errorf("Expected 400, got %d %+v", w.Code, resp)
	}
}

func TestTelemetryAfterHubStop(t *testing.T) {
	tr := newTestRig(t)
	tr.hub.Stop()
	w, _ := do(t, tr.server.Handler(), http.MethodGet, "/api/v1/telemetry", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestStateSnapshot(t *testing.T) {
	s := NewState("Icom IC-7300")
	s.RigConnected(nil)
	s.FreqModeChanged(nil, 7074000, rig.ModeDIGU)
	s.PttChanged(nil, true)
	s.RigError(nil, errors.New("Cannot set PTT: REJECTED"))

	snap := s.Snapshot()
	if snap.Rig != "Icom IC-7300" || snap.FrequencyHz != 7074000 || snap.Mode != "DIGU" || !snap.Transmitting {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if snap.LastError == "" || snap.ConnectedAt.IsZero() || snap.UpdatedAt.IsZero() {
		t.Errorf("Unexpected snapshot %+v", snap)
	}

	s.RigConnected(nil)
	if s.Snapshot().LastError != "" {
		t.Error("A new connection clears the last error")
	}

	s.Disconnected()
	if snap := s.Snapshot(); !snap.ConnectedAt.IsZero() || snap.Transmitting {
		t.Errorf("Expected disconnected snapshot, got %+v", snap)
	}
	if snap := s.Snapshot(); snap.FrequencyHz != 7074000 {
		t.Errorf("Disconnect keeps the last tuning, got %+v", snap)
	}
}

func TestStartStop(t *testing.T) {
	tr := newTestRig(t)

	done := make(chan error, 1)
	go func() { done <- tr.server.Start("127.0.0.1:0") }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	waitFor(t, "server start", func() bool {
		tr.server.mu.Lock()
		defer tr.server.mu.Unlock()
		return tr.server.httpServer != nil
	})
	if err := tr.server.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}

	// Stop before Start makes Start return at once.
	s := NewServer(tr.controller, nil, nil, nil)
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if err := s.Start("127.0.0.1:0"); err != nil {
		t.Errorf("Start() after Stop() = %v, want nil", err)
	}
}
