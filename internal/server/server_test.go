package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Iron-Ham/squadron/internal/config"
	"github.com/Iron-Ham/squadron/internal/orchestrator"
	"github.com/Iron-Ham/squadron/internal/server"
	"github.com/Iron-Ham/squadron/internal/session/sessiontest"
)

type harness struct {
	srv  *httptest.Server
	fake *sessiontest.FakeManager
}

func newHarness(t *testing.T, scfg config.ServerConfig) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "squadron.db")
	cfg.Agent.Command = "claude"
	cfg.Session.QueryTimeoutMs = 200
	cfg.Session.KillGraceMs = 0

	fake := sessiontest.NewFakeManager()
	app, err := orchestrator.NewWithComponents(context.Background(), cfg, nil, orchestrator.Components{Sessions: fake})
	if err != nil {
		t.Fatalf("NewWithComponents() error = %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	srv := httptest.NewServer(server.New(app.Facade, scfg, nil).Handler())
	t.Cleanup(srv.Close)
	return &harness{srv: srv, fake: fake}
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

var worker1 = map[string]any{
	"team_member_id": "worker-1",
	"name":           "Worker One",
	"role":           "worker",
	"model":          "sonnet",
	"prompt":         "Build step three.",
}

func TestServer_Health(t *testing.T) {
	h := newHarness(t, config.ServerConfig{})
	status, body := h.do(t, http.MethodGet, "/healthz", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("GET /healthz = %d %v, want 200 ok", status, body)
	}
}

func TestServer_MemberLifecycle(t *testing.T) {
	h := newHarness(t, config.ServerConfig{})

	status, body := h.do(t, http.MethodPost, "/api/members", worker1)
	if status != http.StatusCreated || body["success"] != true {
		t.Fatalf("POST /api/members = %d %v, want 201 success", status, body)
	}

	status, body = h.do(t, http.MethodGet, "/api/members/worker-1", nil)
	if status != http.StatusOK || body["running"] != true {
		t.Errorf("GET /api/members/worker-1 = %d %v, want running", status, body)
	}

	status, body = h.do(t, http.MethodGet, "/api/members", nil)
	members, _ := body["members"].([]any)
	if status != http.StatusOK || len(members) != 1 {
		t.Errorf("GET /api/members = %d %v, want one member", status, body)
	}

	status, _ = h.do(t, http.MethodPost, "/api/members/worker-1/intervene", map[string]any{"text": "status?"})
	if status != http.StatusOK {
		t.Errorf("POST intervene = %d, want 200", status)
	}

	status, body = h.do(t, http.MethodDelete, "/api/members/worker-1", nil)
	if status != http.StatusOK || body["success"] != true {
		t.Errorf("DELETE /api/members/worker-1 = %d %v, want success", status, body)
	}

	status, body = h.do(t, http.MethodGet, "/api/members/worker-1", nil)
	if status != http.StatusOK || body["running"] != false {
		t.Errorf("GET after kill = %d %v, want not running", status, body)
	}

	status, body = h.do(t, http.MethodGet, "/api/members?active=true", nil)
	members, _ = body["members"].([]any)
	if status != http.StatusOK || len(members) != 0 {
		t.Errorf("GET /api/members?active=true = %d %v, want none", status, body)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	h := newHarness(t, config.ServerConfig{})
	if status, _ := h.do(t, http.MethodPost, "/api/members", worker1); status != http.StatusCreated {
		t.Fatalf("deploy status = %d", status)
	}
	if status, _ := h.do(t, http.MethodPost, "/api/claims", map[string]any{"task_key": "lint", "team_member_id": "worker-1"}); status != http.StatusOK {
		t.Fatalf("claim status = %d", status)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"unknown member", http.MethodGet, "/api/members/ghost", nil, http.StatusNotFound, "not_found"},
		{"malformed member", http.MethodGet, "/api/members/bad%20id", nil, http.StatusBadRequest, "invalid_input"},
		{"duplicate deploy", http.MethodPost, "/api/members", worker1, http.StatusConflict, "already_exists"},
		{"unknown field", http.MethodPost, "/api/claims", map[string]any{"task": "lint"}, http.StatusBadRequest, "invalid_input"},
		{"non-owner release", http.MethodPost, "/api/claims/release", map[string]any{"task_key": "lint", "team_member_id": "worker-2"}, http.StatusConflict, "not_owner"},
		{"release unclaimed", http.MethodPost, "/api/claims/release", map[string]any{"task_key": "none", "team_member_id": "worker-2"}, http.StatusNotFound, "not_found"},
		{"ttl past max", http.MethodPost, "/api/messages", map[string]any{"from": "a", "to": "b", "content": "x", "ttl_seconds": int64(9223372036)}, http.StatusBadRequest, "invalid_input"},
		{"within overflows", http.MethodGet, "/api/team?within=9223372037", nil, http.StatusBadRequest, "invalid_input"},
		{"negative within", http.MethodGet, "/api/team?within=-5", nil, http.StatusBadRequest, "invalid_input"},
		{"bad lines", http.MethodGet, "/api/members/worker-1/screen?lines=abc", nil, http.StatusBadRequest, "invalid_input"},
		{"empty message", http.MethodPost, "/api/messages", map[string]any{"from": "a", "to": "b", "content": ""}, http.StatusBadRequest, "invalid_input"},
		{"unknown help request", http.MethodPost, "/api/help/nope/responses", map[string]any{"from": "helper-1", "content": "hi"}, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := h.do(t, tt.method, tt.path, tt.body)
			if status != tt.wantStatus || errorCode(body) != tt.wantCode {
				t.Errorf("%s %s = %d %q, want %d %q", tt.method, tt.path, status, errorCode(body), tt.wantStatus, tt.wantCode)
			}
		})
	}

	h.fake.Exit("squadron-worker-1")
	status, body := h.do(t, http.MethodPost, "/api/members/worker-1/intervene", map[string]any{"text": "hello"})
	if status != http.StatusUnprocessableEntity || errorCode(body) != "injection_failed" {
		t.Errorf("intervene on dead member = %d %v, want 422 injection_failed", status, body)
	}
}

func TestServer_Messaging(t *testing.T) {
	h := newHarness(t, config.ServerConfig{})

	if status, _ := h.do(t, http.MethodPost, "/api/messages", map[string]any{"from": "overseer", "to": "worker-1", "content": "take lint"}); status != http.StatusCreated {
		t.Fatalf("send status = %d", status)
	}
	if status, _ := h.do(t, http.MethodPost, "/api/broadcasts", map[string]any{"from": "overseer", "content": "standup", "priority": "urgent"}); status != http.StatusCreated {
		t.Fatalf("broadcast status = %d", status)
	}

	status, body := h.do(t, http.MethodGet, "/api/messages?member=worker-1&by_priority=true&peek=true", nil)
	msgs, _ := body["messages"].([]any)
	if status != http.StatusOK || len(msgs) != 2 {
		t.Fatalf("listen = %d %v, want two messages", status, body)
	}
	first, _ := msgs[0].(map[string]any)
	if first["content"] != "standup" {
		t.Errorf("first message = %v, want the urgent broadcast", first)
	}

	status, body = h.do(t, http.MethodGet, "/api/messages?member=worker-1&types=direct", nil)
	msgs, _ = body["messages"].([]any)
	if status != http.StatusOK || len(msgs) != 1 {
		t.Errorf("listen types=direct = %d %v, want one message", status, body)
	}

	if status, _ := h.do(t, http.MethodPost, "/api/heartbeats", map[string]any{"team_member_id": "worker-1", "status": "linting"}); status != http.StatusCreated {
		t.Fatalf("heartbeat status = %d", status)
	}
	status, body = h.do(t, http.MethodGet, "/api/team?within=60", nil)
	team, _ := body["members"].([]any)
	if status != http.StatusOK || len(team) != 1 {
		t.Errorf("team = %d %v, want one record", status, body)
	}
}

func TestServer_ClaimKeyWithSlash(t *testing.T) {
	h := newHarness(t, config.ServerConfig{})
	key := "build/step-3"

	status, body := h.do(t, http.MethodPost, "/api/claims", map[string]any{"task_key": key, "team_member_id": "worker-1"})
	if status != http.StatusOK || body["granted"] != true {
		t.Fatalf("claim %s = %d %v, want granted", key, status, body)
	}

	status, body = h.do(t, http.MethodPost, "/api/claims/release", map[string]any{"task_key": key, "team_member_id": "worker-1"})
	if status != http.StatusOK {
		t.Fatalf("release %s = %d %v, want %d", key, status, body, http.StatusOK)
	}

	status, body = h.do(t, http.MethodGet, "/api/claims", nil)
	active, _ := body["claims"].([]any)
	if status != http.StatusOK || len(active) != 0 {
		t.Errorf("active claims = %d %v, want none", status, body)
	}
}

func TestServer_RateLimit(t *testing.T) {
	h := newHarness(t, config.ServerConfig{RateLimit: 0.001, RateBurst: 1})

	if status, _ := h.do(t, http.MethodGet, "/healthz", nil); status != http.StatusOK {
		t.Fatalf("first request = %d, want 200", status)
	}
	status, body := h.do(t, http.MethodGet, "/healthz", nil)
	if status != http.StatusTooManyRequests || errorCode(body) != "rate_limited" {
		t.Errorf("second request = %d %v, want 429 rate_limited", status, body)
	}
}

func TestServer_EventStream(t *testing.T) {
	h := newHarness(t, config.ServerConfig{})

	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/api/events?types=claim.granted"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// Subscription happens after the upgrade completes; retry until the
	// claim event arrives.
	deadline := time.Now().Add(5 * time.Second)
	keys := 0
	got := make(chan map[string]any, 1)
	go func() {
		var env map[string]any
		if err := conn.ReadJSON(&env); err == nil {
			got <- env
		}
	}()
	for time.Now().Before(deadline) {
		keys++
		h.do(t, http.MethodPost, "/api/broadcasts", map[string]any{"from": "overseer", "content": "noise"})
		h.do(t, http.MethodPost, "/api/claims", map[string]any{"task_key": "task-" + string(rune('a'+keys)), "team_member_id": "worker-1"})
		select {
		case env := <-got:
			if env["type"] != "claim.granted" {
				t.Errorf("event type = %v, want claim.granted", env["type"])
			}
			data, _ := env["data"].(map[string]any)
			if data["owner"] != "worker-1" {
				t.Errorf("event data = %v, want owner worker-1", data)
			}
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
	t.Fatal("no claim.granted event received")
}

func TestServer_EventStreamRejectsForeignOrigin(t *testing.T) {
	h := newHarness(t, config.ServerConfig{AllowedOrigins: []string{"dashboard.local"}})
	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/api/events"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Error("Dial() with foreign origin succeeded, want rejection")
	}

	header = http.Header{"Origin": []string{"http://dashboard.local:5173"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Dial() with allowed origin error = %v", err)
	}
	conn.Close()
}
