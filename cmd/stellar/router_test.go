package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/edumarques81/stellar-offline-player/internal/domain/player"
	"github.com/edumarques81/stellar-offline-player/internal/domain/session"
	"github.com/edumarques81/stellar-offline-player/internal/domain/track"
	"github.com/edumarques81/stellar-offline-player/internal/infra/env"
	"github.com/edumarques81/stellar-offline-player/internal/infra/history"
	"github.com/edumarques81/stellar-offline-player/internal/infra/sim"
	"github.com/edumarques81/stellar-offline-player/internal/infra/store"
	"github.com/edumarques81/stellar-offline-player/internal/version"
)

type passthrough struct{}

func (passthrough) Resolve(_ context.Context, t track.Track, _ player.SoundQuality) (string, error) {
	return t.URI, nil
}

func newTestAPI(t *testing.T) api {
	t.Helper()
	h, err := session.New(context.Background(), session.Options{
		PlayerID: "router-test",
		Backend:  store.NewMemory(),
		Decoders: sim.NewFactory(),
		Resolver: passthrough{},
	})
	if err != nil {
		t.Fatalf("session.New failed: %v", err)
	}
	t.Cleanup(h.Shutdown)
	return api{
		host:    h,
		history: history.New(afero.NewMemMapFs(), "/history.json"),
		phone:   env.NewPhone(),
		noisy:   env.NewNoisy(),
		focus:   env.NewFocus(),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	router := newRouter(a)

	rec := do(t, router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["player"] != "router-test" {
		t.Errorf("expected player router-test, got %v", body["player"])
	}

	a.host.Shutdown()
	if rec := do(t, router, http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after shutdown, got %d", rec.Code)
	}
}

func TestHealthReportsDecoderFailure(t *testing.T) {
	a := newTestAPI(t)
	a.ping = func() error { return os.ErrDeadlineExceeded }

	if rec := do(t, newRouter(a), http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestVersionEndpoint(t *testing.T) {
	rec := do(t, newRouter(newTestAPI(t)), http.MethodGet, "/api/v1/version", "")

	var info version.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Version != version.Version {
		t.Errorf("expected version %s, got %s", version.Version, info.Version)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected CORS header, got %q", got)
	}
}

func TestCommandEndpoint(t *testing.T) {
	a := newTestAPI(t)
	router := newRouter(a)

	body := `{"action":"` + session.ActionSetPlayMode + `","args":{"mode":` + jsonInt(player.ModeShuffle.ID()) + `}}`
	if rec := do(t, router, http.MethodPost, "/api/v1/command", body); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	waitFor(t, "shuffle mode", func() bool { return a.host.State().Mode == player.ModeShuffle })

	rec := do(t, router, http.MethodGet, "/api/v1/state", "")
	var state map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state["playMode"] != player.ModeShuffle.String() {
		t.Errorf("expected playMode %s, got %v", player.ModeShuffle.String(), state["playMode"])
	}
}

func TestCommandEndpointRejects(t *testing.T) {
	router := newRouter(newTestAPI(t))

	tests := []struct {
		name string
		body string
		code int
	}{
		{"not json", "play", http.StatusBadRequest},
		{"no action", `{"args":{}}`, http.StatusBadRequest},
		{"unknown action", `{"action":"levitate"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(t, router, http.MethodPost, "/api/v1/command", tc.body); rec.Code != tc.code {
				t.Errorf("expected %d, got %d", tc.code, rec.Code)
			}
		})
	}
}

func TestQueueEndpoint(t *testing.T) {
	rec := do(t, newRouter(newTestAPI(t)), http.MethodGet, "/api/v1/queue", "")
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["editable"] != true {
		t.Errorf("expected an editable empty queue, got %v", body)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	a := newTestAPI(t)
	_ = a.history.Record(context.Background(), track.Track{URI: "file:///a.flac", Title: "A"})
	router := newRouter(a)

	rec := do(t, router, http.MethodGet, "/api/v1/history?limit=5", "")
	var entries []history.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Track.Title != "A" {
		t.Errorf("expected one entry for A, got %+v", entries)
	}

	if rec := do(t, router, http.MethodGet, "/api/v1/history?limit=zero", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad limit, got %d", rec.Code)
	}
}

func TestEnvEndpoints(t *testing.T) {
	a := newTestAPI(t)
	router := newRouter(a)

	tests := []struct {
		path string
		code int
	}{
		{"/api/v1/env/call/ringing", http.StatusNoContent},
		{"/api/v1/env/call/idle", http.StatusNoContent},
		{"/api/v1/env/call/busy", http.StatusBadRequest},
		{"/api/v1/env/focus/duck", http.StatusNoContent},
		{"/api/v1/env/focus/gain", http.StatusNoContent},
		{"/api/v1/env/focus/steal", http.StatusBadRequest},
		{"/api/v1/env/noisy", http.StatusNoContent},
		{"/api/v1/env/headset", http.StatusNoContent},
	}
	for _, tc := range tests {
		if rec := do(t, router, http.MethodPost, tc.path, ""); rec.Code != tc.code {
			t.Errorf("%s: expected %d, got %d", tc.path, tc.code, rec.Code)
		}
	}
	if !a.phone.IsIdle() {
		t.Error("expected the phone to be idle again")
	}
}

func TestNetworkEndpointDisabled(t *testing.T) {
	if rec := do(t, newRouter(newTestAPI(t)), http.MethodGet, "/api/v1/network", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a monitor, got %d", rec.Code)
	}
}

func TestStaticFallsBackToIndex(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>ui</html>"), 0644); err != nil {
		t.Fatal(err)
	}
	a := newTestAPI(t)
	a.staticDir = dir
	router := newRouter(a)

	rec := do(t, router, http.MethodGet, "/browse/albums", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ui") {
		t.Errorf("expected index.html for a client route, got %d %q", rec.Code, rec.Body.String())
	}
}

func jsonInt(n int) string {
	data, _ := json.Marshal(n)
	return string(data)
}
