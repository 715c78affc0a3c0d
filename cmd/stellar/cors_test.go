package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCorsHeadersOnRoutes(t *testing.T) {
	router := newRouter(newTestAPI(t))

	tests := []struct {
		name   string
		method string
		path   string
		code   int
	}{
		{"state", http.MethodGet, "/api/v1/state", http.StatusOK},
		{"rejected command", http.MethodPost, "/api/v1/command", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/nope", http.StatusNotFound},
		{"command preflight", http.MethodOptions, "/api/v1/command", http.StatusNoContent},
		{"env preflight", http.MethodOptions, "/api/v1/env/call/ringing", http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			if rec.Code != tc.code {
				t.Errorf("expected status %d, got %d", tc.code, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("expected Access-Control-Allow-Origin *, got %q", got)
			}
			if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
				t.Errorf("expected Access-Control-Max-Age 600, got %q", got)
			}
		})
	}
}

func TestCorsPreflightSkipsHandler(t *testing.T) {
	called := false
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/command", nil))

	if called {
		t.Error("expected preflight to stop before the handler")
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("expected GET, POST, OPTIONS, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type" {
		t.Errorf("expected Content-Type, got %q", got)
	}
}
