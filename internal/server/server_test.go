package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/app"
	"github.com/ternarybob/probo/internal/common"
	"github.com/ternarybob/probo/internal/handlers"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := common.NewDefaultConfig()
	logger := arbor.NewLogger()

	application := &app.App{
		Config:     cfg,
		Logger:     logger,
		APIHandler: handlers.NewAPIHandler(cfg, nil, nil, logger),
	}

	return New(application)
}

func TestHealthRoute(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.withConditionalMiddleware(srv.router)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestVersionRoute(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.withConditionalMiddleware(srv.router)

	req := httptest.NewRequest("GET", "/api/version", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "version") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.withConditionalMiddleware(srv.router)

	req := httptest.NewRequest("GET", "/api/nonexistent", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.withConditionalMiddleware(srv.router)

	req := httptest.NewRequest("OPTIONS", "/api/documents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS headers on preflight response")
	}
}

func TestIsStreamingPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/ws/documents/abc", true},
		{"/api/documents/abc/progress", true},
		{"/api/documents/abc/progress/latest", false},
		{"/api/documents/abc", false},
		{"/api/health", false},
	}

	for _, tt := range tests {
		if got := isStreamingPath(tt.path); got != tt.want {
			t.Errorf("isStreamingPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := newTestServer(t)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := srv.withMiddleware(panicking)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}
