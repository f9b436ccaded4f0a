package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
)

func TestServerCORSOriginsFromOptions(t *testing.T) {
	s := NewServer(nil, WithCORS(true, "https://dash.example"))

	for origin, want := range map[string]string{
		"https://dash.example":  "https://dash.example",
		"https://other.example": "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(echo.HeaderOrigin, origin)
		rec := httptest.NewRecorder()
		s.Echo().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("healthz status = %d", rec.Code)
		}
		if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != want {
			t.Errorf("origin %s: allow origin = %q, want %q", origin, got, want)
		}
	}
}

func TestHealthzReportsFailingChecks(t *testing.T) {
	healthy := NewServer(nil, WithHealthCheck("db", func(context.Context) error { return nil }))
	rec := httptest.NewRecorder()
	healthy.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy status = %d", rec.Code)
	}

	sick := NewServer(nil,
		WithHealthCheck("db", func(context.Context) error { return errors.New("connection refused") }),
		WithHealthCheck("other", func(context.Context) error { return nil }),
	)
	rec = httptest.NewRecorder()
	sick.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("sick status = %d", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"db": "connection refused"}, body.Checks); diff != "" || body.Status != "degraded" {
		t.Errorf("status=%q checks (-want +got):\n%s", body.Status, diff)
	}
}
