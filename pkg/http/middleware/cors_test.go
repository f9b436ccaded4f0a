package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func corsEcho(cfg CORSConfig) *echo.Echo {
	e := echo.New()
	e.Use(CORS(cfg))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	return e
}

func TestCORSOrigins(t *testing.T) {
	e := corsEcho(CORSConfig{
		AllowOrigins: []string{"https://app.example/"},
		AllowMethods: []string{http.MethodGet},
		MaxAge:       600,
	})

	cases := []struct {
		name   string
		method string
		origin string
		status int
		allow  string
	}{
		{"listed origin", http.MethodGet, "https://app.example", http.StatusOK, "https://app.example"},
		{"unlisted origin", http.MethodGet, "https://evil.example", http.StatusOK, ""},
		{"no origin", http.MethodGet, "", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "https://app.example", http.StatusNoContent, "https://app.example"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/ping", nil)
			if tc.origin != "" {
				req.Header.Set(echo.HeaderOrigin, tc.origin)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != tc.allow {
				t.Errorf("allow origin = %q, want %q", got, tc.allow)
			}
		})
	}
}

func TestCORSPreflightHeaders(t *testing.T) {
	e := corsEcho(CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderContentType},
		MaxAge:       600,
	})
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set(echo.HeaderOrigin, "https://any.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	h := rec.Header()
	if h.Get(echo.HeaderAccessControlAllowOrigin) != "*" {
		t.Errorf("allow origin = %q", h.Get(echo.HeaderAccessControlAllowOrigin))
	}
	if h.Get(echo.HeaderAccessControlAllowMethods) != "GET, POST" {
		t.Errorf("allow methods = %q", h.Get(echo.HeaderAccessControlAllowMethods))
	}
	if h.Get(echo.HeaderAccessControlMaxAge) != "600" {
		t.Errorf("max age = %q", h.Get(echo.HeaderAccessControlMaxAge))
	}
}
