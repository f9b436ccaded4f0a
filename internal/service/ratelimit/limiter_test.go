package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestBurstThenDeny(t *testing.T) {
	l := New(0.001, 2)
	if !l.Allow("1.2.3.4") || !l.Allow("1.2.3.4") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("third call should be limited")
	}
	if !l.Allow("5.6.7.8") {
		t.Fatal("buckets are per key")
	}
}

func TestMiddlewareRejectsWithAppError(t *testing.T) {
	l := New(0.001, 1)
	e := echo.New()
	e.Use(l.Middleware())
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	if rec := call(); rec.Code != http.StatusOK {
		t.Fatalf("first call status = %d", rec.Code)
	}
	rec := call()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second call status = %d", rec.Code)
	}

	var body struct {
		Status int `json:"status"`
		Data   []struct {
			Code    string                 `json:"code"`
			Message string                 `json:"message"`
			Params  map[string]interface{} `json:"params"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != http.StatusTooManyRequests || len(body.Data) != 1 {
		t.Fatalf("envelope = %+v", body)
	}
	if got := body.Data[0]; got.Code != "ERR_RATE_LIMITED" || got.Message != "rate limit exceeded" || got.Params["burst"] != float64(1) {
		t.Errorf("app error = %+v", got)
	}
}
