package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz("analyzer")(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["service"] != "analyzer" || body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestReadyzWithChecks(t *testing.T) {
	ok := ReadinessCheck{Name: "postgres", Check: func(ctx context.Context) error { return nil }}
	bad := ReadinessCheck{Name: "minio", Check: func(ctx context.Context) error { return errors.New("bucket missing") }}

	rec := httptest.NewRecorder()
	ReadyzWithChecks("analyzer", ok)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("all-ok status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ReadyzWithChecks("analyzer", ok, bad)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing check status = %d", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.Status != "not_ready" || len(body.Checks) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Checks[1].Status != "fail" || body.Checks[1].Error != "bucket missing" {
		t.Fatalf("failing check = %+v", body.Checks[1])
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := requestIDMiddleware("analyzer", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatalf("no request id assigned")
	}
	if rec.Header().Get("X-Request-Id") != seen {
		t.Fatalf("response header = %q, context = %q", rec.Header().Get("X-Request-Id"), seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "caller-id")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "caller-id" {
		t.Fatalf("caller-supplied id not kept: %q", seen)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	handler := Wrap(discardLogger(), "analyzer", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler bug")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["error"] != "internal_server_error" {
		t.Fatalf("body = %v", body)
	}
}
