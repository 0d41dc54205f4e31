package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRequestIDGeneratesAndEchoes(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if seen == "" {
		t.Fatal("expected a generated request ID in the context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("echoed ID %q differs from context ID %q", got, seen)
	}
}

func TestRequestIDHonorsCallerSupplied(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "caller-id" {
		t.Errorf("X-Request-ID = %q, want caller-id", got)
	}
}

func TestLoggerRecordsStatusAndRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	log := zerolog.New(buf)

	handler := RequestID(Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "nope")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/x", nil)
	req.Header.Set("X-Request-ID", "rid-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	output := buf.String()
	if !strings.Contains(output, `"status":404`) {
		t.Errorf("log line missing status: %s", output)
	}
	if !strings.Contains(output, "rid-1") {
		t.Errorf("log line missing request ID: %s", output)
	}
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	log := zerolog.Nop()
	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/imports", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("body = %s, want a JSON error", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the inner handler")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/imports", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS headers")
	}
}
