package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureLog(t *testing.T, handler http.Handler, req *http.Request) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	Logging(logger)(handler).ServeHTTP(httptest.NewRecorder(), req)

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	return entry
}

func TestLoggingFields(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	entry := captureLog(t, handler, httptest.NewRequest(http.MethodGet, "/location", nil))

	if entry["method"] != "GET" || entry["path"] != "/location" {
		t.Errorf("method/path = %v/%v", entry["method"], entry["path"])
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["size"] != float64(2) {
		t.Errorf("size = %v", entry["size"])
	}
}

func TestLoggingErrorCode(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetResponseErrorCode(w, "no_address_found")
		w.WriteHeader(http.StatusNotFound)
	})

	entry := captureLog(t, handler, httptest.NewRequest(http.MethodPost, "/location/resolve", nil))

	if entry["error_code"] != "no_address_found" {
		t.Errorf("error_code = %v", entry["error_code"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for 4xx", entry["level"])
	}
}

func TestLoggingErrorCodeThroughWrappedWriter(t *testing.T) {
	// A metrics wrapper sits between the handler and the logging writer;
	// the error code must still land on the logging writer.
	handler := HTTPMetrics(NewMetrics())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetResponseErrorCode(w, "session_required")
		w.WriteHeader(http.StatusUnauthorized)
	}))

	entry := captureLog(t, handler, httptest.NewRequest(http.MethodGet, "/location", nil))

	if entry["error_code"] != "session_required" {
		t.Errorf("error_code = %v", entry["error_code"])
	}
}

func TestLoggingServerErrorLevel(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	entry := captureLog(t, handler, httptest.NewRequest(http.MethodGet, "/", nil))

	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR for 5xx", entry["level"])
	}
}

func TestLoggingUserID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(SetUserID(req.Context(), "user-1"))

	entry := captureLog(t, handler, req)
	if entry["user_id"] != "user-1" {
		t.Errorf("user_id = %v", entry["user_id"])
	}
}

func TestSetResponseErrorCodeOnPlainWriter(t *testing.T) {
	// Should not panic when no writer in the chain accepts the code.
	SetResponseErrorCode(httptest.NewRecorder(), "ignored")
}
