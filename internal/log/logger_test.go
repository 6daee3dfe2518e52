package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_JSONFormatAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentAnalytics, Output: &buf})

	logger.Info("summary computed", FieldCategoryID, 3)
	logger.Debug("filtered out")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec[FieldComponent] != ComponentAnalytics {
		t.Errorf("component = %v", rec[FieldComponent])
	}
	if rec[FieldCategoryID] != float64(3) {
		t.Errorf("category_id = %v", rec[FieldCategoryID])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "text", Component: ComponentApp, Output: &buf})
	logger.WithComponent(ComponentWorker).Debug("tick")

	if !strings.Contains(buf.String(), "component=worker") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("fallback component = %q", got.Component())
	}

	logger := New(Config{Component: ComponentHTTP, Output: &bytes.Buffer{}})
	var seen *Logger
	h := ComponentMiddleware(ComponentDashboard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(NewContext(req.Context(), logger)))

	if seen == nil || seen.Component() != ComponentDashboard {
		t.Fatalf("handler logger = %+v", seen)
	}
}

func TestLogHTTPEnd_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{500, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}))
		r := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		sl.LogHTTPEnd(context.Background(), r, tt.status, 3, "127.0.0.1")

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("status %d: %v", tt.status, err)
		}
		if rec["level"] != tt.level {
			t.Errorf("status %d logged at %v, want %s", tt.status, rec["level"], tt.level)
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	sl.LogError(context.Background(), "write failed", errors.New("disk full"), ComponentStorage, OpCreate, nil)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec[FieldError] != "disk full" || rec[FieldOperation] != OpCreate || rec[FieldComponent] != ComponentStorage {
		t.Errorf("unexpected record %v", rec)
	}
}
