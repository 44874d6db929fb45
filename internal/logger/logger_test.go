package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func newJSONLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Level: level, Format: "json", Output: buf})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	return entry
}

func TestWithContext_AddsPipelineAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, slog.LevelInfo)

	ctx := WithInvocationID(context.Background(), "inv-1")
	ctx = WithReportID(ctx, "report-9")
	ctx = WithTrigger(ctx, "http_event")

	log.WithContext(ctx).WithComponent("pipeline").Info("dispatched")

	entry := decodeLine(t, &buf)
	for key, want := range map[string]string{
		"invocation_id": "inv-1",
		"report_id":     "report-9",
		"trigger":       "http_event",
		"component":     "pipeline",
		"instance_id":   GetInstanceID(),
	} {
		if got := entry[key]; got != want {
			t.Errorf("%s = %v, want %q", key, got, want)
		}
	}
	if _, ok := entry["operation"]; ok {
		t.Error("operation attribute set without an operation in the context")
	}
}

func TestNew_JSONUsesSeverity(t *testing.T) {
	var buf bytes.Buffer
	newJSONLogger(&buf, slog.LevelDebug).Warn("slow query")

	entry := decodeLine(t, &buf)
	if entry["severity"] != "WARN" {
		t.Errorf("severity = %v, want WARN", entry["severity"])
	}
	if _, ok := entry["level"]; ok {
		t.Error("level key still present next to severity")
	}
}

func TestLogOperation(t *testing.T) {
	var buf bytes.Buffer
	log := newJSONLogger(&buf, slog.LevelInfo)

	boom := errors.New("boom")
	if err := log.LogOperation(context.Background(), "handle_report", func() error { return boom }); err != boom {
		t.Fatalf("LogOperation() error = %v, want %v", err, boom)
	}

	entry := decodeLine(t, &buf)
	if entry["msg"] != "operation failed" || entry["operation"] != "handle_report" || entry["error"] != "boom" {
		t.Errorf("entry = %v", entry)
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("APP_ENV", "")

	tests := []struct {
		level, format string
		wantLevel     slog.Level
		wantFormat    string
	}{
		{"debug", "", slog.LevelDebug, "text"},
		{"warn", "json", slog.LevelWarn, "json"},
		{"bogus", "text", slog.LevelInfo, "text"},
		{"", "", slog.LevelInfo, "text"},
		{" ERROR ", "json", slog.LevelError, "json"},
	}
	for _, tt := range tests {
		got := FromConfig(tt.level, tt.format)
		if got.Level != tt.wantLevel || got.Format != tt.wantFormat {
			t.Errorf("FromConfig(%q, %q) = %+v, want level %v format %q", tt.level, tt.format, got, tt.wantLevel, tt.wantFormat)
		}
	}

	t.Setenv("APP_ENV", "production")
	if got := FromConfig("info", "text"); got.Format != "json" {
		t.Errorf("production format = %q, want json", got.Format)
	}
}

func TestRedactToken(t *testing.T) {
	if got := RedactToken("short"); got != "short" {
		t.Errorf("RedactToken(short) = %q", got)
	}
	long := "fcm-token-0123456789abcdefghij"
	if got, want := RedactToken(long), long[:20]+"..."; got != want {
		t.Errorf("RedactToken() = %q, want %q", got, want)
	}
}

func TestInvocationIDFromContext(t *testing.T) {
	if got := InvocationIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context id = %q", got)
	}
	id := GenerateInvocationID()
	if got := InvocationIDFromContext(WithInvocationID(context.Background(), id)); got != id {
		t.Errorf("InvocationIDFromContext() = %q, want %q", got, id)
	}
}
