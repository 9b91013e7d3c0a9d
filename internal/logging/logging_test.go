package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/titan-aas/titan-aas/internal/tenancy"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	l := New("titan-aas-test", "debug", "json")
	l.SetOutput(buf)
	return l
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return out
}

func TestWithContextAddsTraceAndTenant(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	ctx := WithTraceID(context.Background(), "trace-123")
	ctx = tenancy.WithTenant(ctx, "tenant-abc")

	l.WithContext(ctx).Info("hello")

	fields := decodeLine(t, &buf)
	if fields["trace_id"] != "trace-123" {
		t.Fatalf("trace_id = %v", fields["trace_id"])
	}
	if fields["tenant_id"] != "tenant-abc" {
		t.Fatalf("tenant_id = %v", fields["tenant_id"])
	}
	if fields["service"] != "titan-aas-test" {
		t.Fatalf("service = %v", fields["service"])
	}
}

func TestWithContextOmitsUnsetFields(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	l.WithContext(context.Background()).Info("hello")

	fields := decodeLine(t, &buf)
	if _, ok := fields["trace_id"]; ok {
		t.Fatalf("unexpected trace_id: %v", fields["trace_id"])
	}
	if _, ok := fields["tenant_id"]; ok {
		t.Fatalf("unexpected tenant_id: %v", fields["tenant_id"])
	}
}

func TestNewTraceIDIsUnique(t *testing.T) {
	a, b := NewTraceID(), NewTraceID()
	if a == b {
		t.Fatal("expected distinct trace ids")
	}
}

func TestLogRequest(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	l.LogRequest(context.Background(), "GET", "/shells", 200, 15*time.Millisecond)

	fields := decodeLine(t, &buf)
	if fields["method"] != "GET" || fields["path"] != "/shells" {
		t.Fatalf("fields = %+v", fields)
	}
	if fields["status_code"].(float64) != 200 {
		t.Fatalf("status_code = %v", fields["status_code"])
	}
}

func TestLogMutationIsDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	l.LogMutation(context.Background(), "aas", "aHR0cHM6Ly9leGFtcGxlLw==", `"abc123"`)

	fields := decodeLine(t, &buf)
	if fields["level"] != "debug" {
		t.Fatalf("level = %v", fields["level"])
	}
	if fields["identifier"] != "aHR0cHM6Ly9leGFtcGxlLw==" || fields["etag"] != `"abc123"` {
		t.Fatalf("fields = %+v", fields)
	}
}

func TestLogJobTransition(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	l.LogJobTransition(context.Background(), "job-1", "export_aasx", "PENDING", "RUNNING")

	fields := decodeLine(t, &buf)
	if fields["job_id"] != "job-1" || fields["from"] != "PENDING" || fields["to"] != "RUNNING" {
		t.Fatalf("fields = %+v", fields)
	}
}
