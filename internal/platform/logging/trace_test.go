package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const sampleTraceparent = "00-3d23d071b5bfd6579171efce907685cb-08f067aa0ba902b7-01"

func TestTraceFields(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		sampled int64
	}{
		{name: "sampled", header: sampleTraceparent, sampled: 1},
		{name: "not sampled", header: "00-3d23d071b5bfd6579171efce907685cb-08f067aa0ba902b7-00", sampled: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := traceFields(tt.header, "demo-project")
			if len(fields) != 3 {
				t.Fatalf("expected 3 fields, got %d", len(fields))
			}
			if fields[0].Key != "logging.googleapis.com/trace" ||
				fields[0].String != "projects/demo-project/traces/3d23d071b5bfd6579171efce907685cb" {
				t.Fatalf("unexpected trace field: %+v", fields[0])
			}
			if fields[1].Key != "logging.googleapis.com/spanId" || fields[1].String != "08f067aa0ba902b7" {
				t.Fatalf("unexpected span field: %+v", fields[1])
			}
			if fields[2].Type != zapcore.BoolType || fields[2].Integer != tt.sampled {
				t.Fatalf("unexpected sampled field: %+v", fields[2])
			}
		})
	}
}

func TestTraceFieldsInvalid(t *testing.T) {
	if fields := traceFields("invalid", "demo-project"); fields != nil {
		t.Fatalf("expected nil for invalid header, got %v", fields)
	}
	if fields := traceFields("", "demo-project"); fields != nil {
		t.Fatalf("expected nil for empty header, got %v", fields)
	}
	if fields := traceFields(sampleTraceparent, ""); fields != nil {
		t.Fatalf("expected nil without project, got %v", fields)
	}
}

func TestLoggerWithTraceAddsRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	loggerWithTrace(zap.New(core), "", "", "req-123").Info("hello")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if f, ok := fieldMap(entries[0])["requestId"]; !ok || f.String != "req-123" {
		t.Fatalf("expected requestId field, got %+v", entries[0].Context)
	}
}

func TestLoggerWithTraceReturnsBaseWithoutFields(t *testing.T) {
	base := zap.NewNop()
	if got := loggerWithTrace(base, "", "", ""); got != base {
		t.Fatal("expected base logger when nothing is added")
	}
	if got := loggerWithTrace(nil, "", "", ""); got == nil {
		t.Fatal("expected a no-op logger for nil base")
	}
}
