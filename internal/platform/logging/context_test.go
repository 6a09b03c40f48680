package logging

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]zap.Field {
	fields := map[string]zap.Field{}
	for _, f := range entry.Context {
		fields[f.Key] = f
	}
	return fields
}

func TestLogErrorAppendsErrorField(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	LogError(ctx, "bind failed", errors.New("address in use"), zap.String("addr", ":8080"))

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Message != "bind failed" {
		t.Fatalf("unexpected log message: %s", entries[0].Message)
	}
	fields := fieldMap(entries[0])
	if f, ok := fields["addr"]; !ok || f.String != ":8080" {
		t.Fatalf("expected addr field, got %+v", fields)
	}
	if f, ok := fields["error"]; !ok || f.Type != zapcore.ErrorType {
		t.Fatalf("expected error field, got %+v", fields)
	}
}

func TestLogErrorNilError(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	LogError(ctx, "no cause", nil)

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if _, ok := fieldMap(entries[0])["error"]; ok {
		t.Fatal("did not expect error field for nil error")
	}
}

func TestLogInfoAndWarnLevels(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	LogInfo(ctx, "info entry", zap.String("k", "v"))
	LogWarn(ctx, "warn entry")

	entries := recorded.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].Message != "info entry" {
		t.Fatalf("unexpected first entry: %+v", entries[0].Entry)
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].Message != "warn entry" {
		t.Fatalf("unexpected second entry: %+v", entries[1].Entry)
	}
}

func TestLoggerFromContextFallsBackToGlobal(t *testing.T) {
	//nolint:staticcheck // nil context is handled explicitly
	if LoggerFromContext(nil) != Logger() {
		t.Fatal("expected global logger for nil context")
	}
	if LoggerFromContext(context.Background()) != Logger() {
		t.Fatal("expected global logger for bare context")
	}
	ctx := context.WithValue(context.Background(), ctxLoggerKey{}, (*zap.Logger)(nil))
	if LoggerFromContext(ctx) != Logger() {
		t.Fatal("expected global logger when a nil logger is stored")
	}
}

func TestWithLoggerNilContext(t *testing.T) {
	l := zap.NewNop()
	//nolint:staticcheck // nil context is handled explicitly
	ctx := WithLogger(nil, l)
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if LoggerFromContext(ctx) != l {
		t.Fatal("expected stored logger to be returned")
	}
}
