package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerAddsComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Config{Component: ComponentLedger, Handler: slog.NewTextHandler(buf, nil)})

	l.Info("inserted", FieldCount, 2)

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "count=2") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestWithComponentKeepsAttributes(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Config{Component: ComponentApp, Handler: slog.NewTextHandler(buf, nil)}).
		With(FieldUserID, "u1").
		WithComponent(ComponentSession)

	l.Warn("teardown")

	out := buf.String()
	if !strings.Contains(out, "component=session") || !strings.Contains(out, "user_id=u1") {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Contains(out, "component=app") {
		t.Fatalf("stale component leaked: %s", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := Discard().WithComponent(ComponentAuth)
	ctx := WithContext(context.Background(), l)
	if got := FromContext(ctx); got.Component() != ComponentAuth {
		t.Fatalf("expected auth component, got %s", got.Component())
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %s", got.Component())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "x": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithOperation(OpImport).
		WithUser("u1").
		WithCount(3).
		WithError(errors.New("boom"), ErrorTypePersistence)
	if f[FieldOperation] != OpImport || f[FieldCount] != 3 || f[FieldErrorType] != ErrorTypePersistence {
		t.Fatalf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatalf("unexpected slice length")
	}
	if _, ok := NewFields().WithError(nil, ErrorTypeAuth)[FieldError]; ok {
		t.Fatalf("nil error must not add a field")
	}
}
