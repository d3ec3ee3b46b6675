package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l := Discard()
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("FromContext should return the stored logger")
	}
	if FromContext(context.Background()) != Default() {
		t.Error("FromContext should fall back to Default")
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if len(a) != 26 {
		t.Errorf("run id %q should be a 26 character ULID", a)
	}
	if a == b {
		t.Error("run ids should be unique")
	}
}

func TestL_AddsIDs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "text", Output: &buf})

	ctx := WithLogger(context.Background(), l)
	ctx = WithRunID(ctx, "01HRUN")
	ctx = WithRequestID(ctx, "req-1")

	if RunIDFromContext(ctx) != "01HRUN" || RequestIDFromContext(ctx) != "req-1" {
		t.Fatal("ids not stored in context")
	}

	L(ctx).Info("hello")
	out := buf.String()
	if !strings.Contains(out, "run_id=01HRUN") || !strings.Contains(out, "request_id=req-1") {
		t.Errorf("output = %q", out)
	}
}

func TestIDsFromEmptyContext(t *testing.T) {
	if RunIDFromContext(context.Background()) != "" || RequestIDFromContext(context.Background()) != "" {
		t.Error("empty context should have no ids")
	}
}
