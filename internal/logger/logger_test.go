package logger

import (
	"bytes"
	"context"
	"log/slog"
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
		{"info", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
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

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestFromContext_WithJob(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info")

	// Without job fields the base logger is returned unchanged
	if got := FromContext(context.Background(), base); got != base {
		t.Error("FromContext() without job fields should return base")
	}

	ctx := WithJob(context.Background(), "conv", "4242")
	FromContext(ctx, base).Info("polling")

	out := buf.String()
	if !strings.Contains(out, "cluster=conv") || !strings.Contains(out, "job=4242") {
		t.Errorf("expected cluster and job fields, got %q", out)
	}
}

func TestDiscard(t *testing.T) {
	if Discard() == nil {
		t.Error("Discard() returned nil")
	}
}
