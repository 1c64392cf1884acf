// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// jobKey is the context key for the cluster and job a command acts on.
type jobKey struct{}

type jobFields struct {
	cluster string
	job     string
}

// ParseLevel maps a config log level to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// New creates a text logger writing to w at level. Unknown levels fall back
// to info.
func New(w io.Writer, level string) *slog.Logger {
	lvl, _ := ParseLevel(level)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithJob returns a new context carrying the cluster and job id.
func WithJob(ctx context.Context, cluster, job string) context.Context {
	return context.WithValue(ctx, jobKey{}, jobFields{cluster: cluster, job: job})
}

// FromContext returns base with the cluster and job fields of ctx attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	f, ok := ctx.Value(jobKey{}).(jobFields)
	if !ok {
		return base
	}
	if f.cluster != "" {
		base = base.With("cluster", f.cluster)
	}
	if f.job != "" {
		base = base.With("job", f.job)
	}
	return base
}
