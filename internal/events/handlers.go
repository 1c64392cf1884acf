package events

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogConfig configures the logging handler
type LogConfig struct {
	// Writer is where logs are written (default: os.Stderr)
	Writer io.Writer

	// IncludePayload includes event payload in log output
	IncludePayload bool

	// TimeFormat is the timestamp format (default: 15:04:05)
	TimeFormat string
}

// LogHandler returns a handler that logs events to the configured writer
// Format: 15:04:05 [event.type] cluster job=N payload=... error="..."
func LogHandler(cfg LogConfig) Handler {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.TimeOnly
	}

	return func(e Event) {
		var buf strings.Builder
		if !e.Time.IsZero() {
			buf.WriteString(e.Time.Format(cfg.TimeFormat))
			buf.WriteString(" ")
		}
		buf.WriteString("[")
		buf.WriteString(string(e.Type))
		buf.WriteString("]")

		if e.Cluster != "" {
			buf.WriteString(" ")
			buf.WriteString(e.Cluster)
		}
		if e.Job != "" {
			fmt.Fprintf(&buf, " job=%s", e.Job)
		}
		if cfg.IncludePayload && e.Payload != nil {
			fmt.Fprintf(&buf, " payload=%v", e.Payload)
		}
		if e.Error != "" {
			fmt.Fprintf(&buf, " error=%q", e.Error)
		}
		buf.WriteString("\n")

		fmt.Fprint(cfg.Writer, buf.String())
	}
}

// SlogHandler returns a handler that records events through a structured
// logger. Failure events log at warn level, everything else at debug.
func SlogHandler(logger *slog.Logger) Handler {
	return func(e Event) {
		attrs := []any{"event", string(e.Type)}
		if e.Cluster != "" {
			attrs = append(attrs, "cluster", e.Cluster)
		}
		if e.Job != "" {
			attrs = append(attrs, "job", e.Job)
		}
		if e.Error != "" {
			attrs = append(attrs, "error", e.Error)
			logger.Warn("lifecycle event", attrs...)
			return
		}
		logger.Debug("lifecycle event", attrs...)
	}
}
