package events

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// JSONEvent is the wire format for events written as JSON lines.
type JSONEvent struct {
	// Type identifies the event (e.g., "job.running", "tunnel.opened")
	Type string `json:"type"`

	// Timestamp is when the event occurred (RFC3339 format)
	Timestamp time.Time `json:"timestamp"`

	Cluster string `json:"cluster,omitempty"`
	Job     string `json:"job,omitempty"`

	// Payload contains event-specific data (type varies by event)
	Payload map[string]any `json:"payload,omitempty"`

	// Error contains error message if this is a failure event
	Error string `json:"error,omitempty"`
}

// IsJSONMode returns true if JSON output should be enabled.
// Checks: (1) explicit forceJSON flag, (2) out is a file that is not a TTY.
// Writers other than files are taken as plain output.
func IsJSONMode(forceJSON bool, out io.Writer) bool {
	if forceJSON {
		return true
	}

	if f, ok := out.(*os.File); ok && f != nil {
		return !term.IsTerminal(int(f.Fd()))
	}

	return false
}

// JSONEmitter writes events as JSON lines to a writer.
// Thread-safe for concurrent Emit calls.
type JSONEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONEmitter creates a new JSON emitter that writes to w.
// Each event is written as a single JSON line (newline-delimited).
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{enc: json.NewEncoder(w)}
}

// Emit converts the Event to JSONEvent wire format and writes it.
func (e *JSONEmitter) Emit(event Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.enc.Encode(ToJSONEvent(event))
}

// JSONEmitterHandler returns a Handler that emits events as JSON lines.
// Errors are logged but not propagated (handler interface has no return).
func JSONEmitterHandler(emitter *JSONEmitter, logger *slog.Logger) Handler {
	return func(e Event) {
		if err := emitter.Emit(e); err != nil && logger != nil {
			logger.Warn("failed to emit JSON event", "error", err)
		}
	}
}

// ToJSONEvent converts an Event to the wire format JSONEvent.
// Map payloads are kept; anything else is wrapped under "value".
func ToJSONEvent(e Event) JSONEvent {
	je := JSONEvent{
		Type:      string(e.Type),
		Timestamp: e.Time,
		Cluster:   e.Cluster,
		Job:       e.Job,
		Error:     e.Error,
	}

	if e.Payload != nil {
		switch p := e.Payload.(type) {
		case map[string]any:
			je.Payload = p
		default:
			je.Payload = map[string]any{"value": e.Payload}
		}
	}

	return je
}
