package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/hpctui/internal/events"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge connects the event bus to the bubbletea program
type Bridge struct {
	program Sender
}

// NewBridge creates a new bridge for the given program
func NewBridge(program Sender) *Bridge {
	return &Bridge{
		program: program,
	}
}

// Handler returns an event handler function for the event bus
func (b *Bridge) Handler() events.Handler {
	return func(evt events.Event) {
		msg := EventToMsg(evt)
		if msg != nil {
			b.program.Send(msg)
		}
	}
}

// phases maps lifecycle events to the phase names shown in the view
var phases = map[events.EventType]string{
	events.JobSubmitted: "submitted",
	events.JobPending:   "pending",
	events.JobRunning:   "running",
	events.JobEnded:     "ended",
	events.JobFailed:    "failed",
	events.JobCancelled: "cancelled",
	events.JobTimedOut:  "timed_out",
	events.JobAbandoned: "abandoned",
}

// EventToMsg converts an events.Event to a tea.Msg. Events the view does
// not show map to nil.
func EventToMsg(evt events.Event) tea.Msg {
	payload, _ := evt.Payload.(map[string]any)

	if phase, ok := phases[evt.Type]; ok {
		return PhaseMsg{
			Phase:  phase,
			Native: stringField(payload, "native"),
			Error:  evt.Error,
		}
	}

	switch evt.Type {
	case events.JobState:
		return StateMsg{
			State:  stringField(payload, "state"),
			Native: stringField(payload, "native"),
		}

	case events.EndpointResolving:
		return ResolvingMsg{}

	case events.EndpointReady:
		return EndpointMsg{
			Node:     stringField(payload, "node"),
			URL:      stringField(payload, "url"),
			LocalURL: stringField(payload, "local_url"),
			Port:     intField(payload, "port"),
		}

	case events.ServiceFailed:
		return ServiceFailedMsg{Error: evt.Error}

	case events.TunnelOpened, events.TunnelClosed, events.TunnelFailed:
		return TunnelMsg{
			LocalPort:  intField(payload, "local_port"),
			RemoteHost: stringField(payload, "remote_host"),
			RemotePort: intField(payload, "remote_port"),
			Open:       evt.Type == events.TunnelOpened,
			Error:      evt.Error,
		}

	default:
		return nil
	}
}

func stringField(payload map[string]any, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

func intField(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case float64:
		// payloads decoded from JSON
		return int(v)
	}
	return 0
}

// SendDone sends a DoneMsg to the program
func (b *Bridge) SendDone() {
	b.program.Send(DoneMsg{})
}
