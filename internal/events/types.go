package events

import (
	"fmt"
	"strings"
	"time"
)

// Event represents a single occurrence in a job or tunnel lifecycle
type Event struct {
	// Time is when the event occurred (set by bus on emit)
	Time time.Time `json:"time"`

	// Type identifies what happened
	Type EventType `json:"type"`

	// Cluster is the configured cluster name (empty for session-wide events)
	Cluster string `json:"cluster,omitempty"`

	// Job is the scheduler job id this event relates to
	Job string `json:"job,omitempty"`

	// Payload contains event-specific data (type varies by event)
	Payload any `json:"payload,omitempty"`

	// Error contains error message if this is a failure event
	Error string `json:"error,omitempty"`
}

// EventType is a string constant identifying the event category
type EventType string

// Job lifecycle events
const (
	JobSubmitted EventType = "job.submitted"
	JobPending   EventType = "job.pending"
	JobRunning   EventType = "job.running"

	// JobState reports every applied poll result
	// Payload: state (string), native (string)
	JobState EventType = "job.state"

	JobEnded     EventType = "job.ended"     // Terminal
	JobFailed    EventType = "job.failed"    // Terminal
	JobCancelled EventType = "job.cancelled" // Terminal
	JobTimedOut  EventType = "job.timedout"  // Terminal
	JobAbandoned EventType = "job.abandoned"
)

// Endpoint resolution events
const (
	// EndpointResolving is emitted once when the job starts running
	// Payload: node (string)
	EndpointResolving EventType = "job.endpoint.resolving"

	// EndpointReady carries the resolved service address
	// Payload: node, url, local_url (string), port (int)
	EndpointReady EventType = "job.endpoint.ready"

	// ServiceFailed means the service URL never appeared
	ServiceFailed EventType = "job.service.failed"
)

// Tunnel events
const (
	// Payload: local_port, remote_port (int), remote_host, session (string)
	TunnelOpened EventType = "tunnel.opened"
	TunnelClosed EventType = "tunnel.closed"
	TunnelFailed EventType = "tunnel.failed"
)

// NewEvent creates an event with the given type and job id
func NewEvent(eventType EventType, job string) Event {
	return Event{
		Type: eventType,
		Job:  job,
	}
}

// WithCluster returns a copy of the event with the cluster set
func (e Event) WithCluster(cluster string) Event {
	e.Cluster = cluster
	return e
}

// WithPayload returns a copy of the event with the payload set
func (e Event) WithPayload(payload any) Event {
	e.Payload = payload
	return e
}

// WithError returns a copy of the event with the error message set
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// IsFailure returns true if this is a failure event type
func (e Event) IsFailure() bool {
	return strings.HasSuffix(string(e.Type), ".failed")
}

// IsTerminal returns true if the event ends a job's tracking
func (e Event) IsTerminal() bool {
	switch e.Type {
	case JobEnded, JobFailed, JobCancelled, JobTimedOut, JobAbandoned:
		return true
	}
	return false
}

// String returns a human-readable representation of the event
func (e Event) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Type))

	if e.Cluster != "" {
		parts = append(parts, e.Cluster)
	}

	if e.Job != "" {
		parts = append(parts, fmt.Sprintf("job=%s", e.Job))
	}

	if e.Error != "" {
		parts = append(parts, fmt.Sprintf("error=%q", e.Error))
	}

	return strings.Join(parts, " ")
}
