package scheduler

import "strings"

// State is the scheduler-agnostic job state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateFinishing State = "finishing" // Winding down, the final state is not known yet
	StateCompleted State = "completed" // Terminal: finished normally
	StateFailed    State = "failed"    // Terminal
	StateCancelled State = "cancelled" // Terminal
	StateTimedOut  State = "timed_out" // Terminal
	StateUnknown   State = "unknown"
)

// IsTerminal returns true if the job can no longer run.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateTimedOut:
		return true
	}
	return false
}

// Status pairs the normalized state with the scheduler's own word for it.
type Status struct {
	State  State
	Native string
}

// stateTable maps native state names to normalized states.
type stateTable map[string]State

// normalize looks up the first word of native, exactly and then
// case-insensitively. sacct's truncation marker "+" is ignored.
// Unmapped or empty input is StateUnknown.
func (t stateTable) normalize(native string) State {
	fields := strings.Fields(native)
	if len(fields) == 0 {
		return StateUnknown
	}
	word := strings.TrimRight(fields[0], "+")
	if s, ok := t[word]; ok {
		return s
	}
	for name, s := range t {
		if strings.EqualFold(name, word) {
			return s
		}
	}
	return StateUnknown
}

// slurmStates covers squeue %T and sacct State vocabularies.
var slurmStates = stateTable{
	"PENDING":       StatePending,
	"CONFIGURING":   StatePending,
	"REQUEUED":      StatePending,
	"REQUEUE_HOLD":  StatePending,
	"REQUEUE_FED":   StatePending,
	"RESIZING":      StatePending,
	"SUSPENDED":     StatePending,
	"STOPPED":       StatePending,
	"RUNNING":       StateRunning,
	"SIGNALING":     StateRunning,
	"STAGE_OUT":     StateRunning,
	"COMPLETING":    StateFinishing,
	"COMPLETED":     StateCompleted,
	"FAILED":        StateFailed,
	"BOOT_FAIL":     StateFailed,
	"NODE_FAIL":     StateFailed,
	"OUT_OF_MEMORY": StateFailed,
	"SPECIAL_EXIT":  StateFailed,
	"CANCELLED":     StateCancelled,
	"PREEMPTED":     StateCancelled,
	"REVOKED":       StateCancelled,
	"TIMEOUT":       StateTimedOut,
	"DEADLINE":      StateTimedOut,
}

// oarStates covers the oarstat state vocabulary.
var oarStates = stateTable{
	"Waiting":          StatePending,
	"Hold":             StatePending,
	"toLaunch":         StatePending,
	"toAckReservation": StatePending,
	"Launching":        StatePending,
	"Suspended":        StatePending,
	"Running":          StateRunning,
	"Resuming":         StateRunning,
	"Finishing":        StateFinishing,
	"Terminated":       StateCompleted,
	"toError":          StateFailed,
	"Error":            StateFailed,
}
