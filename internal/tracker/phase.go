package tracker

import "github.com/RevCBH/hpctui/internal/scheduler"

// Phase is the tracker's view of a submitted job.
type Phase string

const (
	PhaseSubmitted Phase = "submitted"
	PhasePending   Phase = "pending"
	PhaseRunning   Phase = "running"
	PhaseEnded     Phase = "ended"     // Terminal: scheduler reports normal completion
	PhaseFailed    Phase = "failed"    // Terminal
	PhaseCancelled Phase = "cancelled" // Terminal
	PhaseTimedOut  Phase = "timed_out" // Terminal
	PhaseAbandoned Phase = "abandoned" // Terminal: local only, the job may still exist remotely
)

// IsTerminal returns true if no further transition is possible.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseEnded, PhaseFailed, PhaseCancelled, PhaseTimedOut, PhaseAbandoned:
		return true
	}
	return false
}

// ValidTransitions defines the allowed phase changes
var ValidTransitions = map[Phase][]Phase{
	PhaseSubmitted: {PhasePending, PhaseRunning, PhaseEnded, PhaseFailed, PhaseCancelled, PhaseTimedOut, PhaseAbandoned},
	PhasePending:   {PhaseRunning, PhaseEnded, PhaseFailed, PhaseCancelled, PhaseTimedOut, PhaseAbandoned},
	PhaseRunning:   {PhaseEnded, PhaseFailed, PhaseCancelled, PhaseTimedOut, PhaseAbandoned},
}

// CanTransition checks if a phase transition is valid
func CanTransition(from, to Phase) bool {
	for _, allowed := range ValidTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Next returns the phase after observing status. Terminal phases absorb
// every status. Unknown and Finishing keep the current phase, and a Pending
// report never moves a running job back.
func Next(p Phase, status scheduler.Status) Phase {
	if p.IsTerminal() {
		return p
	}

	var next Phase
	switch status.State {
	case scheduler.StatePending:
		next = PhasePending
	case scheduler.StateRunning:
		next = PhaseRunning
	case scheduler.StateCompleted:
		next = PhaseEnded
	case scheduler.StateFailed:
		next = PhaseFailed
	case scheduler.StateCancelled:
		next = PhaseCancelled
	case scheduler.StateTimedOut:
		next = PhaseTimedOut
	default:
		return p
	}

	if next == p || !CanTransition(p, next) {
		return p
	}
	return next
}

// Abandon returns PhaseAbandoned for a live phase and p otherwise.
func Abandon(p Phase) Phase {
	if CanTransition(p, PhaseAbandoned) {
		return PhaseAbandoned
	}
	return p
}
