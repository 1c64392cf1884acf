package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind indicates New was asked for an unsupported variant
	ErrUnknownKind = errors.New("unknown scheduler kind")

	// ErrInvalidJobID indicates a job id that is not all digits
	ErrInvalidJobID = errors.New("invalid job id")

	// ErrInvalidRequest indicates a submission missing required parameters
	ErrInvalidRequest = errors.New("invalid submit request")

	// ErrRejected is matched by every RejectedError
	ErrRejected = errors.New("scheduler rejected request")

	// ErrTimedOut is matched by a TransportError whose command hit its timeout
	ErrTimedOut = errors.New("remote command timed out")
)

// RejectedError carries the scheduler's message for a failed submit or cancel.
type RejectedError struct {
	Op      string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RejectedError) Unwrap() error {
	return ErrRejected
}

// TransportError reports a listing command that did not complete.
type TransportError struct {
	Op       string
	ExitCode int
	Stderr   string
	TimedOut bool
}

func (e *TransportError) Unwrap() error {
	if e.TimedOut {
		return ErrTimedOut
	}
	return nil
}

func (e *TransportError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed (exit %d): %s", e.Op, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s failed (exit %d)", e.Op, e.ExitCode)
}
