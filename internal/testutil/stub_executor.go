package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/RevCBH/hpctui/internal/remote"
)

// StubExecutor is a remote.Executor that answers from canned results.
// Exact stubs are consumed in order, then defaults, then substring matches.
type StubExecutor struct {
	mu       sync.Mutex
	stubs    map[string][]remote.Result
	defaults map[string]remote.Result
	matches  []matchStub
	calls    []Call
}

// Call records one Run invocation.
type Call struct {
	Host    string
	Command string
	Timeout time.Duration
}

type matchStub struct {
	substr string
	result remote.Result
}

func NewStubExecutor() *StubExecutor {
	return &StubExecutor{
		stubs:    make(map[string][]remote.Result),
		defaults: make(map[string]remote.Result),
	}
}

// Stub queues a result for an exact command line.
func (s *StubExecutor) Stub(command string, result remote.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[command] = append(s.stubs[command], result)
}

// StubDefault answers every call of command once its queue is empty.
func (s *StubExecutor) StubDefault(command string, result remote.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[command] = result
}

// StubContains answers any command containing substr.
func (s *StubExecutor) StubContains(substr string, result remote.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append(s.matches, matchStub{substr: substr, result: result})
}

func (s *StubExecutor) Run(ctx context.Context, host, command string, timeout time.Duration) remote.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Host: host, Command: command, Timeout: timeout})

	if queue := s.stubs[command]; len(queue) > 0 {
		s.stubs[command] = queue[1:]
		return queue[0]
	}
	if r, ok := s.defaults[command]; ok {
		return r
	}
	for _, m := range s.matches {
		if strings.Contains(command, m.substr) {
			return m.result
		}
	}
	return remote.Result{ExitCode: 1, Stderr: fmt.Sprintf("unexpected remote call: %s", command)}
}

// Calls returns a copy of every recorded call.
func (s *StubExecutor) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsFor counts calls of an exact command line.
func (s *StubExecutor) CallsFor(command string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, c := range s.calls {
		if c.Command == command {
			count++
		}
	}
	return count
}

// LastCommand returns the most recent command line, or "".
func (s *StubExecutor) LastCommand() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return ""
	}
	return s.calls[len(s.calls)-1].Command
}
