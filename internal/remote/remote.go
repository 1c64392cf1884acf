// Package remote runs command lines on cluster login hosts through the local
// ssh binary. Host aliases are resolved by the user's ssh configuration.
//
// Failures of the transport itself are never returned as Go errors: a call
// always produces a Result, with exit code 1 and a message in Stderr when the
// command could not be started or did not finish in time.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/RevCBH/hpctui/internal/logger"
)

const (
	// DefaultTimeout bounds a single remote invocation.
	DefaultTimeout = 30 * time.Second

	// DefaultConnectTimeout is passed to ssh as ConnectTimeout.
	DefaultConnectTimeout = 10 * time.Second

	// TimeoutMessage is reported in Stderr when a call exceeds its timeout.
	TimeoutMessage = "SSH command timed out"

	// waitDelay bounds how long Run waits for output pipes after the
	// process has been killed.
	waitDelay = 500 * time.Millisecond
)

// Result is the outcome of one remote invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports whether the command exited with status 0.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// TimedOut reports whether the result is the synthetic timeout outcome.
func (r Result) TimedOut() bool {
	return r.ExitCode == 1 && r.Stderr == TimeoutMessage
}

// Executor runs a command on a host and blocks until it completes.
type Executor interface {
	Run(ctx context.Context, host, command string, timeout time.Duration) Result
}

// Async runs the command in its own goroutine and delivers the Result on the
// returned channel. The channel is buffered so the result is never lost if the
// caller stops listening.
func Async(ctx context.Context, e Executor, host, command string, timeout time.Duration) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		ch <- e.Run(ctx, host, command, timeout)
	}()
	return ch
}

// SSHConfig configures an SSH executor.
type SSHConfig struct {
	// Command is the ssh binary (default: "ssh").
	Command string

	// ConnectTimeout is passed as -o ConnectTimeout (default: 10s).
	ConnectTimeout time.Duration

	// Logger receives one debug record per invocation. Nil discards.
	Logger *slog.Logger
}

// SSH executes commands with the local ssh binary, one process per call.
type SSH struct {
	command        string
	connectTimeout time.Duration
	logger         *slog.Logger
}

// NewSSH creates an SSH executor, filling defaults for unset fields.
func NewSSH(cfg SSHConfig) *SSH {
	if cfg.Command == "" {
		cfg.Command = "ssh"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return &SSH{
		command:        cfg.Command,
		connectTimeout: cfg.ConnectTimeout,
		logger:         cfg.Logger,
	}
}

func (s *SSH) baseArgs() []string {
	return []string{"-o", fmt.Sprintf("ConnectTimeout=%d", int(s.connectTimeout.Seconds()))}
}

// Run executes command on host. A timeout <= 0 uses DefaultTimeout.
func (s *SSH) Run(ctx context.Context, host, command string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(s.baseArgs(), host, command)
	cmd := exec.CommandContext(runCtx, s.command, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := s.result(runCtx, ctx, err, &stdout, &stderr)

	s.logger.Debug("remote command",
		"host", host,
		"command", firstLine(command),
		"exit", result.ExitCode,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return result
}

func (s *SSH) result(runCtx, parent context.Context, err error, stdout, stderr *bytes.Buffer) Result {
	if err == nil {
		return Result{
			Stdout: decode(stdout),
			Stderr: decode(stderr),
		}
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return Result{Stderr: TimeoutMessage, ExitCode: 1}
	}
	if parent.Err() != nil {
		return Result{Stderr: "SSH command cancelled: " + parent.Err().Error(), ExitCode: 1}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			code = 1
		}
		return Result{
			Stdout:   decode(stdout),
			Stderr:   decode(stderr),
			ExitCode: code,
		}
	}

	return Result{Stderr: err.Error(), ExitCode: 1}
}

// Interactive runs command on host with a pseudo-terminal attached to the
// local terminal (ssh -t). It returns when the remote session ends.
func (s *SSH) Interactive(ctx context.Context, host, command string) error {
	args := append(s.baseArgs(), "-t", host, command)
	cmd := exec.CommandContext(ctx, s.command, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("interactive session on %s: %w", host, err)
	}
	return nil
}

// decode converts captured output to a string, replacing invalid UTF-8.
func decode(buf *bytes.Buffer) string {
	return strings.ToValidUTF8(buf.String(), "�")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
