// Package scheduler drives batch schedulers through a remote.Executor and
// normalizes their text output into one job and node model.
//
// Two variants share the Scheduler surface: SLURM (squeue, sinfo, sbatch,
// scancel, sacct) and OAR (oarstat, oarsub, oardel). The variant is fixed at
// construction by New.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/RevCBH/hpctui/internal/duration"
	"github.com/RevCBH/hpctui/internal/logger"
	"github.com/RevCBH/hpctui/internal/remote"
)

// Kind identifies a scheduler variant.
type Kind string

const (
	KindSlurm Kind = "slurm"
	KindOAR   Kind = "oar"
)

// Job is a scheduler-agnostic view of one job.
type Job struct {
	// ID is the scheduler's numeric job id, stable for the job's lifetime
	ID string `json:"id"`

	Name string `json:"name"`

	// State is the normalized state; Native is the scheduler's own word
	State  State  `json:"state"`
	Native string `json:"native_state"`

	// Node is the assigned host list, empty while pending
	Node string `json:"node,omitempty"`

	// Durations are nil when the scheduler did not report them
	Elapsed       *duration.Duration `json:"elapsed_minutes,omitempty"`
	TimeLimit     *duration.Duration `json:"time_limit_minutes,omitempty"`
	TimeRemaining *duration.Duration `json:"time_remaining_minutes,omitempty"`

	// Reason explains why a pending job is not running yet
	Reason string `json:"reason,omitempty"`

	// Resources is the requested resource summary (e.g. cores)
	Resources string `json:"resources,omitempty"`
}

// Node is a per-node occupancy snapshot. Only SLURM reports nodes.
type Node struct {
	Name            string `json:"name"`
	CPUState        string `json:"cpu_state"`
	MemoryTotal     string `json:"memory_total"`
	MemoryAllocated string `json:"memory_allocated"`
	Resources       string `json:"resources"`
	ResourcesUsed   string `json:"resources_used"`
	State           string `json:"state"`
}

// Resources is a resource request. SLURM reads the GPU fields, OAR reads Cores.
type Resources struct {
	Cores   int
	GPUType string
	GPUs    int
}

// SubmitRequest carries the parameters of a submission.
type SubmitRequest struct {
	Resources Resources
	Time      duration.Duration
	Name      string
	Email     string

	// ServicePort is where the notebook service listens (interactive submissions)
	ServicePort int

	// ScriptPath is an existing script on the cluster (script submissions)
	ScriptPath string
}

// Scheduler is the capability surface shared by both variants.
type Scheduler interface {
	Kind() Kind

	// ListJobs returns the owner's jobs. Malformed lines are skipped.
	ListJobs(ctx context.Context, owner string) ([]Job, error)

	// ListNodes returns per-node snapshots; variants without a node view return none.
	ListNodes(ctx context.Context) ([]Node, error)

	// SubmitInteractive uploads and submits a notebook job script.
	SubmitInteractive(ctx context.Context, req SubmitRequest) (string, error)

	// SubmitScript submits an existing remote script.
	SubmitScript(ctx context.Context, req SubmitRequest) (string, error)

	Cancel(ctx context.Context, jobID string) error
	CancelAll(ctx context.Context, owner string) error

	QueryState(ctx context.Context, jobID string) Status
	QueryNode(ctx context.Context, jobID string) string

	// QueryServiceURL returns the last http:// URL in the job's log, if any.
	QueryServiceURL(ctx context.Context, jobID string) (string, bool)

	// InteractiveCommand builds a terminal-only allocation command line.
	InteractiveCommand(req SubmitRequest) string
}

// Options configures a Scheduler.
type Options struct {
	// Host is the ssh alias of the cluster login node
	Host string

	// Partition restricts SLURM node listings
	Partition string

	// Property is the OAR resource filter passed with -p
	Property string

	// Timeout bounds each remote call (default: remote.DefaultTimeout)
	Timeout time.Duration

	// Scripts renders notebook job scripts (default: embedded templates)
	Scripts *ScriptSet

	Logger *slog.Logger
}

// New returns the Scheduler variant for kind.
func New(kind Kind, exec remote.Executor, opts Options) (Scheduler, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("scheduler %s: host is required", kind)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = remote.DefaultTimeout
	}
	if opts.Scripts == nil {
		opts.Scripts = DefaultScripts()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	c := client{exec: exec, opts: opts, logger: opts.Logger.With("scheduler", string(kind), "host", opts.Host)}

	switch kind {
	case KindSlurm:
		return &Slurm{client: c}, nil
	case KindOAR:
		return &OAR{client: c}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// client holds what both variants need to talk to the cluster.
type client struct {
	exec   remote.Executor
	opts   Options
	logger *slog.Logger
}

func (c client) run(ctx context.Context, command string) remote.Result {
	r := c.exec.Run(ctx, c.opts.Host, command, c.opts.Timeout)
	if r.TimedOut() {
		c.logger.Warn("remote command timed out", "command", command)
	}
	return r
}

var (
	jobIDPattern = regexp.MustCompile(`^\d+$`)
	urlPattern   = regexp.MustCompile(`http://\S+`)
)

// IsJobID reports whether s looks like a scheduler job id.
func IsJobID(s string) bool {
	return jobIDPattern.MatchString(s)
}

// submitResult extracts the job id from a submission result. The first
// all-digit stdout line wins; otherwise stderr (or a default message)
// becomes a RejectedError.
func submitResult(op string, r remote.Result) (string, error) {
	for _, line := range strings.Split(r.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if IsJobID(line) {
			return line, nil
		}
	}
	msg := strings.TrimSpace(r.Stderr)
	if msg == "" {
		msg = "Failed to submit job"
	}
	return "", &RejectedError{Op: op, Message: msg}
}

// cancelResult turns a non-zero cancellation exit into a RejectedError.
func cancelResult(op string, r remote.Result) error {
	if r.OK() {
		return nil
	}
	msg := strings.TrimSpace(r.Stderr)
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", r.ExitCode)
	}
	return &RejectedError{Op: op, Message: msg}
}

// listResult reports a failed listing call as an error.
func listResult(op string, r remote.Result) error {
	if r.OK() {
		return nil
	}
	return &TransportError{Op: op, ExitCode: r.ExitCode, Stderr: strings.TrimSpace(r.Stderr), TimedOut: r.TimedOut()}
}

// captureID wraps a submission so the job id is the only stdout line on
// success and the scheduler's full output goes to stderr otherwise.
// pattern is a sed expression printing the id.
func captureID(submit, pattern string) string {
	return fmt.Sprintf(
		`out=$(%s 2>&1); id=$(printf '%%s\n' "$out" | sed -n '%s' | head -n 1); `+
			`if [ -n "$id" ]; then echo "$id"; else echo "$out" >&2; fi`,
		submit, pattern)
}

// firstLine returns the first non-empty trimmed line of s.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// lastURL returns the last http:// URL in text.
func lastURL(text string) (string, bool) {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1], true
}

// quote single-quotes s for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// quotePath quotes a remote path but keeps a leading "~/" expandable.
func quotePath(p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		return "~/" + quote(rest)
	}
	return quote(p)
}

func durationPtr(d duration.Duration) *duration.Duration {
	return &d
}
