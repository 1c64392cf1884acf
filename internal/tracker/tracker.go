// Package tracker follows a submitted job from submission to a terminal
// state and resolves the service endpoint the job exposes once it runs.
//
// A Tracker owns its phase inside the Run goroutine. Remote queries run in
// their own goroutines and report back over channels; each poll carries a
// sequence number and results older than the last applied one are dropped.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/RevCBH/hpctui/internal/events"
	"github.com/RevCBH/hpctui/internal/logger"
	"github.com/RevCBH/hpctui/internal/scheduler"
)

const DefaultPollInterval = 5 * time.Second

// Options configures a Tracker.
type Options struct {
	// Cluster labels emitted events
	Cluster string

	// PollInterval separates state queries (default: 5s)
	PollInterval time.Duration

	Resolve ResolveOptions

	// OnEndpoint is called from the Run goroutine once the endpoint resolves
	OnEndpoint func(Endpoint)

	// Bus receives lifecycle events (optional)
	Bus *events.Bus

	Logger *slog.Logger
}

// Result is the outcome of Run.
type Result struct {
	JobID string
	Phase Phase

	// Native is the scheduler's last reported state word
	Native string

	// Endpoint is set once resolution succeeded
	Endpoint *Endpoint

	// EndpointErr is ErrServiceNotStarted or ErrNodeNotFound when resolution failed
	EndpointErr error
}

// Tracker polls one job.
type Tracker struct {
	sched  scheduler.Scheduler
	jobID  string
	opts   Options
	logger *slog.Logger

	abandon     chan struct{}
	abandonOnce sync.Once

	// owned by the Run goroutine
	phase       Phase
	native      string
	resolving   bool
	endpoint    *Endpoint
	endpointErr error
}

type pollResult struct {
	seq    uint64
	status scheduler.Status
}

type resolution struct {
	endpoint Endpoint
	err      error
}

// New creates a Tracker for jobID in PhaseSubmitted.
func New(sched scheduler.Scheduler, jobID string, opts Options) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	opts.Resolve = opts.Resolve.withDefaults()
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Tracker{
		sched:   sched,
		jobID:   jobID,
		opts:    opts,
		logger:  opts.Logger.With("job", jobID),
		abandon: make(chan struct{}),
		phase:   PhaseSubmitted,
	}
}

// Abandon stops Run without touching the remote job. In-flight queries are
// not cancelled; their results are discarded. Safe to call more than once.
func (t *Tracker) Abandon() {
	t.abandonOnce.Do(func() { close(t.abandon) })
}

// Run polls until the job reaches a terminal phase, endpoint resolution
// fails, Abandon is called, or ctx is done. Only ctx cancellation is
// returned as an error.
func (t *Tracker) Run(ctx context.Context) (Result, error) {
	done := make(chan struct{})
	defer close(done)

	polls := make(chan pollResult)
	resolved := make(chan resolution, 1)
	var issued, applied uint64

	poll := func() {
		issued++
		seq := issued
		go func() {
			status := t.sched.QueryState(ctx, t.jobID)
			select {
			case polls <- pollResult{seq: seq, status: status}:
			case <-done:
			}
		}()
	}

	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	t.logger.Debug("tracking job", "interval", t.opts.PollInterval)
	poll()

	for {
		select {
		case <-ctx.Done():
			return t.result(), ctx.Err()

		case <-t.abandon:
			t.enter(Abandon(t.phase), t.native)
			return t.result(), nil

		case <-ticker.C:
			poll()

		case r := <-polls:
			if r.seq <= applied {
				t.logger.Debug("dropping superseded poll", "seq", r.seq, "applied", applied, "state", r.status.State)
				continue
			}
			applied = r.seq

			if t.observe(r.status) && !t.resolving {
				t.resolving = true
				t.emit(events.NewEvent(events.EndpointResolving, t.jobID))
				go func() {
					ep, err := resolve(ctx, done, t.sched, t.jobID, t.opts.Resolve)
					resolved <- resolution{endpoint: ep, err: err}
				}()
			}
			if t.phase.IsTerminal() {
				return t.result(), nil
			}

		case res := <-resolved:
			if t.resolved(res) != nil {
				return t.result(), nil
			}
		}
	}
}

// observe applies one poll result and reports whether the job just
// entered PhaseRunning.
func (t *Tracker) observe(status scheduler.Status) bool {
	t.emit(events.NewEvent(events.JobState, t.jobID).WithPayload(map[string]any{
		"state":  string(status.State),
		"native": status.Native,
	}))

	next := Next(t.phase, status)
	if next == t.phase {
		return false
	}
	t.enter(next, status.Native)
	return next == PhaseRunning
}

func (t *Tracker) enter(next Phase, native string) {
	if next == t.phase {
		return
	}
	prev := t.phase
	t.phase = next
	if native != "" {
		t.native = native
	}
	t.logger.Info("job phase changed", "from", prev, "to", next, "native", native)

	typ, ok := phaseEvents[next]
	if !ok {
		return
	}
	e := events.NewEvent(typ, t.jobID).WithPayload(map[string]any{"native": t.native})
	if next == PhaseFailed {
		msg := t.native
		if msg == "" {
			msg = "job failed"
		}
		e = e.WithError(errors.New(msg))
	}
	t.emit(e)
}

func (t *Tracker) resolved(res resolution) error {
	if res.err != nil {
		if errors.Is(res.err, context.Canceled) {
			return nil
		}
		t.endpointErr = res.err
		t.logger.Warn("endpoint resolution failed", "node", res.endpoint.Node, "error", res.err)
		t.emit(events.NewEvent(events.ServiceFailed, t.jobID).WithError(res.err))
		return res.err
	}

	ep := res.endpoint
	t.endpoint = &ep
	t.logger.Info("endpoint ready", "node", ep.Node, "url", ep.URL)
	t.emit(events.NewEvent(events.EndpointReady, t.jobID).WithPayload(map[string]any{
		"node":      ep.Node,
		"url":       ep.URL,
		"local_url": ep.LocalURL,
		"port":      ep.Port,
	}))
	if t.opts.OnEndpoint != nil {
		t.opts.OnEndpoint(ep)
	}
	return nil
}

func (t *Tracker) result() Result {
	return Result{
		JobID:       t.jobID,
		Phase:       t.phase,
		Native:      t.native,
		Endpoint:    t.endpoint,
		EndpointErr: t.endpointErr,
	}
}

func (t *Tracker) emit(e events.Event) {
	if t.opts.Bus == nil {
		return
	}
	t.opts.Bus.Emit(e.WithCluster(t.opts.Cluster))
}

var phaseEvents = map[Phase]events.EventType{
	PhasePending:   events.JobPending,
	PhaseRunning:   events.JobRunning,
	PhaseEnded:     events.JobEnded,
	PhaseFailed:    events.JobFailed,
	PhaseCancelled: events.JobCancelled,
	PhaseTimedOut:  events.JobTimedOut,
	PhaseAbandoned: events.JobAbandoned,
}
