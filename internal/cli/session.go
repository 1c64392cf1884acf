package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/RevCBH/hpctui/internal/cli/tui"
	"github.com/RevCBH/hpctui/internal/config"
	"github.com/RevCBH/hpctui/internal/duration"
	"github.com/RevCBH/hpctui/internal/events"
	"github.com/RevCBH/hpctui/internal/logger"
	"github.com/RevCBH/hpctui/internal/tracker"
	"github.com/RevCBH/hpctui/internal/tunnel"
)

// sessionOptions controls how a job is followed
type sessionOptions struct {
	// submitted emits job.submitted before tracking starts
	submitted bool

	noTUI    bool
	noTunnel bool

	// open launches the browser once the service is reachable
	open bool
}

func (o *sessionOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.noTUI, "no-tui", false, "Print events as lines instead of the interactive view")
	cmd.Flags().BoolVar(&o.noTunnel, "no-tunnel", false, "Do not forward the service port to localhost")
	cmd.Flags().BoolVar(&o.open, "open", false, "Open the service in a browser once it is ready")
}

// runSession tracks jobID until it ends, its service fails to start, or the
// user stops tracking. Tunnels opened on the way are closed before it returns.
func (a *App) runSession(cmd *cobra.Command, t *target, jobID string, opts sessionOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	ctx = logger.WithJob(ctx, t.name, jobID)
	started := time.Now()

	out := cmd.OutOrStdout()
	bus := events.NewBus(256)
	log := a.logger

	// Output: JSON lines, the TUI, or plain lines
	var (
		program     *tea.Program
		bridge      *tui.Bridge
		logWriter   *tui.LogWriter
		programDone chan struct{}
	)
	jsonMode := a.jsonMode()
	switch {
	case jsonMode:
		bus.Subscribe(events.JSONEmitterHandler(events.NewJSONEmitter(out), log))
	case !opts.noTUI:
		model := tui.NewModel(t.name, jobID)
		model.ShellHint = func(node string) string { return shellHint(t.cluster, node) }
		model.OpenURL = openURL
		program = tea.NewProgram(model, tea.WithAltScreen())
		logWriter = tui.NewLogWriter(program)
		log = logger.New(logWriter, a.cfg.LogLevel)
		bridge = tui.NewBridge(program)
		bus.Subscribe(bridge.Handler())
	default:
		bus.Subscribe(func(e events.Event) {
			displayEvent(out, e)
			if e.Type != events.EndpointReady {
				return
			}
			if payload, ok := e.Payload.(map[string]any); ok {
				if node, ok := payload["node"].(string); ok && node != "" {
					fmt.Fprintf(out, "  shell: %s\n", shellHint(t.cluster, node))
				}
			}
		})
	}

	// events carry their own cluster and job fields
	base := log
	if a.verbose && !jsonMode && program == nil {
		bus.Subscribe(events.LogHandler(events.LogConfig{Writer: cmd.ErrOrStderr(), IncludePayload: true}))
	} else {
		bus.Subscribe(events.SlogHandler(base))
	}
	log = logger.FromContext(ctx, base)

	tunnels := tunnel.NewManager(tunnel.Config{
		Command: a.cfg.SSH.Command,
		Cluster: t.name,
		Bus:     bus,
		Logger:  log,
	})
	defer tunnels.CloseAll()

	tr := tracker.New(t.sched, jobID, tracker.Options{
		Cluster:      t.name,
		PollInterval: a.pollInterval(),
		Resolve: tracker.ResolveOptions{
			Attempts:    a.cfg.Tracker.URLAttempts,
			Delay:       a.urlDelay(),
			DefaultPort: t.cluster.ServicePort,
		},
		OnEndpoint: func(ep tracker.Endpoint) {
			if !opts.noTunnel {
				a.openTunnel(ctx, tunnels, t, ep, log)
			}
			if opts.open {
				if err := openURL(ep.LocalURL); err != nil {
					log.Warn("could not open browser", "url", ep.LocalURL, "error", err)
				}
			}
		},
		Bus:    bus,
		Logger: base.With("cluster", t.name),
	})

	handler := NewSignalHandler(cancel, log)
	handler.OnShutdown(tr.Abandon)
	handler.OnShutdown(tunnels.CloseAll)
	handler.Start()
	defer handler.Stop()

	if program != nil {
		programDone = make(chan struct{})
		go func() {
			defer close(programDone)
			if _, err := program.Run(); err != nil {
				log.Error("TUI error", "error", err)
			}
			// the view is gone: stop tracking, leave the job alone
			tr.Abandon()
		}()
	}

	if opts.submitted {
		bus.Emit(events.NewEvent(events.JobSubmitted, jobID).WithCluster(t.name))
	}

	res, runErr := tr.Run(ctx)

	// let an interrupt in progress finish closing tunnels before the bus closes
	handler.Stop()
	for _, h := range tunnels.Handles() {
		log.Debug("closing tunnel", "local_port", h.LocalPort, "remote_host", h.RemoteHost, "session", h.Session)
	}
	tunnels.CloseAll()
	_ = bus.Close()
	if program != nil {
		bridge.SendDone()
		<-programDone
		_ = logWriter.Close()
	}

	if !jsonMode {
		displaySessionResult(out, t.name, res, time.Since(started))
	}
	return sessionError(res, runErr)
}

// openTunnel forwards the endpoint port to localhost.
func (a *App) openTunnel(ctx context.Context, tunnels *tunnel.Manager, t *target, ep tracker.Endpoint, log *slog.Logger) {
	spec := tunnel.Spec{
		LocalPort:  ep.Port,
		RemoteHost: t.cluster.TunnelHost(ep.Node),
		RemotePort: ep.Port,
		Proxy:      t.cluster.ProxyJump,
	}
	if _, err := tunnels.Open(ctx, spec); err != nil {
		log.Warn("could not open tunnel", "local_port", spec.LocalPort, "remote_host", spec.RemoteHost, "error", err)
	}
}

// shellHint is the ssh command that reaches node directly.
func shellHint(cluster config.ClusterConfig, node string) string {
	hint := "ssh -t"
	if cluster.ProxyJump != "" {
		hint += " -J " + cluster.ProxyJump
	}
	return hint + " " + cluster.TunnelHost(node)
}

// sessionError turns the tracking outcome into the command's error.
func sessionError(res tracker.Result, runErr error) error {
	switch {
	case runErr != nil && !errors.Is(runErr, context.Canceled):
		return runErr
	case res.EndpointErr != nil:
		return fmt.Errorf("job %s: %w", res.JobID, res.EndpointErr)
	case res.Phase == tracker.PhaseFailed, res.Phase == tracker.PhaseTimedOut:
		return fmt.Errorf("job %s %s (%s)", res.JobID, res.Phase, res.Native)
	}
	return nil
}

func displaySessionResult(out io.Writer, cluster string, res tracker.Result, tracked time.Duration) {
	switch res.Phase {
	case tracker.PhaseAbandoned, tracker.PhaseSubmitted, tracker.PhasePending, tracker.PhaseRunning:
		fmt.Fprintf(out, "Stopped tracking job %s; it is still on %s.\n", res.JobID, cluster)
		fmt.Fprintf(out, "Reattach with: hpctui connect -c %s %s\n", cluster, res.JobID)
	default:
		native := ""
		if res.Native != "" {
			native = " (" + res.Native + ")"
		}
		fmt.Fprintf(out, "Job %s %s%s after %s of tracking\n", res.JobID, res.Phase, native, duration.FormatElapsed(int(tracked.Seconds())))
	}
}
