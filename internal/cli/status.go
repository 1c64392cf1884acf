package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/RevCBH/hpctui/internal/scheduler"
)

// ClusterStatus is one cluster's section of the status report
type ClusterStatus struct {
	Name      string           `json:"name"`
	Scheduler scheduler.Kind   `json:"scheduler"`
	Host      string           `json:"host"`
	Storage   string           `json:"storage,omitempty"`
	Jobs      []scheduler.Job  `json:"jobs"`
	Nodes     []scheduler.Node `json:"nodes,omitempty"`
	Summary   *NodeSummary     `json:"summary,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// NewStatusCmd creates the status command
func NewStatusCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show jobs and nodes on every enabled cluster",
		Long: `Query every enabled cluster (or only --cluster) for your jobs and its
node occupancy. Clusters are queried concurrently; an unreachable cluster is
reported in its own section.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := app.owner()
			if err != nil {
				return err
			}
			report, err := app.collectStatus(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if app.jsonMode() {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			displayStatus(cmd.OutOrStdout(), report)
			return nil
		},
	}

	return cmd
}

// collectStatus queries jobs and nodes of every selected cluster concurrently.
func (a *App) collectStatus(ctx context.Context, owner string) ([]ClusterStatus, error) {
	names := a.enabledClusters()
	report := make([]ClusterStatus, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		t, err := a.targetFor(name)
		if err != nil {
			return nil, err
		}
		report[i] = ClusterStatus{
			Name:      name,
			Scheduler: t.cluster.Kind(),
			Host:      t.cluster.Host,
			Storage:   t.cluster.Storage,
		}
		st := &report[i]

		var jobsErr, nodesErr error
		inner, innerCtx := errgroup.WithContext(ctx)
		inner.Go(func() error {
			st.Jobs, jobsErr = t.sched.ListJobs(innerCtx, owner)
			return nil
		})
		inner.Go(func() error {
			st.Nodes, nodesErr = t.sched.ListNodes(innerCtx)
			return nil
		})
		g.Go(func() error {
			_ = inner.Wait()
			switch {
			case jobsErr != nil:
				st.Error = jobsErr.Error()
			case nodesErr != nil:
				st.Error = nodesErr.Error()
			}
			if st.Jobs == nil {
				st.Jobs = []scheduler.Job{}
			}
			if len(st.Nodes) > 0 {
				summary := summarizeNodes(st.Nodes)
				st.Summary = &summary
			}
			a.logger.Debug("cluster status collected", "cluster", st.Name, "jobs", len(st.Jobs), "nodes", len(st.Nodes))
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func displayStatus(out io.Writer, report []ClusterStatus) {
	for i, st := range report {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s (%s, %s)\n", st.Name, st.Scheduler, st.Host)
		if st.Storage != "" {
			fmt.Fprintf(out, "Storage: %s\n", st.Storage)
		}
		if st.Error != "" {
			fmt.Fprintf(out, "Error: %s\n", st.Error)
			continue
		}
		displayJobs(out, st.Jobs)
		if st.Summary != nil {
			fmt.Fprintln(out, st.Summary)
		}
	}
}
