package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RevCBH/hpctui/internal/scheduler"
)

// NewJobsCmd creates the 'jobs' command for listing the user's jobs
// Flags: --state (string, comma-separated filter), --watch (refresh interval)
func NewJobsCmd(a *App) *cobra.Command {
	var (
		stateFilter string
		watch       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List your jobs on a cluster",
		Long: `List the configured user's jobs on the selected cluster.

Use --state to filter by normalized state (comma-separated values).
Valid states: pending, running, finishing, completed, failed, cancelled, timed_out, unknown

Use --watch 30s to refresh the list until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := a.owner()
			if err != nil {
				return err
			}
			t, err := a.target()
			if err != nil {
				return err
			}

			list := func(ctx context.Context) error {
				jobs, err := t.sched.ListJobs(ctx, owner)
				if err != nil {
					return err
				}
				if stateFilter != "" {
					jobs = filterJobs(jobs, parseStateFilter(stateFilter))
				}

				if a.jsonMode() {
					if jobs == nil {
						jobs = []scheduler.Job{}
					}
					return writeJSON(cmd.OutOrStdout(), jobs)
				}
				displayJobs(cmd.OutOrStdout(), jobs)
				return nil
			}

			if watch <= 0 {
				return list(cmd.Context())
			}
			return a.watchJobs(cmd, t.name, watch, list)
		},
	}

	cmd.Flags().StringVar(&stateFilter, "state", "", "Filter by state (comma-separated)")
	cmd.Flags().DurationVar(&watch, "watch", 0, "Refresh the list at this interval (e.g. 30s)")

	return cmd
}

// watchJobs repeats list every interval until the context ends or the user
// interrupts. A failed refresh is reported and the loop keeps going.
func (a *App) watchJobs(cmd *cobra.Command, cluster string, interval time.Duration, list func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !a.jsonMode() {
			fmt.Fprintf(out, "Every %s: jobs on %s  %s\n\n", interval, cluster, time.Now().Format(time.TimeOnly))
		}
		if err := list(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.logger.Warn("job list refresh failed", "cluster", cluster, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if !a.jsonMode() {
			fmt.Fprintln(out)
		}
	}
}

// parseStateFilter splits comma-separated state values and trims whitespace
func parseStateFilter(filter string) []string {
	parts := strings.Split(filter, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(p))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func filterJobs(jobs []scheduler.Job, states []string) []scheduler.Job {
	keep := make(map[string]bool, len(states))
	for _, s := range states {
		keep[s] = true
	}
	var out []scheduler.Job
	for _, j := range jobs {
		if keep[string(j.State)] {
			out = append(out, j)
		}
	}
	return out
}
