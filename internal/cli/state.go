package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RevCBH/hpctui/internal/scheduler"
)

// NewStateCmd creates the 'state' command, a single state query
func NewStateCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "state <job-id>",
		Short: "Query the state of one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			if !scheduler.IsJobID(jobID) {
				return fmt.Errorf("%w: %q", scheduler.ErrInvalidJobID, jobID)
			}
			t, err := a.target()
			if err != nil {
				return err
			}

			status := t.sched.QueryState(cmd.Context(), jobID)

			if a.jsonMode() {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"cluster": t.name,
					"job":     jobID,
					"state":   string(status.State),
					"native":  status.Native,
				})
			}
			native := status.Native
			if native == "" {
				native = "no answer"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (%s)\n", jobID, GetStateSymbol(status.State), status.State, native)
			return nil
		},
	}
}
