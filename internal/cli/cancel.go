package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCancelCmd creates the 'cancel' command
// Flags: --all (bool)
func NewCancelCmd(a *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "cancel [job-id]",
		Short: "Cancel a job, or all of your jobs with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("give either a job id or --all")
			}
			t, err := a.target()
			if err != nil {
				return err
			}

			if all {
				owner, err := a.owner()
				if err != nil {
					return err
				}
				if err := t.sched.CancelAll(cmd.Context(), owner); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled all jobs of %s on %s\n", owner, t.name)
				return nil
			}

			if err := t.sched.Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled job %s on %s\n", args[0], t.name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Cancel every job of the configured user")

	return cmd
}
