package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RevCBH/hpctui/internal/duration"
)

// NewDurationCmd creates the 'duration' command, which shows how a duration
// phrase is read and rendered for each scheduler.
func NewDurationCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "duration <text>",
		Short: "Show how a duration is sent to each scheduler",
		Example: `  hpctui duration 1d 6h 30m
  hpctui duration 12:30:00`,
		Args: cobra.MinimumNArgs(1),
		// no config or cluster involved
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			d, err := duration.Parse(text)
			if err != nil {
				return err
			}

			if a.jsonMode() {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"input":   text,
					"minutes": d.Minutes(),
					"human":   d.Human(),
					"slurm":   d.Slurm(),
					"oar":     d.OAR(),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "minutes: %d\n", d.Minutes())
			fmt.Fprintf(out, "human:   %s\n", d.Human())
			fmt.Fprintf(out, "slurm:   %s\n", d.Slurm())
			fmt.Fprintf(out, "oar:     %s\n", d.OAR())
			return nil
		},
	}
}
