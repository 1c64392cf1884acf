package cli

import (
	"github.com/spf13/cobra"

	"github.com/RevCBH/hpctui/internal/scheduler"
)

// NewNodesCmd creates the 'nodes' command
func NewNodesCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "Show per-node occupancy (SLURM clusters)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.target()
			if err != nil {
				return err
			}

			nodes, err := t.sched.ListNodes(cmd.Context())
			if err != nil {
				return err
			}

			if a.jsonMode() {
				if nodes == nil {
					nodes = []scheduler.Node{}
				}
				return writeJSON(cmd.OutOrStdout(), struct {
					Nodes   []scheduler.Node `json:"nodes"`
					Summary NodeSummary      `json:"summary"`
				}{nodes, summarizeNodes(nodes)})
			}
			displayNodes(cmd.OutOrStdout(), nodes)
			return nil
		},
	}
}
