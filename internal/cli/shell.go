package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ErrNoTerminal is returned by shell when stdin is not a terminal
var ErrNoTerminal = errors.New("shell needs an interactive terminal (use --print to see the command)")

// interactiveRunner runs a command attached to the local terminal
type interactiveRunner interface {
	Interactive(ctx context.Context, host, command string) error
}

// NewShellCmd creates the 'shell' command, a terminal-only allocation
func NewShellCmd(a *App) *cobra.Command {
	var (
		res       resourceFlags
		printOnly bool
	)

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open a terminal on an allocated node (salloc / oarsub -I)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.target()
			if err != nil {
				return err
			}
			req, err := res.request(t.cluster, a.cfg.User)
			if err != nil {
				return err
			}

			line := t.sched.InteractiveCommand(req)
			if printOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "ssh -t %s %q\n", t.cluster.Host, line)
				return nil
			}

			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return ErrNoTerminal
			}

			runner, ok := a.remote().(interactiveRunner)
			if !ok {
				runner = a.ssh()
			}
			a.logger.Info("starting interactive allocation", "cluster", t.name, "command", line)
			return runner.Interactive(cmd.Context(), t.cluster.Host, line)
		},
	}

	res.bind(cmd)
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the ssh command instead of running it")

	return cmd
}
