package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RevCBH/hpctui/internal/scheduler"
)

// NewSubmitCmd creates the 'submit' command
// Flags: resource flags, --script, --no-wait, --no-tui, --no-tunnel
func NewSubmitCmd(a *App) *cobra.Command {
	var (
		res     resourceFlags
		session sessionOptions
		script  string
		noWait  bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a notebook job (or a remote script with --script)",
		Long: `Submit a Jupyter notebook job and follow it until its service is reachable
on localhost. With --script, submit an existing script on the cluster and
print the job id.

Resources default to the cluster's configured values.`,
		Example: `  hpctui submit -c conv --gpus 2 --time 12h
  hpctui submit -c hpc --cores 48 --time "1d 6h"
  hpctui submit -c conv --script ~/train.sh --name train`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.target()
			if err != nil {
				return err
			}
			req, err := res.request(t.cluster, a.cfg.User)
			if err != nil {
				return err
			}

			var id string
			if script != "" {
				req.ScriptPath = script
				id, err = t.sched.SubmitScript(cmd.Context(), req)
			} else {
				req.ServicePort = t.cluster.ServicePort
				id, err = t.sched.SubmitInteractive(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			a.logger.Info("job submitted", "cluster", t.name, "job", id, "time", req.Time.Human())

			if script != "" || noWait {
				return displaySubmitted(cmd, a.jsonMode(), t.name, id)
			}

			session.submitted = true
			return a.runSession(cmd, t, id, session)
		},
	}

	res.bind(cmd)
	session.bind(cmd)
	cmd.Flags().StringVar(&script, "script", "", "Submit this script on the cluster instead of a notebook")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Print the job id and exit without tracking")

	return cmd
}

func displaySubmitted(cmd *cobra.Command, jsonMode bool, cluster, id string) error {
	if jsonMode {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"cluster": cluster, "job": id})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s on %s\n", id, cluster)
	return nil
}

// NewConnectCmd creates the 'connect' command, which follows an existing job
func NewConnectCmd(a *App) *cobra.Command {
	var session sessionOptions

	cmd := &cobra.Command{
		Use:   "connect <job-id>",
		Short: "Follow a job and forward its notebook service to localhost",
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
			return a.runSession(cmd, t, jobID, session)
		},
	}

	session.bind(cmd)
	return cmd
}
