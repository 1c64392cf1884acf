package cli

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/RevCBH/hpctui/internal/config"
	"github.com/RevCBH/hpctui/internal/duration"
	"github.com/RevCBH/hpctui/internal/scheduler"
)

var jobNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// resourceFlags holds the resource flags shared by submit and shell.
// Unset flags fall back to the cluster's configured defaults.
type resourceFlags struct {
	time    duration.Duration
	cores   int
	gpuType string
	gpus    int
	name    string
	email   string

	cmd *cobra.Command
}

func (f *resourceFlags) bind(cmd *cobra.Command) {
	f.cmd = cmd
	flags := cmd.Flags()
	flags.Var(&f.time, "time", "Time limit, e.g. 8h, 3d, 1d 6h 30m (default from cluster)")
	flags.IntVar(&f.cores, "cores", 0, "Cores (OAR clusters)")
	flags.StringVar(&f.gpuType, "gpu-type", "", "GPU type (SLURM clusters)")
	flags.IntVar(&f.gpus, "gpus", 0, "GPUs per node (SLURM clusters)")
	flags.StringVar(&f.name, "name", "", "Job name")
	flags.StringVar(&f.email, "email", "", "Notification address (default user.email)")
}

// request builds a SubmitRequest for cluster.
func (f *resourceFlags) request(cluster config.ClusterConfig, user config.UserConfig) (scheduler.SubmitRequest, error) {
	changed := func(name string) bool { return f.cmd != nil && f.cmd.Flags().Changed(name) }

	t := f.time
	if !changed("time") {
		d, err := cluster.DefaultDuration()
		if err != nil {
			return scheduler.SubmitRequest{}, fmt.Errorf("cluster default_time: %w", err)
		}
		t = d
	}

	req := scheduler.SubmitRequest{
		Resources: scheduler.Resources{
			Cores:   pick(changed("cores"), f.cores, cluster.Cores),
			GPUType: pick(changed("gpu-type"), f.gpuType, cluster.GPUType),
			GPUs:    pick(changed("gpus"), f.gpus, cluster.GPUs),
		},
		Time:  t,
		Name:  pick(changed("name"), f.name, cluster.JobName),
		Email: pick(changed("email"), f.email, user.Email),
	}

	if req.Name != "" && !jobNamePattern.MatchString(req.Name) {
		return scheduler.SubmitRequest{}, fmt.Errorf("%w: job name %q may only contain letters, digits, '.', '_' and '-'", scheduler.ErrInvalidRequest, req.Name)
	}
	return req, nil
}

func pick[T any](useFlag bool, flag, fallback T) T {
	if useFlag {
		return flag
	}
	return fallback
}
