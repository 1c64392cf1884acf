package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/RevCBH/hpctui/internal/config"
	"github.com/RevCBH/hpctui/internal/events"
	"github.com/RevCBH/hpctui/internal/logger"
	"github.com/RevCBH/hpctui/internal/remote"
	"github.com/RevCBH/hpctui/internal/scheduler"
)

// ErrNoUsername is returned by commands that act on the user's jobs when no
// username is configured.
var ErrNoUsername = errors.New("user.username is not set (config file or HPCTUI_USER)")

// VersionInfo holds build-time version information
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// App represents the CLI application with all wired dependencies
type App struct {
	// Root command
	rootCmd *cobra.Command

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *slog.Logger

	// Persistent flags
	configPath string
	cluster    string
	verbose    bool
	jsonOut    bool

	// executor overrides the ssh executor (tests)
	executor remote.Executor

	versionInfo VersionInfo
}

// New creates a new CLI application
func New() *App {
	app := &App{
		logger: logger.Discard(),
	}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// ExecuteContext runs the CLI application with ctx
func (a *App) ExecuteContext(ctx context.Context) error {
	return a.rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string for the version command
func (a *App) SetVersion(version, commit, date string) {
	a.versionInfo = VersionInfo{Version: version, Commit: commit, Date: date}
}

// SetExecutor replaces the ssh executor used to reach clusters.
func (a *App) SetExecutor(e remote.Executor) {
	a.executor = e
}

// setupRootCmd configures the root Cobra command
func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "hpctui",
		Short: "Batch jobs on SLURM and OAR clusters over ssh",
		Long: `hpctui lists, submits, tracks and cancels batch jobs on SLURM and OAR
clusters through ssh, and forwards notebook services running inside jobs
to localhost.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
	}

	flags := a.rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default ~/.hpctui/config.yaml)")
	flags.StringVarP(&a.cluster, "cluster", "c", "", "Cluster name (default from config)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	flags.BoolVar(&a.jsonOut, "json", false, "JSON output")

	a.rootCmd.AddCommand(
		NewJobsCmd(a),
		NewNodesCmd(a),
		NewStatusCmd(a),
		NewSubmitCmd(a),
		NewConnectCmd(a),
		NewCancelCmd(a),
		NewStateCmd(a),
		NewShellCmd(a),
		NewDurationCmd(a),
		NewVersionCmd(a),
	)
}

// configFile is the --config path, or the default location.
func (a *App) configFile() string {
	if path := config.ExpandHome(a.configPath); path != "" {
		return path
	}
	return config.DefaultPath()
}

// loadConfig loads the config file and sets up logging.
func (a *App) loadConfig(cmd *cobra.Command, args []string) error {
	path := a.configFile()

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}

	a.cfg = cfg
	a.logger = logger.New(cmd.ErrOrStderr(), cfg.LogLevel)
	return nil
}

// jsonMode reports whether output should be JSON.
func (a *App) jsonMode() bool {
	return events.IsJSONMode(a.jsonOut, a.rootCmd.OutOrStdout())
}

// target is one resolved cluster ready to be driven.
type target struct {
	name    string
	cluster config.ClusterConfig
	sched   scheduler.Scheduler
}

// target resolves the --cluster flag (or the default cluster).
func (a *App) target() (*target, error) {
	return a.targetFor(a.cluster)
}

func (a *App) targetFor(name string) (*target, error) {
	if name == "" {
		name = a.cfg.DefaultCluster
	}
	cluster, err := a.cfg.Cluster(name)
	if err != nil {
		return nil, err
	}

	timeout, err := a.cfg.CommandTimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid ssh command timeout: %w", err)
	}

	scripts, err := scheduler.LoadScripts(config.ScriptsDir())
	if err != nil {
		return nil, err
	}

	sched, err := scheduler.New(cluster.Kind(), a.remote(), scheduler.Options{
		Host:      cluster.Host,
		Partition: cluster.Partition,
		Property:  cluster.Property,
		Timeout:   timeout,
		Scripts:   scripts,
		Logger:    a.logger.With("cluster", name),
	})
	if err != nil {
		return nil, err
	}
	return &target{name: name, cluster: cluster, sched: sched}, nil
}

// remote returns the executor used for scheduler commands.
func (a *App) remote() remote.Executor {
	if a.executor != nil {
		return a.executor
	}
	return a.ssh()
}

func (a *App) ssh() *remote.SSH {
	connect, err := a.cfg.ConnectTimeoutDuration()
	if err != nil {
		connect = remote.DefaultConnectTimeout
	}
	return remote.NewSSH(remote.SSHConfig{
		Command:        a.cfg.SSH.Command,
		ConnectTimeout: connect,
		Logger:         a.logger,
	})
}

// owner returns the configured username.
func (a *App) owner() (string, error) {
	if a.cfg.User.Username == "" {
		return "", ErrNoUsername
	}
	return a.cfg.User.Username, nil
}

// enabledClusters returns the names status should cover.
func (a *App) enabledClusters() []string {
	if a.cluster != "" {
		return []string{a.cluster}
	}
	var names []string
	for _, name := range a.cfg.ClusterNames() {
		if a.cfg.Clusters[name].Enabled {
			names = append(names, name)
		}
	}
	return names
}

// pollInterval returns the tracker poll interval from config.
func (a *App) pollInterval() time.Duration {
	d, err := a.cfg.PollIntervalDuration()
	if err != nil {
		return 0
	}
	return d
}

func (a *App) urlDelay() time.Duration {
	d, err := a.cfg.URLDelayDuration()
	if err != nil {
		return 0
	}
	return d
}
