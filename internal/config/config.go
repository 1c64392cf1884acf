package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RevCBH/hpctui/internal/duration"
	"github.com/RevCBH/hpctui/internal/scheduler"
)

var (
	// ErrUnknownCluster is returned by Cluster for names with no entry
	ErrUnknownCluster = errors.New("unknown cluster")

	// ErrClusterDisabled is returned by Cluster for entries with enabled: false
	ErrClusterDisabled = errors.New("cluster disabled")
)

// Config holds all hpctui configuration.
// It is immutable after creation via LoadConfig().
type Config struct {
	// User identifies the cluster account
	User UserConfig `yaml:"user"`

	// SSH controls the remote execution channel
	SSH SSHConfig `yaml:"ssh"`

	// Tracker controls job polling and endpoint resolution
	Tracker TrackerConfig `yaml:"tracker"`

	// DefaultCluster is used when --cluster is not given
	DefaultCluster string `yaml:"default_cluster"`

	// Clusters maps a short name to its scheduler settings
	Clusters map[string]ClusterConfig `yaml:"clusters"`

	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// UserConfig identifies the remote account.
type UserConfig struct {
	// Username owns the listed and cancelled jobs
	Username string `yaml:"username"`

	// Email receives scheduler notifications (optional)
	Email string `yaml:"email"`
}

// SSHConfig controls ssh invocation.
type SSHConfig struct {
	// Command is the path or name of the ssh binary
	Command string `yaml:"command"`

	// ConnectTimeout is passed to ssh as ConnectTimeout
	ConnectTimeout string `yaml:"connect_timeout"`

	// CommandTimeout bounds each remote scheduler command
	CommandTimeout string `yaml:"command_timeout"`
}

// TrackerConfig controls job tracking.
type TrackerConfig struct {
	// PollInterval is how often the job state is queried
	PollInterval string `yaml:"poll_interval"`

	// URLAttempts is how many times the service URL is looked up
	URLAttempts int `yaml:"url_attempts"`

	// URLDelay separates service URL lookups
	URLDelay string `yaml:"url_delay"`
}

// ClusterConfig describes one cluster reachable through an ssh alias.
type ClusterConfig struct {
	// Scheduler is "slurm" or "oar"
	Scheduler string `yaml:"scheduler"`

	// Host is the ssh alias of the login node
	Host string `yaml:"host"`

	Enabled bool `yaml:"enabled"`

	// ServicePort is where notebook jobs listen and where tunnels bind locally
	ServicePort int `yaml:"service_port"`

	// Partition restricts SLURM node listings
	Partition string `yaml:"partition,omitempty"`

	// Property is the OAR resource filter
	Property string `yaml:"property,omitempty"`

	// NodeDomain is appended to node names when tunnelling
	NodeDomain string `yaml:"node_domain,omitempty"`

	// ProxyJump is the ssh jump host for tunnels (empty = direct)
	ProxyJump string `yaml:"proxy_jump,omitempty"`

	// Storage is shown in status output
	Storage string `yaml:"storage,omitempty"`

	// Submission defaults
	DefaultTime string `yaml:"default_time"`
	Cores       int    `yaml:"cores,omitempty"`
	GPUType     string `yaml:"gpu_type,omitempty"`
	GPUs        int    `yaml:"gpus,omitempty"`
	JobName     string `yaml:"job_name,omitempty"`
}

// Kind returns the scheduler variant of the cluster.
func (c ClusterConfig) Kind() scheduler.Kind {
	return scheduler.Kind(c.Scheduler)
}

// DefaultDuration parses DefaultTime with the duration codec.
func (c ClusterConfig) DefaultDuration() (duration.Duration, error) {
	return duration.Parse(c.DefaultTime)
}

// TunnelHost returns the host a tunnel to node must target.
func (c ClusterConfig) TunnelHost(node string) string {
	if c.NodeDomain == "" {
		return node
	}
	return node + "." + c.NodeDomain
}

// Cluster returns the named cluster, or the default cluster when name is empty.
func (c *Config) Cluster(name string) (ClusterConfig, error) {
	if name == "" {
		name = c.DefaultCluster
	}
	cl, ok := c.Clusters[name]
	if !ok {
		return ClusterConfig{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownCluster, name, c.ClusterNames())
	}
	if !cl.Enabled {
		return ClusterConfig{}, fmt.Errorf("%w: %q", ErrClusterDisabled, name)
	}
	return cl, nil
}

// ClusterNames returns the configured cluster names in sorted order.
func (c *Config) ClusterNames() []string {
	names := make([]string, 0, len(c.Clusters))
	for name := range c.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConnectTimeoutDuration parses ssh.connect_timeout as a Duration.
func (c *Config) ConnectTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.SSH.ConnectTimeout)
}

// CommandTimeoutDuration parses ssh.command_timeout as a Duration.
func (c *Config) CommandTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.SSH.CommandTimeout)
}

// PollIntervalDuration parses tracker.poll_interval as a Duration.
func (c *Config) PollIntervalDuration() (time.Duration, error) {
	return time.ParseDuration(c.Tracker.PollInterval)
}

// URLDelayDuration parses tracker.url_delay as a Duration.
func (c *Config) URLDelayDuration() (time.Duration, error) {
	return time.ParseDuration(c.Tracker.URLDelay)
}

// LoadConfig loads configuration from path.
// It applies defaults, then file values, then environment overrides,
// then validates.
//
// A missing file is not an error. Cluster entries in the file are merged
// over the built-in cluster of the same name.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// decode unmarshals data over cfg. yaml.v3 replaces map values wholesale,
// so clusters are decoded one by one on top of their defaults.
func decode(data []byte, cfg *Config) error {
	defaults := cfg.Clusters
	cfg.Clusters = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}

	var raw struct {
		Clusters map[string]yaml.Node `yaml:"clusters"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Clusters) == 0 {
		cfg.Clusters = defaults
		return nil
	}

	merged := make(map[string]ClusterConfig, len(defaults)+len(raw.Clusters))
	for name, cl := range defaults {
		merged[name] = cl
	}
	for name, node := range raw.Clusters {
		cl, ok := defaults[name]
		if !ok {
			cl = ClusterConfig{Enabled: true, DefaultTime: DefaultSubmitTime}
		}
		if err := node.Decode(&cl); err != nil {
			return fmt.Errorf("clusters.%s: %w", name, err)
		}
		merged[name] = cl
	}
	cfg.Clusters = merged
	return nil
}
