package config

const (
	DefaultSSHCommand        = "ssh"
	DefaultConnectTimeout    = "10s"
	DefaultCommandTimeout    = "30s"
	DefaultPollInterval      = "5s"
	DefaultURLAttempts       = 30
	DefaultURLDelay          = "2s"
	DefaultLogLevel          = "info"
	DefaultClusterName       = "hpc"
	DefaultSubmitTime        = "8h"
	DefaultJobName           = "gpu-session"
	DefaultSlurmGPUType      = "a100_7g.80gb"
	DefaultOARProperty       = "host like 'big%'"
	DefaultOARCores          = 24
	DefaultOARServicePort    = 8888
	DefaultSlurmServicePort  = 9888
	DefaultConvergenceDomain = "convergence.lip6.fr"
)

// DefaultClusters returns the built-in cluster entries.
func DefaultClusters() map[string]ClusterConfig {
	return map[string]ClusterConfig{
		"hpc": {
			Scheduler:   "oar",
			Host:        "hpc",
			Enabled:     true,
			ServicePort: DefaultOARServicePort,
			Property:    DefaultOARProperty,
			DefaultTime: "24h",
			Cores:       DefaultOARCores,
			JobName:     "jupyter",
		},
		"conv": {
			Scheduler:   "slurm",
			Host:        "conv",
			Enabled:     true,
			ServicePort: DefaultSlurmServicePort,
			Partition:   "convergence",
			NodeDomain:  DefaultConvergenceDomain,
			ProxyJump:   "conv",
			DefaultTime: DefaultSubmitTime,
			GPUType:     DefaultSlurmGPUType,
			GPUs:        1,
			JobName:     DefaultJobName,
		},
	}
}

// DefaultConfig returns a Config with all default values applied.
func DefaultConfig() *Config {
	return &Config{
		SSH: SSHConfig{
			Command:        DefaultSSHCommand,
			ConnectTimeout: DefaultConnectTimeout,
			CommandTimeout: DefaultCommandTimeout,
		},
		Tracker: TrackerConfig{
			PollInterval: DefaultPollInterval,
			URLAttempts:  DefaultURLAttempts,
			URLDelay:     DefaultURLDelay,
		},
		DefaultCluster: DefaultClusterName,
		Clusters:       DefaultClusters(),
		LogLevel:       DefaultLogLevel,
	}
}
