package config

import "testing"

func TestDefaultConfig_SSH(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SSH.Command != "ssh" {
		t.Errorf("expected SSH.Command to be 'ssh', got %q", cfg.SSH.Command)
	}
	if cfg.SSH.ConnectTimeout != "10s" {
		t.Errorf("expected SSH.ConnectTimeout to be '10s', got %q", cfg.SSH.ConnectTimeout)
	}
	if cfg.SSH.CommandTimeout != "30s" {
		t.Errorf("expected SSH.CommandTimeout to be '30s', got %q", cfg.SSH.CommandTimeout)
	}
}

func TestDefaultConfig_Tracker(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Tracker.PollInterval != "5s" {
		t.Errorf("expected Tracker.PollInterval to be '5s', got %q", cfg.Tracker.PollInterval)
	}
	if cfg.Tracker.URLAttempts != 30 {
		t.Errorf("expected Tracker.URLAttempts to be 30, got %d", cfg.Tracker.URLAttempts)
	}
	if cfg.Tracker.URLDelay != "2s" {
		t.Errorf("expected Tracker.URLDelay to be '2s', got %q", cfg.Tracker.URLDelay)
	}
}

func TestDefaultConfig_HPCCluster(t *testing.T) {
	hpc, ok := DefaultConfig().Clusters["hpc"]
	if !ok {
		t.Fatal("expected default cluster 'hpc'")
	}
	if hpc.Scheduler != "oar" {
		t.Errorf("expected hpc scheduler 'oar', got %q", hpc.Scheduler)
	}
	if hpc.ServicePort != 8888 {
		t.Errorf("expected hpc service port 8888, got %d", hpc.ServicePort)
	}
	if hpc.Property != "host like 'big%'" {
		t.Errorf("unexpected hpc property %q", hpc.Property)
	}
	if hpc.ProxyJump != "" || hpc.NodeDomain != "" {
		t.Errorf("expected hpc tunnels to go direct, got proxy %q domain %q", hpc.ProxyJump, hpc.NodeDomain)
	}
}

func TestDefaultConfig_ConvCluster(t *testing.T) {
	conv, ok := DefaultConfig().Clusters["conv"]
	if !ok {
		t.Fatal("expected default cluster 'conv'")
	}
	if conv.Scheduler != "slurm" {
		t.Errorf("expected conv scheduler 'slurm', got %q", conv.Scheduler)
	}
	if conv.ServicePort != 9888 {
		t.Errorf("expected conv service port 9888, got %d", conv.ServicePort)
	}
	if conv.Partition != "convergence" {
		t.Errorf("expected conv partition 'convergence', got %q", conv.Partition)
	}
	if got := conv.TunnelHost("gpu03"); got != "gpu03.convergence.lip6.fr" {
		t.Errorf("expected tunnel host 'gpu03.convergence.lip6.fr', got %q", got)
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := validateConfig(DefaultConfig()); err != nil {
		t.Errorf("expected defaults to validate, got: %v", err)
	}
}
