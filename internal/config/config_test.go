package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeFile creates a file with the given content for testing
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	err := os.WriteFile(path, []byte(content), 0644)
	if err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

// clearEnv unsets every override so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, o := range envOverrides {
		t.Setenv(o.envVar, "")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SSH.Command != DefaultSSHCommand {
		t.Errorf("expected SSH.Command to be %q, got %q", DefaultSSHCommand, cfg.SSH.Command)
	}
	if cfg.DefaultCluster != DefaultClusterName {
		t.Errorf("expected DefaultCluster to be %q, got %q", DefaultClusterName, cfg.DefaultCluster)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("expected LogLevel to be %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if got := cfg.ClusterNames(); len(got) != 2 || got[0] != "conv" || got[1] != "hpc" {
		t.Errorf("expected clusters [conv hpc], got %v", got)
	}
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
user:
  username: jdoe
  email: jdoe@lip6.fr
ssh:
  command_timeout: 45s
tracker:
  poll_interval: 10s
  url_attempts: 60
default_cluster: conv
log_level: debug
clusters:
  hpc:
    storage: /data/jdoe
  conv:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.User.Username != "jdoe" || cfg.User.Email != "jdoe@lip6.fr" {
		t.Errorf("unexpected user %+v", cfg.User)
	}
	if d, _ := cfg.CommandTimeoutDuration(); d != 45*time.Second {
		t.Errorf("expected command timeout 45s, got %v", d)
	}
	if cfg.SSH.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("expected unset ConnectTimeout to keep default, got %q", cfg.SSH.ConnectTimeout)
	}
	if d, _ := cfg.PollIntervalDuration(); d != 10*time.Second {
		t.Errorf("expected poll interval 10s, got %v", d)
	}
	if cfg.Tracker.URLAttempts != 60 {
		t.Errorf("expected 60 url attempts, got %d", cfg.Tracker.URLAttempts)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel 'debug', got %q", cfg.LogLevel)
	}

	hpc := cfg.Clusters["hpc"]
	if hpc.Storage != "/data/jdoe" {
		t.Errorf("expected hpc storage '/data/jdoe', got %q", hpc.Storage)
	}
	if hpc.ServicePort != DefaultOARServicePort || hpc.Scheduler != "oar" {
		t.Errorf("expected hpc defaults to survive a partial entry, got %+v", hpc)
	}
	if cfg.Clusters["conv"].Enabled {
		t.Error("expected conv to be disabled")
	}
}

func TestLoadConfig_AddsCluster(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
clusters:
  lab:
    scheduler: slurm
    host: lab-login
    service_port: 8899
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lab, err := cfg.Cluster("lab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lab.Kind() != "slurm" || lab.Host != "lab-login" || lab.ServicePort != 8899 {
		t.Errorf("unexpected cluster %+v", lab)
	}
	if d, err := lab.DefaultDuration(); err != nil || d.Minutes() != 8*60 {
		t.Errorf("expected default time of 8h, got %v (%v)", d, err)
	}
	if len(cfg.Clusters) != 3 {
		t.Errorf("expected built-in clusters to remain, got %v", cfg.ClusterNames())
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "user:\n  username: fromfile\nlog_level: warn\n")
	t.Setenv("HPCTUI_USER", "fromenv")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.User.Username != "fromenv" {
		t.Errorf("expected env to win, got %q", cfg.User.Username)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected LogLevel 'warn', got %q", cfg.LogLevel)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "clusters: [not, a, map\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Errorf("expected parse error, got: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "clusters:\n  hpc:\n    scheduler: pbs\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "clusters.hpc.scheduler") {
		t.Errorf("expected scheduler error, got: %v", err)
	}
}

func TestConfig_Cluster(t *testing.T) {
	cfg := DefaultConfig()
	setCluster(cfg, "conv", func(cl *ClusterConfig) { cl.Enabled = false })

	hpc, err := cfg.Cluster("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hpc.Host != "hpc" {
		t.Errorf("expected default cluster hpc, got %q", hpc.Host)
	}

	if _, err := cfg.Cluster("conv"); !errors.Is(err, ErrClusterDisabled) {
		t.Errorf("expected ErrClusterDisabled, got %v", err)
	}
	if _, err := cfg.Cluster("mars"); !errors.Is(err, ErrUnknownCluster) {
		t.Errorf("expected ErrUnknownCluster, got %v", err)
	}
}

func TestClusterConfig_TunnelHost(t *testing.T) {
	direct := ClusterConfig{}
	if got := direct.TunnelHost("big12"); got != "big12" {
		t.Errorf("expected 'big12', got %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/scripts"); got != filepath.Join(home, "scripts") {
		t.Errorf("unexpected expansion %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expected absolute path unchanged, got %q", got)
	}
}
