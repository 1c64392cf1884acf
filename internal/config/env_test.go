package config

import (
	"testing"
)

func TestEnvOverrides_User(t *testing.T) {
	cfg := &Config{}
	t.Setenv("HPCTUI_USER", "jdoe")
	t.Setenv("HPCTUI_EMAIL", "jdoe@lip6.fr")

	applyEnvOverrides(cfg)

	if cfg.User.Username != "jdoe" {
		t.Errorf("expected User.Username to be 'jdoe', got '%s'", cfg.User.Username)
	}
	if cfg.User.Email != "jdoe@lip6.fr" {
		t.Errorf("expected User.Email to be 'jdoe@lip6.fr', got '%s'", cfg.User.Email)
	}
}

func TestEnvOverrides_SSHCommand(t *testing.T) {
	cfg := &Config{SSH: SSHConfig{Command: "ssh"}}
	t.Setenv("HPCTUI_SSH_COMMAND", "/opt/bin/ssh")

	applyEnvOverrides(cfg)

	if cfg.SSH.Command != "/opt/bin/ssh" {
		t.Errorf("expected SSH.Command to be '/opt/bin/ssh', got '%s'", cfg.SSH.Command)
	}
}

func TestEnvOverrides_LogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "info"}
	t.Setenv("HPCTUI_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel to be 'debug', got '%s'", cfg.LogLevel)
	}
}

func TestEnvOverrides_EmptyNoChange(t *testing.T) {
	cfg := &Config{
		User:           UserConfig{Username: "original-user"},
		SSH:            SSHConfig{Command: "original-ssh"},
		DefaultCluster: "hpc",
		LogLevel:       "original-level",
	}
	t.Setenv("HPCTUI_USER", "")
	t.Setenv("HPCTUI_SSH_COMMAND", "")
	t.Setenv("HPCTUI_CLUSTER", "")
	t.Setenv("HPCTUI_LOG_LEVEL", "")

	applyEnvOverrides(cfg)

	if cfg.User.Username != "original-user" {
		t.Errorf("expected User.Username to remain 'original-user', got '%s'", cfg.User.Username)
	}
	if cfg.SSH.Command != "original-ssh" {
		t.Errorf("expected SSH.Command to remain 'original-ssh', got '%s'", cfg.SSH.Command)
	}
	if cfg.DefaultCluster != "hpc" {
		t.Errorf("expected DefaultCluster to remain 'hpc', got '%s'", cfg.DefaultCluster)
	}
	if cfg.LogLevel != "original-level" {
		t.Errorf("expected LogLevel to remain 'original-level', got '%s'", cfg.LogLevel)
	}
}
