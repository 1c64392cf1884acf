package config

import "os"

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string)
}{
	{
		envVar: "HPCTUI_USER",
		apply: func(c *Config, v string) {
			c.User.Username = v
		},
	},
	{
		envVar: "HPCTUI_EMAIL",
		apply: func(c *Config, v string) {
			c.User.Email = v
		},
	},
	{
		envVar: "HPCTUI_SSH_COMMAND",
		apply: func(c *Config, v string) {
			c.SSH.Command = v
		},
	},
	{
		envVar: "HPCTUI_LOG_LEVEL",
		apply: func(c *Config, v string) {
			c.LogLevel = v
		},
	},
	{
		envVar: "HPCTUI_CLUSTER",
		apply: func(c *Config, v string) {
			c.DefaultCluster = v
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			override.apply(cfg, val)
		}
	}
}
