package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RevCBH/hpctui/internal/duration"
	"github.com/RevCBH/hpctui/internal/scheduler"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	if cfg.SSH.Command == "" {
		errs = append(errs, &ValidationError{
			Field:   "ssh.command",
			Value:   cfg.SSH.Command,
			Message: "must not be empty",
		})
	}

	errs = appendDuration(errs, "ssh.connect_timeout", cfg.SSH.ConnectTimeout)
	errs = appendDuration(errs, "ssh.command_timeout", cfg.SSH.CommandTimeout)
	errs = appendDuration(errs, "tracker.poll_interval", cfg.Tracker.PollInterval)
	errs = appendDuration(errs, "tracker.url_delay", cfg.Tracker.URLDelay)

	if cfg.Tracker.URLAttempts < 1 {
		errs = append(errs, &ValidationError{
			Field:   "tracker.url_attempts",
			Value:   cfg.Tracker.URLAttempts,
			Message: "must be at least 1",
		})
	}

	// LogLevel must be one of: debug, info, warn, error (case-sensitive)
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of: debug, info, warn, error",
		})
	}

	if _, ok := cfg.Clusters[cfg.DefaultCluster]; !ok {
		errs = append(errs, &ValidationError{
			Field:   "default_cluster",
			Value:   cfg.DefaultCluster,
			Message: "must name a configured cluster",
		})
	}

	names := make([]string, 0, len(cfg.Clusters))
	for name := range cfg.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		errs = append(errs, validateCluster(name, cfg.Clusters[name])...)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateCluster(name string, c ClusterConfig) []error {
	var errs []error
	field := func(f string) string { return fmt.Sprintf("clusters.%s.%s", name, f) }

	switch c.Kind() {
	case scheduler.KindSlurm, scheduler.KindOAR:
	default:
		errs = append(errs, &ValidationError{
			Field:   field("scheduler"),
			Value:   c.Scheduler,
			Message: "must be 'slurm' or 'oar'",
		})
	}

	if c.Host == "" || strings.HasPrefix(c.Host, "-") {
		errs = append(errs, &ValidationError{
			Field:   field("host"),
			Value:   c.Host,
			Message: "must be an ssh host alias",
		})
	}

	if strings.HasPrefix(c.ProxyJump, "-") {
		errs = append(errs, &ValidationError{
			Field:   field("proxy_jump"),
			Value:   c.ProxyJump,
			Message: "must be an ssh host alias",
		})
	}

	if c.ServicePort < 1 || c.ServicePort > 65535 {
		errs = append(errs, &ValidationError{
			Field:   field("service_port"),
			Value:   c.ServicePort,
			Message: "must be between 1 and 65535",
		})
	}

	if d, err := duration.Parse(c.DefaultTime); err != nil || d <= 0 {
		errs = append(errs, &ValidationError{
			Field:   field("default_time"),
			Value:   c.DefaultTime,
			Message: "must be a positive duration such as 8h or 1d 6h",
		})
	}

	if c.Cores < 0 || c.GPUs < 0 {
		errs = append(errs, &ValidationError{
			Field:   field("cores/gpus"),
			Value:   fmt.Sprintf("%d/%d", c.Cores, c.GPUs),
			Message: "must be non-negative",
		})
	}

	return errs
}

func appendDuration(errs []error, field, value string) []error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return append(errs, &ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("invalid duration: %v", err),
		})
	}
	if d <= 0 {
		return append(errs, &ValidationError{
			Field:   field,
			Value:   value,
			Message: "must be positive",
		})
	}
	return errs
}
