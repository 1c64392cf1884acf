package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/RevCBH/hpctui/internal/config"
)

// versionReport is what 'version' prints
type versionReport struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	Built       string `json:"built"`
	Go          string `json:"go"`
	Platform    string `json:"platform"`
	Config      string `json:"config"`
	ConfigFound bool   `json:"config_found"`
	Scripts     string `json:"scripts"`
}

// NewVersionCmd creates the version command. It reports the build and where
// configuration and script overrides are read from, without loading them.
func NewVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build and configuration locations",
		Args:  cobra.NoArgs,
		// version needs no config
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			report := app.versionReport()
			if app.jsonMode() {
				return writeJSON(cmd.OutOrStdout(), report)
			}

			found := "not found, using defaults"
			if report.ConfigFound {
				found = "found"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hpctui %s (commit %s, built %s)\n", report.Version, report.Commit, report.Built)
			fmt.Fprintf(out, "%s %s\n", report.Go, report.Platform)
			fmt.Fprintf(out, "config:  %s (%s)\n", report.Config, found)
			fmt.Fprintf(out, "scripts: %s\n", orDash(report.Scripts))
			return nil
		},
	}
}

func (a *App) versionReport() versionReport {
	report := versionReport{
		Version:  orDefault(a.versionInfo.Version, "dev"),
		Commit:   orDefault(a.versionInfo.Commit, "unknown"),
		Built:    orDefault(a.versionInfo.Date, "unknown"),
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Config:   a.configFile(),
		Scripts:  config.ScriptsDir(),
	}
	if _, err := os.Stat(report.Config); err == nil {
		report.ConfigFound = true
	}
	return report
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
