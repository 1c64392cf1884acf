package cli

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openURL opens a URL in the desktop browser. Replaced in tests.
var openURL = openBrowser

// browserCommand returns the opener for goos.
func browserCommand(goos string) string {
	if goos == "darwin" {
		return "open"
	}
	return "xdg-open"
}

func openBrowser(url string) error {
	cmd := exec.Command(browserCommand(runtime.GOOS), url)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	// the opener hands off to the browser and exits quickly
	go func() { _ = cmd.Wait() }()
	return nil
}
