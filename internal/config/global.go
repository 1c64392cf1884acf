package config

import (
	"os"
	"path/filepath"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".hpctui"

// DefaultPath returns ~/.hpctui/config.yaml. When the home directory cannot
// be determined it returns a path relative to the working directory.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DirName, "config.yaml")
	}
	return filepath.Join(homeDir, DirName, "config.yaml")
}

// ExpandHome expands a leading ~ in path.
func ExpandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}

// ScriptsDir returns ~/.hpctui/scripts, where user job script templates
// override the built-in ones.
func ScriptsDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, DirName, "scripts")
}
