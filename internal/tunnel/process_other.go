//go:build !linux

package tunnel

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}
