package tunnel

import (
	"os/exec"
	"syscall"
)

// configureProcess asks the kernel to SIGTERM the forward when the thread
// that started it exits.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGTERM}
}
