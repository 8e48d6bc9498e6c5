//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr detaches the daemon from the console so it survives
// supervisor exit.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | 0x00000008, // DETACHED_PROCESS
	}
}
