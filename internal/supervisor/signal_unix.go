//go:build !windows

package supervisor

import (
	"errors"
	"syscall"
)

// terminate sends a graceful termination signal to pid.
func terminate(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

// alreadyDead reports whether a signal delivery error means the process was
// gone before the signal arrived, which for stop is the desired end state.
func alreadyDead(err error) bool {
	return errors.Is(err, syscall.ESRCH)
}
