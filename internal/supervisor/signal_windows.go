//go:build windows

package supervisor

import (
	"os"
	"strings"
)

// terminate kills pid. Windows has no SIGTERM; Kill is the closest
// equivalent for a console-less daemon.
func terminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

// alreadyDead reports whether a signal delivery error means the process was
// gone before the signal arrived.
func alreadyDead(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already finished") || strings.Contains(msg, "not found")
}
