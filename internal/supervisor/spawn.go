package supervisor

import (
	"os"
	"os/exec"
	"path/filepath"
)

// child tracks a freshly spawned daemon for the duration of one start
// invocation. The process is detached and meant to outlive us; the reaper
// goroutine only exists so the readiness loop can notice an early death
// without leaving a zombie behind.
type child struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// spawnDetached launches the daemon in its own session with stdout/stderr
// redirected to an appending file descriptor. The fd is handed to the child
// directly (no in-process pipe) so its output keeps flowing after the
// supervisor exits.
func spawnDetached(path string, args []string, logPath string) (*child, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return nil, err
	}
	logf, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	// #nosec G204 -- path was resolved via LookPath, args come from the profile
	cmd := exec.Command(path, args...)
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	configureSysProcAttr(cmd)
	if err := cmd.Start(); err != nil {
		_ = logf.Close()
		return nil, err
	}
	// The child holds its own duplicated fd now.
	_ = logf.Close()

	c := &child{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(c.done)
	}()
	return c, nil
}

func (c *child) pid() int { return c.cmd.Process.Pid }

// exited reports whether the child has already terminated.
func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
