package supervisor

import (
	"fmt"
	"time"
)

// PortConflictError reports that the requested port is already held by a
// process the supervisor does not own.
type PortConflictError struct {
	Port        int
	PID         int32
	ProcessName string
}

func (e *PortConflictError) Error() string {
	who := "unknown process"
	if e.ProcessName != "" {
		who = e.ProcessName
	}
	if e.PID > 0 {
		return fmt.Sprintf("port %d is already in use by %s (pid %d)", e.Port, who, e.PID)
	}
	return fmt.Sprintf("port %d is already in use by %s", e.Port, who)
}

// StartupTimeoutError reports that the daemon was spawned but never answered
// its readiness probe within the configured budget. Died distinguishes a
// process that exited during startup from one that is slow but alive; LogTail
// carries the end of the captured daemon output for diagnosis.
type StartupTimeoutError struct {
	Port     int
	PID      int
	Attempts int
	Interval time.Duration
	Died     bool
	LogTail  string
	Err      error
}

func (e *StartupTimeoutError) Error() string {
	if e.Died {
		return fmt.Sprintf("daemon (pid %d) exited before becoming ready on port %d", e.PID, e.Port)
	}
	return fmt.Sprintf("daemon (pid %d) not ready on port %d after %d attempts at %v intervals",
		e.PID, e.Port, e.Attempts, e.Interval)
}

func (e *StartupTimeoutError) Unwrap() error { return e.Err }

// SignalError reports that termination signal delivery failed for a process
// that is still alive. A signal failing because the process already exited is
// not an error at all.
type SignalError struct {
	PID int
	Err error
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("failed to signal pid %d: %v", e.PID, e.Err)
}

func (e *SignalError) Unwrap() error { return e.Err }
