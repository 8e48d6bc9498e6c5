package install

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/loykin/drover/internal/daemon"
)

// Reason classifies installation failures so callers can tell a missing
// package manager from a failed install command.
type Reason string

const (
	ReasonManagerMissing Reason = "package-manager-unavailable"
	ReasonInstallFailed  Reason = "install-command-failed"
	ReasonRemediation    Reason = "post-install-remediation-failed"
	ReasonUnsupported    Reason = "no-install-hint-for-platform"
)

// Error is returned when the daemon binary is absent and cannot be made
// runnable.
type Error struct {
	Binary string
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("install %s: %s", e.Binary, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Installer ensures the daemon binary resolves on PATH, bootstrapping it via
// the platform package manager when absent. Presence is re-checked on every
// call; nothing is cached.
type Installer struct {
	profile daemon.Profile
	goos    string
	// lookPath and run are swappable for tests.
	lookPath func(file string) (string, error)
	run      func(name string, args ...string) ([]byte, error)
}

func New(profile daemon.Profile) *Installer {
	return &Installer{
		profile:  profile,
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(name string, args ...string) ([]byte, error) {
			// #nosec G204 -- manager and args come from the daemon profile, not user input
			return exec.Command(name, args...).CombinedOutput()
		},
	}
}

// Installed reports whether the binary resolves on the search path.
func (i *Installer) Installed() (string, bool) {
	path, err := i.lookPath(i.profile.Binary)
	return path, err == nil
}

// Ensure makes the binary present and runnable. Acquisition and post-install
// remediation are separate steps so a failure is attributable to one of them.
func (i *Installer) Ensure() error {
	if _, ok := i.Installed(); ok {
		return nil
	}
	if err := i.acquire(); err != nil {
		return err
	}
	path, ok := i.Installed()
	if !ok {
		return &Error{Binary: i.profile.Binary, Reason: ReasonInstallFailed,
			Err: fmt.Errorf("binary still not on PATH after install")}
	}
	if err := i.remediate(path); err != nil {
		return err
	}
	slog.Info("installed daemon binary", "binary", i.profile.Binary, "path", path)
	return nil
}

// acquire runs the platform package manager named by the profile's install
// hint for the current GOOS.
func (i *Installer) acquire() error {
	hint, ok := i.profile.Install[i.goos]
	if !ok {
		return &Error{Binary: i.profile.Binary, Reason: ReasonUnsupported,
			Err: fmt.Errorf("no install hint for %s; install %s manually", i.goos, i.profile.Binary)}
	}
	if _, err := i.lookPath(hint.Manager); err != nil {
		return &Error{Binary: i.profile.Binary, Reason: ReasonManagerMissing,
			Err: fmt.Errorf("%s not found; install %s manually", hint.Manager, i.profile.Binary)}
	}
	slog.Info("installing daemon binary", "binary", i.profile.Binary, "manager", hint.Manager)
	if out, err := i.run(hint.Manager, hint.Args...); err != nil {
		return &Error{Binary: i.profile.Binary, Reason: ReasonInstallFailed,
			Err: fmt.Errorf("%s %v: %w (%s)", hint.Manager, hint.Args, err, lastLine(out))}
	}
	return nil
}

// remediate applies OS-level fixes a fresh install needs before first use.
// On darwin the downloaded binary carries the quarantine xattr and would die
// with a permission error on first exec unless the flag is cleared now.
func (i *Installer) remediate(path string) error {
	if i.goos != "darwin" {
		return nil
	}
	out, err := i.run("xattr", "-d", "com.apple.quarantine", path)
	if err != nil {
		// xattr exits non-zero when the attribute is absent, which is fine.
		if len(out) > 0 && containsNoSuchXattr(out) {
			return nil
		}
		return &Error{Binary: i.profile.Binary, Reason: ReasonRemediation,
			Err: fmt.Errorf("xattr -d com.apple.quarantine %s: %w", path, err)}
	}
	return nil
}

func containsNoSuchXattr(out []byte) bool {
	return strings.Contains(strings.ToLower(string(out)), "no such xattr")
}

func lastLine(out []byte) string {
	s := strings.TrimRight(string(out), "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
