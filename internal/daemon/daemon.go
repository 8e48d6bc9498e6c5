package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Default chromedriver settings. The port is the upstream default and the
// alias is the hostname Docker resolves back to the host from inside a
// container.
const (
	DefaultPort      = 9515
	DefaultHostAlias = "host.docker.internal"
)

// InstallHint describes how to acquire the binary on a given platform.
type InstallHint struct {
	Manager string   `json:"manager" mapstructure:"manager"` // "brew" or "apt-get"
	Args    []string `json:"args" mapstructure:"args"`       // manager arguments, e.g. ["install", "--cask", "chromedriver"]
}

// Profile describes the one external daemon the supervisor manages: how to
// find it, how to launch it bound to a port, how to probe it, and how its
// address is published to containers.
type Profile struct {
	Name      string                 `json:"name" mapstructure:"name"`             // stable name; keys the PID marker and log file
	Binary    string                 `json:"binary" mapstructure:"binary"`         // executable resolved on PATH
	ProbePath string                 `json:"probe_path" mapstructure:"probe_path"` // readiness endpoint, e.g. /status
	HostAlias string                 `json:"host_alias" mapstructure:"host_alias"` // hostname containers use to reach the host
	ExtraArgs []string               `json:"extra_args" mapstructure:"extra_args"` // appended after the generated flags
	Install   map[string]InstallHint `json:"install" mapstructure:"install"`       // keyed by GOOS
}

// Chromedriver returns the built-in profile. The flag set deliberately opens
// the daemon up: it must be reachable from sibling containers, not just the
// loopback of the host.
func Chromedriver() Profile {
	return Profile{
		Name:      "chromedriver",
		Binary:    "chromedriver",
		ProbePath: "/status",
		HostAlias: DefaultHostAlias,
		Install: map[string]InstallHint{
			"darwin": {Manager: "brew", Args: []string{"install", "--cask", "chromedriver"}},
			"linux":  {Manager: "apt-get", Args: []string{"install", "-y", "chromium-driver"}},
		},
	}
}

// Args builds the launch argv (without the binary itself) for the given port.
// --allowed-ips with an empty value tells chromedriver to accept remote
// connections from any address.
func (p Profile) Args(port int) []string {
	args := []string{
		"--port=" + strconv.Itoa(port),
		"--allowed-origins=*",
		"--allowed-ips=",
	}
	return append(args, p.ExtraArgs...)
}

// ProbeURL is the readiness endpoint as seen from the host itself.
func (p Profile) ProbeURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", port, p.ProbePath)
}

// PublishedURL is the address contract surfaced to collaborating containers.
func (p Profile) PublishedURL(port int) string {
	return fmt.Sprintf("http://%s:%d", p.HostAlias, port)
}

// PIDPath and LogPath are deterministic so repeated invocations locate the
// same record and log across supervisor restarts.

func (p Profile) PIDPath() string {
	return filepath.Join(os.TempDir(), p.Name+".pid")
}

func (p Profile) LogPath() string {
	return filepath.Join(os.TempDir(), p.Name+".log")
}
