package netcheck

import (
	gopsnet "github.com/shirou/gopsutil/v4/net"
	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Listener identifies the process holding a TCP listening socket.
type Listener struct {
	PID  int32
	Name string
}

// FindListener reports who is listening on the given TCP port, so a bind
// conflict can be attributed to a concrete process instead of surfacing as an
// opaque bind failure from the daemon. ok is false when the port is free.
func FindListener(port int) (Listener, bool, error) {
	conns, err := gopsnet.Connections("tcp")
	if err != nil {
		return Listener{}, false, err
	}
	for _, c := range conns {
		if c.Status != "LISTEN" || c.Laddr.Port != uint32(port) {
			continue
		}
		l := Listener{PID: c.Pid}
		if c.Pid > 0 {
			if p, err := gopsproc.NewProcess(c.Pid); err == nil {
				// Name is best-effort; the PID alone is already actionable.
				l.Name, _ = p.Name()
			}
		}
		return l, true, nil
	}
	return Listener{}, false, nil
}
