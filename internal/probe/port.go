package probe

import (
	"fmt"
	"net"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// SystemPortProbe inspects the host's TCP listener table. When the table is
// unavailable (unprivileged on some platforms), Bound falls back to a bind
// attempt: a port we cannot bind is considered bound. Bind semantics are
// preferred over connect semantics so a service that bound its socket but is
// not accepting yet still counts as running.
type SystemPortProbe struct{}

func (SystemPortProbe) Bound(port uint16) bool {
	conns, err := psnet.Connections("tcp")
	if err != nil {
		return !canBind(port)
	}
	for _, c := range conns {
		if c.Status == "LISTEN" && c.Laddr.Port == uint32(port) {
			return true
		}
	}
	return false
}

func (SystemPortProbe) OwnerPid(port uint16) int {
	conns, err := psnet.Connections("tcp")
	if err != nil {
		return 0
	}
	for _, c := range conns {
		if c.Status == "LISTEN" && c.Laddr.Port == uint32(port) && c.Pid > 0 {
			return int(c.Pid)
		}
	}
	return 0
}

// canBind reports whether the port can be bound on the loopback interface.
func canBind(port uint16) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
