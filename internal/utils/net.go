package utils

import (
	"net"
	"strconv"
)

// FreePort asks the kernel for a TCP port on host that nothing is bound to right now
func FreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// PortInUse reports whether host:port cannot be bound, usually because another server holds it.
// Port 0 is never in use.
func PortInUse(host string, port int) bool {
	if port == 0 {
		return false
	}
	l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return true
	}
	l.Close()
	return false
}
