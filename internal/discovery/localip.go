package discovery

import (
	"log/slog"
	"net"
	"net/netip"
	"slices"

	psnet "github.com/shirou/gopsutil/v4/net"
)

const fallbackIPv4 = "127.0.0.1"

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
}

// LocalIPv4 returns the address other devices on the LAN most likely reach this machine on.
// It never fails; without a usable interface it returns 127.0.0.1.
func LocalIPv4() string {
	if ip := interfaceIPv4(); ip != "" {
		return ip
	}
	if ip := routeIPv4(); ip != "" {
		return ip
	}
	return fallbackIPv4
}

func interfaceIPv4() string {
	ifaces, err := psnet.Interfaces()
	if err != nil {
		slog.Debug("discovery interfaces", "error", err)
		return ""
	}

	var addrs []netip.Addr
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		for _, a := range iface.Addrs {
			if ip, ok := parseIfaceAddr(a.Addr); ok {
				addrs = append(addrs, ip)
			}
		}
	}

	return pickPreferred(addrs)
}

// parseIfaceAddr accepts "192.168.1.5/24" as well as a bare address
func parseIfaceAddr(s string) (netip.Addr, bool) {
	var ip netip.Addr
	if prefix, err := netip.ParsePrefix(s); err == nil {
		ip = prefix.Addr()
	} else if ip, err = netip.ParseAddr(s); err != nil {
		return netip.Addr{}, false
	}

	ip = ip.Unmap()
	if !ip.Is4() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return netip.Addr{}, false
	}
	return ip, true
}

// pickPreferred prefers 192.168/16, then 10/8, then 172.16/12, then anything else, keeping input order within a rank
func pickPreferred(addrs []netip.Addr) string {
	best, bestRank := netip.Addr{}, len(privateRanges)+1
	for _, ip := range addrs {
		rank := len(privateRanges)
		for i, p := range privateRanges {
			if p.Contains(ip) {
				rank = i
				break
			}
		}
		if rank < bestRank {
			best, bestRank = ip, rank
		}
	}

	if !best.IsValid() {
		return ""
	}
	return best.String()
}

// routeIPv4 asks the kernel which source address it would use for the default route.
// UDP dial sends nothing.
func routeIPv4() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.To4() == nil || addr.IP.IsLoopback() {
		return ""
	}
	return addr.IP.String()
}
