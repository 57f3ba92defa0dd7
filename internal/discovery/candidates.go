package discovery

import (
	"net/netip"

	mapset "github.com/deckarep/golang-set/v2"
)

// gatewayOctets are the host numbers routers and always-on boxes usually get
var gatewayOctets = []int{1, 254, 2, 100, 101, 200}

// Candidates lists the hosts of ip's /24 worth probing, most likely first:
// the machine itself, common gateway addresses, then neighbours of its own address.
// A full scan appends every remaining host; otherwise the list is capped at MaxHosts.
func Candidates(ip string, cfg Config) []string {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Unmap().Is4() {
		return nil
	}
	octets := addr.Unmap().As4()
	own := int(octets[3])

	seen := mapset.NewThreadUnsafeSet[int]()
	var order []int
	add := func(n int) {
		if n < 1 || n > 254 || seen.Contains(n) {
			return
		}
		seen.Add(n)
		order = append(order, n)
	}

	add(own)
	for _, n := range gatewayOctets {
		add(n)
	}
	for d := 1; d <= cfg.Radius; d++ {
		add(own - d)
		add(own + d)
	}

	if cfg.FullScan {
		for n := 1; n <= 254; n++ {
			add(n)
		}
	} else if cfg.MaxHosts > 0 && len(order) > cfg.MaxHosts {
		order = order[:cfg.MaxHosts]
	}

	hosts := make([]string, 0, len(order))
	for _, n := range order {
		octets[3] = byte(n)
		hosts = append(hosts, netip.AddrFrom4(octets).String())
	}
	return hosts
}
