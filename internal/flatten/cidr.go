package flatten

import (
	"fmt"
	"net"
	"sort"
)

// consolidate groups bare addresses into /24 (IPv4) or /64 (IPv6) blocks.
// A block is only emitted when at least minGroup of its addresses were
// actually resolved; the documented slack is that a /24 admitted by 8
// resolved addresses overshoots by up to 248 unresolved ones. Addresses
// outside any qualifying block pass through unchanged.
func consolidate(addrs []string, v6 bool, minGroup int) []string {
	if minGroup <= 1 || len(addrs) < minGroup {
		return addrs
	}

	groups := make(map[string][]string)
	var order []string
	var loose []string

	for _, addr := range addrs {
		block := blockKey(addr, v6)
		if block == "" {
			loose = append(loose, addr)
			continue
		}
		if _, ok := groups[block]; !ok {
			order = append(order, block)
		}
		groups[block] = append(groups[block], addr)
	}

	var out []string
	for _, block := range order {
		members := groups[block]
		if len(members) >= minGroup {
			out = append(out, block)
		} else {
			out = append(out, members...)
		}
	}
	out = append(out, loose...)
	return out
}

func blockKey(addr string, v6 bool) string {
	ip := net.ParseIP(addr)
	if ip == nil {
		return ""
	}

	if !v6 {
		v4 := ip.To4()
		if v4 == nil {
			return ""
		}
		return fmt.Sprintf("%d.%d.%d.0/24", v4[0], v4[1], v4[2])
	}

	full := ip.To16()
	if full == nil || ip.To4() != nil {
		return ""
	}
	masked := full.Mask(net.CIDRMask(64, 128))
	return masked.String() + "/64"
}

// mechanisms renders the set as sorted ip4:/ip6: tokens, carried CIDRs
// first. Sorting keeps reruns byte-stable so change diffs stay quiet.
func (s *ipSet) mechanisms(opts Options) []string {
	v4 := s.v4
	v6 := s.v6
	if opts.ConsolidateCIDR {
		v4 = consolidate(v4, false, opts.minGroupSize())
		v6 = consolidate(v6, true, opts.minGroupSize())
	}

	all4 := append(append([]string{}, s.cidr4...), v4...)
	all6 := append(append([]string{}, s.cidr6...), v6...)
	sort.Strings(all4)
	sort.Strings(all6)

	out := make([]string, 0, len(all4)+len(all6))
	for _, v := range all4 {
		out = append(out, "ip4:"+v)
	}
	for _, v := range all6 {
		out = append(out, "ip6:"+v)
	}
	return out
}
