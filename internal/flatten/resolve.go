package flatten

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"spfwatch/internal/resolver"
	"spfwatch/internal/spf"
)

// ErrDepthExceeded marks an include chain deeper than the recursion guard,
// which almost always means a circular include.
var ErrDepthExceeded = errors.New("flatten: include chain exceeds depth limit")

// ipSet accumulates resolved addresses and CIDRs, deduplicated, preserving
// first-seen order for stable output.
type ipSet struct {
	seen  map[string]bool
	v4    []string // bare addresses
	v6    []string
	cidr4 []string // pre-existing CIDR mechanisms carried through as-is
	cidr6 []string
}

func newIPSet() *ipSet {
	return &ipSet{seen: make(map[string]bool)}
}

func (s *ipSet) addIP(ip net.IP) {
	if ip == nil {
		return
	}
	key := ip.String()
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	if ip.To4() != nil {
		s.v4 = append(s.v4, key)
	} else {
		s.v6 = append(s.v6, key)
	}
}

func (s *ipSet) addValue(value string, v6 bool) {
	if value == "" || s.seen[value] {
		return
	}
	s.seen[value] = true

	isCIDR := strings.Contains(value, "/")
	switch {
	case isCIDR && v6:
		s.cidr6 = append(s.cidr6, value)
	case isCIDR:
		s.cidr4 = append(s.cidr4, value)
	case v6:
		s.v6 = append(s.v6, value)
	default:
		s.v4 = append(s.v4, value)
	}
}

func (s *ipSet) addHostCIDR(ip net.IP, prefix string) {
	if ip == nil {
		return
	}
	if prefix == "" {
		s.addIP(ip)
		return
	}
	s.addValue(ip.String()+"/"+prefix, ip.To4() == nil)
}

// values returns every collected address and CIDR as bare strings, sorted.
func (s *ipSet) values() []string {
	out := make([]string, 0, len(s.v4)+len(s.v6)+len(s.cidr4)+len(s.cidr6))
	out = append(out, s.cidr4...)
	out = append(out, s.v4...)
	out = append(out, s.cidr6...)
	out = append(out, s.v6...)
	sort.Strings(out)
	return out
}

type resolveTask struct {
	domain string
	depth  int
}

// resolveInclude transitively resolves one include domain's SPF chain into a
// flat address set. Nested includes and redirects are walked with an explicit
// worklist bounded by the depth guard; a visited set stops circular includes
// from looping. Any DNS failure inside the chain fails the whole include,
// because a partial address set would silently narrow the allow-range.
func (f *Flattener) resolveInclude(ctx context.Context, includeDomain string, opts Options) (*ipSet, []string, error) {
	set := newIPSet()
	var warnings []string

	visited := map[string]bool{}
	stack := []resolveTask{{domain: spf.NormalizeDomain(includeDomain), depth: 0}}

	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[task.domain] {
			continue
		}
		visited[task.domain] = true

		if task.depth >= opts.maxDepth() {
			return nil, warnings, fmt.Errorf("%w: %s at depth %d", ErrDepthExceeded, task.domain, task.depth)
		}

		rec, err := spf.Fetch(ctx, f.resolver, task.domain)
		if err != nil {
			return nil, warnings, err
		}

		for _, mech := range rec.Mechanisms {
			// Qualifiers other than pass contribute nothing to the set of
			// hosts the include authorizes.
			if mech.Qualifier == "-" || mech.Qualifier == "~" {
				continue
			}

			switch mech.Type {
			case spf.TypeIP4:
				set.addValue(mech.Value, false)
			case spf.TypeIP6:
				set.addValue(mech.Value, true)
			case spf.TypeInclude, spf.TypeRedirect:
				if mech.Value != "" {
					stack = append(stack, resolveTask{domain: spf.NormalizeDomain(mech.Value), depth: task.depth + 1})
				}
			case spf.TypeA:
				target := mech.Value
				if target == "" {
					if !opts.IncludeSubdomains {
						warnings = append(warnings, fmt.Sprintf("skipped bare a mechanism of %s (subdomain resolution disabled)", task.domain))
						continue
					}
					target = task.domain
				}
				if err := f.resolveA(ctx, target, mech.Prefix, set); err != nil {
					return nil, warnings, err
				}
			case spf.TypeMX:
				target := mech.Value
				if target == "" {
					if !opts.IncludeSubdomains {
						warnings = append(warnings, fmt.Sprintf("skipped bare mx mechanism of %s (subdomain resolution disabled)", task.domain))
						continue
					}
					target = task.domain
				}
				if err := f.resolveMX(ctx, target, mech.Prefix, set); err != nil {
					return nil, warnings, err
				}
			case spf.TypePtr, spf.TypeExists:
				warnings = append(warnings, fmt.Sprintf("%s mechanism of %s cannot be flattened to IPs and was dropped", mech.Type, task.domain))
			case spf.TypeAll:
				// The nested record's all policy does not carry into the
				// flattened parent.
			}
		}
	}

	return set, warnings, nil
}

func (f *Flattener) resolveA(ctx context.Context, host, prefix string, set *ipSet) error {
	ips, err := f.resolver.LookupIP(ctx, host)
	if err != nil {
		if errors.Is(err, resolver.ErrNXDomain) {
			return nil
		}
		return fmt.Errorf("resolve a:%s: %w", host, err)
	}
	for _, ip := range ips {
		set.addHostCIDR(ip, prefix)
	}
	return nil
}

func (f *Flattener) resolveMX(ctx context.Context, host, prefix string, set *ipSet) error {
	mxs, err := f.resolver.LookupMX(ctx, host)
	if err != nil {
		if errors.Is(err, resolver.ErrNXDomain) {
			return nil
		}
		return fmt.Errorf("resolve mx:%s: %w", host, err)
	}

	for _, mx := range mxs {
		ips, err := f.resolver.LookupIP(ctx, strings.TrimSuffix(mx.Host, "."))
		if err != nil {
			if errors.Is(err, resolver.ErrNXDomain) {
				continue
			}
			return fmt.Errorf("resolve mx host %s: %w", mx.Host, err)
		}
		for _, ip := range ips {
			set.addHostCIDR(ip, prefix)
		}
	}
	return nil
}
