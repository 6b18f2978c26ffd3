package monitor

import (
	"sort"

	"spfwatch/internal/domain"
)

// diffIPs computes the symmetric difference between a stored baseline and a
// freshly resolved address set. Both result slices are sorted.
func diffIPs(previous, current []string) (added, removed []string) {
	prevSet := make(map[string]bool, len(previous))
	for _, ip := range previous {
		prevSet[ip] = true
	}
	currSet := make(map[string]bool, len(current))
	for _, ip := range current {
		currSet[ip] = true
	}

	for ip := range currSet {
		if !prevSet[ip] {
			added = append(added, ip)
		}
	}
	for ip := range prevSet {
		if !currSet[ip] {
			removed = append(removed, ip)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func classifyChange(added, removed []string) string {
	switch {
	case len(removed) == 0:
		return domain.ChangeTypeAdded
	case len(added) == 0:
		return domain.ChangeTypeRemoved
	default:
		return domain.ChangeTypeModified
	}
}
