package monitor

import (
	"fmt"

	"spfwatch/internal/domain"
	"spfwatch/internal/esp"
)

// sensitivityThreshold maps a baseline's sensitivity setting to the number
// of total changes that escalates an otherwise quiet change to medium.
func sensitivityThreshold(sensitivity string) int {
	switch domain.Sensitivity(sensitivity) {
	case domain.SensitivityLow:
		return 5
	case domain.SensitivityHigh:
		return 1
	default:
		return 3
	}
}

func assessImpact(added, removed []string, profile esp.Profile, sensitivity string) string {
	total := len(added) + len(removed)

	switch {
	case len(removed) > 5 && profile.IsStable:
		return domain.ImpactCritical
	case len(removed) > 0 && !profile.IsStable:
		return domain.ImpactHigh
	case total > 10 && profile.IsStable:
		return domain.ImpactHigh
	case total > sensitivityThreshold(sensitivity):
		return domain.ImpactMedium
	default:
		return domain.ImpactLow
	}
}

// decideAutoUpdateSafe gates automatic re-flattening. High and critical
// impact are never safe, whatever the ESP profile says.
func decideAutoUpdateSafe(changeType, impact string, profile esp.Profile) bool {
	if impact == domain.ImpactHigh || impact == domain.ImpactCritical {
		return false
	}
	if !profile.AutoUpdateSafe || !profile.IsStable {
		return false
	}
	if changeType == domain.ChangeTypeRemoved {
		return impact == domain.ImpactLow
	}
	return true
}

func riskFactors(added, removed []string, profile esp.Profile) []string {
	var factors []string
	if !profile.IsStable {
		factors = append(factors, "ESP is not classified as stable")
	}
	if !profile.AutoUpdateSafe {
		factors = append(factors, "ESP profile is not marked safe for automatic updates")
	}
	if len(removed) > 0 {
		factors = append(factors, "previously authorized addresses were removed")
	}
	if len(added) > 10 {
		factors = append(factors, fmt.Sprintf("%d new addresses in a single change", len(added)))
	}
	if profile.ChangeFrequency == esp.ChangeWeekly || profile.ChangeFrequency == esp.ChangeDaily {
		factors = append(factors, fmt.Sprintf("ESP is known to rotate addresses %s", profile.ChangeFrequency))
	}
	return factors
}

func recommendedAction(includeDomain, impact string, autoSafe bool) string {
	switch {
	case impact == domain.ImpactCritical:
		return fmt.Sprintf("Do not update automatically. Verify the removed addresses for %s with the provider before republishing any flattened record.", includeDomain)
	case impact == domain.ImpactHigh:
		return fmt.Sprintf("Review the change to %s manually before updating flattened records that embed it.", includeDomain)
	case autoSafe:
		return fmt.Sprintf("Flattened records embedding %s can be refreshed automatically.", includeDomain)
	default:
		return fmt.Sprintf("Refresh flattened records embedding %s after a quick manual review.", includeDomain)
	}
}
