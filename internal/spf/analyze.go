package spf

import "fmt"

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

const SuggestionFlattenInclude = "flatten_include"

// Suggestion is an advisory produced by record analysis. It is built fresh on
// every analysis run and only persisted if the user acts on it.
type Suggestion struct {
	Type      string   `json:"type"`
	Mechanism string   `json:"mechanism"`
	Severity  Severity `json:"severity"`
	Rationale string   `json:"rationale"`
}

// StabilityRater reports whether an include domain belongs to a known ESP and
// whether that ESP's address set is considered stable. The classifier
// satisfies it; analysis stays decoupled from the classifier package.
type StabilityRater func(includeDomain string) (espName string, stable bool)

// Suggest proposes flattening for each include mechanism of a record.
// Severity tracks how close the record is to the lookup budget: over budget is
// high, within two lookups of it is medium, anything else low.
func Suggest(rec *Record, rate StabilityRater) []Suggestion {
	if rec == nil {
		return nil
	}

	severity := SeverityLow
	switch {
	case rec.TotalLookups > MaxLookups:
		severity = SeverityHigh
	case rec.TotalLookups >= MaxLookups-2:
		severity = SeverityMedium
	}

	var suggestions []Suggestion
	for _, mech := range rec.Mechanisms {
		if mech.Type != TypeInclude || mech.Value == "" {
			continue
		}

		rationale := fmt.Sprintf("flattening include:%s removes one of %d DNS lookups", mech.Value, rec.TotalLookups)
		if rate != nil {
			if name, stable := rate(mech.Value); name != "" && stable {
				rationale += fmt.Sprintf("; %s publishes a stable address set, so flattened IPs age slowly", name)
			} else if name != "" {
				rationale += fmt.Sprintf("; %s changes addresses frequently, flattened output needs monitoring", name)
			} else {
				rationale += "; the provider is unclassified, flattened output needs monitoring"
			}
		}

		suggestions = append(suggestions, Suggestion{
			Type:      SuggestionFlattenInclude,
			Mechanism: mech.Value,
			Severity:  severity,
			Rationale: rationale,
		})
	}

	return suggestions
}
