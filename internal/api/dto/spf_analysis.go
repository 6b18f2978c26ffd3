package dto

import "spfwatch/internal/spf"

type SPFAnalysis struct {
	Record      *spf.Record      `json:"record"`
	Suggestions []spf.Suggestion `json:"optimizationSuggestions"`
}
