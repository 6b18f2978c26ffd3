package flatten

import (
	"context"
	"fmt"

	"spfwatch/internal/esp"
	"spfwatch/internal/resolver"
	"spfwatch/internal/spf"
)

// IncludeResult is the per-include outcome of a flattening run. A failed
// include keeps its original mechanism in the output record, so one broken
// ESP never blocks review of the rest.
type IncludeResult struct {
	Domain     string   `json:"domain"`
	Mechanisms []string `json:"mechanisms,omitempty"`
	Err        string   `json:"error,omitempty"`
}

// Result is the outcome of one flattening run. When Success is true, the
// flattened record re-parses as valid and NewLookups matches its lookup
// count; an invalid record is never emitted as a success.
type Result struct {
	Success             bool            `json:"success"`
	FlattenedRecord     string          `json:"flattenedRecord,omitempty"`
	OriginalLookups     int             `json:"originalLookups"`
	NewLookups          int             `json:"newLookups"`
	IPCount             int             `json:"ipCount"`
	Warnings            []string        `json:"warnings,omitempty"`
	Errors              []string        `json:"errors,omitempty"`
	ImplementationNotes []string        `json:"implementationNotes,omitempty"`
	Includes            []IncludeResult `json:"includes,omitempty"`
}

// Flattener resolves selected include mechanisms into literal IP mechanisms.
type Flattener struct {
	resolver   resolver.Resolver
	classifier *esp.Classifier
}

func New(r resolver.Resolver, classifier *esp.Classifier) *Flattener {
	return &Flattener{resolver: r, classifier: classifier}
}

// ResolveIPSet resolves an include domain's transitive address set as bare
// address and CIDR strings, sorted. No CIDR consolidation is applied, so the
// result is suitable as a change-detection baseline where grouping would
// mask drift.
func (f *Flattener) ResolveIPSet(ctx context.Context, includeDomain string) ([]string, error) {
	set, _, err := f.resolveInclude(ctx, spf.NormalizeDomain(includeDomain), Options{
		PreserveOrder:     true,
		IncludeSubdomains: true,
	})
	if err != nil {
		return nil, err
	}
	return set.values(), nil
}

// Flatten replaces the selected include mechanisms of rec with the IP
// mechanisms they transitively resolve to. Includes that fail to resolve are
// left in place and reported; the synthesized record is validated before it
// is declared a success.
func (f *Flattener) Flatten(ctx context.Context, rec *spf.Record, targets []string, opts Options) *Result {
	result := &Result{OriginalLookups: rec.TotalLookups}

	targetSet := make(map[string]bool, len(targets))
	for _, t := range targets {
		targetSet[spf.NormalizeDomain(t)] = true
	}
	if len(targetSet) == 0 {
		result.Errors = append(result.Errors, "no include mechanisms selected for flattening")
		return result
	}

	var mechanisms []spf.Mechanism
	var appended []spf.Mechanism
	flattenedAny := false

	for _, mech := range rec.Mechanisms {
		if mech.Type != spf.TypeInclude || !targetSet[spf.NormalizeDomain(mech.Value)] {
			mechanisms = append(mechanisms, mech)
			continue
		}

		include := spf.NormalizeDomain(mech.Value)
		set, warnings, err := f.resolveInclude(ctx, include, opts)
		result.Warnings = append(result.Warnings, warnings...)

		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("include:%s could not be flattened: %v", include, err))
			result.Includes = append(result.Includes, IncludeResult{Domain: include, Err: err.Error()})
			mechanisms = append(mechanisms, mech) // keep the original include
			continue
		}

		tokens := set.mechanisms(opts)
		if len(tokens) == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("include:%s resolved to no addresses", include))
			result.Includes = append(result.Includes, IncludeResult{Domain: include, Err: "resolved to no addresses"})
			mechanisms = append(mechanisms, mech)
			continue
		}

		flattenedAny = true
		result.Includes = append(result.Includes, IncludeResult{Domain: include, Mechanisms: tokens})
		f.warnUnstable(include, result)

		ipMechs := make([]spf.Mechanism, 0, len(tokens))
		for _, token := range tokens {
			parsed := spf.Parse(rec.Domain, spf.Version+" "+token)
			ipMechs = append(ipMechs, parsed.Mechanisms...)
		}

		if opts.PreserveOrder {
			mechanisms = append(mechanisms, ipMechs...)
		} else {
			appended = append(appended, ipMechs...)
		}
	}

	if !flattenedAny {
		result.Errors = append(result.Errors, "no include mechanism was flattened")
		return result
	}

	mechanisms = insertBeforeAll(mechanisms, appended)
	result.FlattenedRecord = spf.Build(mechanisms)

	for _, mech := range mechanisms {
		if mech.Type == spf.TypeIP4 || mech.Type == spf.TypeIP6 {
			result.IPCount++
		}
	}

	f.validate(rec.Domain, mechanisms, opts, result)
	return result
}

// insertBeforeAll appends extra mechanisms ahead of the trailing all, which
// must stay last for the record to mean anything.
func insertBeforeAll(mechanisms, extra []spf.Mechanism) []spf.Mechanism {
	if len(extra) == 0 {
		return mechanisms
	}
	for i := len(mechanisms) - 1; i >= 0; i-- {
		if mechanisms[i].Type == spf.TypeAll {
			out := make([]spf.Mechanism, 0, len(mechanisms)+len(extra))
			out = append(out, mechanisms[:i]...)
			out = append(out, extra...)
			out = append(out, mechanisms[i:]...)
			return out
		}
	}
	return append(mechanisms, extra...)
}

func (f *Flattener) warnUnstable(include string, result *Result) {
	if f.classifier == nil {
		return
	}

	profile := f.classifier.Classify(include)
	switch {
	case !profile.Known:
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"include:%s belongs to an unclassified provider; the flattened IPs must be monitored manually from now on", include))
	case !profile.IsStable || !profile.AutoUpdateSafe:
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"include:%s (%s) changes addresses %s and is not safe to update unattended; manual monitoring is required going forward",
			include, profile.ESPName, profile.ChangeFrequency))
	}
}

// validate re-parses the synthesized record and applies the caller's
// oversize policy. A record that fails validation clears Success; flattening
// never hands back a silently broken SPF string.
func (f *Flattener) validate(domain string, mechanisms []spf.Mechanism, opts Options, result *Result) {
	reparsed := spf.Parse(domain, result.FlattenedRecord)
	result.NewLookups = reparsed.TotalLookups

	oversizeOK := opts.SplitOversize

	fatal := append([]string{}, reparsed.Errors...)
	if len(reparsed.LengthIssues) > 0 {
		if oversizeOK {
			result.ImplementationNotes = append(result.ImplementationNotes,
				"flattened record exceeds single TXT string limits; publish it split across multiple strings")
		} else {
			fatal = append(fatal, reparsed.LengthIssues...)
		}
	}

	if result.IPCount > opts.maxIPs() {
		if oversizeOK {
			result.ImplementationNotes = append(result.ImplementationNotes, fmt.Sprintf(
				"%d IP mechanisms exceed the per-record cap of %d; publish the record split across %d TXT strings",
				result.IPCount, opts.maxIPs(), (result.IPCount+opts.maxIPs()-1)/opts.maxIPs()))
		} else {
			fatal = append(fatal, fmt.Sprintf("flattened record holds %d IP mechanisms, over the cap of %d", result.IPCount, opts.maxIPs()))
		}
	}

	if len(fatal) > 0 {
		for _, e := range fatal {
			result.Errors = append(result.Errors, "flattened record validation: "+e)
		}
		result.Success = false
		return
	}

	result.Success = true
}
