package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"spfwatch/internal/config"
	"spfwatch/internal/database"
	"spfwatch/internal/domain"
	"spfwatch/internal/esp"
	"spfwatch/internal/flatten"
	"spfwatch/internal/resolver"
	"spfwatch/internal/spf"
	"spfwatch/internal/support"
)

// DefaultIncludeConcurrency bounds how many includes of one domain are
// resolved at once, so a check never hammers the resolver.
const DefaultIncludeConcurrency = 4

// Monitor runs change detection for monitored domains. Each include's
// baseline read-modify-write is serialized per (user, domain, include) key
// across instances; checks for different includes run concurrently.
type Monitor struct {
	resolver    resolver.Resolver
	flattener   *flatten.Flattener
	classifier  *esp.Classifier
	locks       *support.SharedKeyLock
	concurrency int
}

func New(r resolver.Resolver, flattener *flatten.Flattener, classifier *esp.Classifier) *Monitor {
	return &Monitor{
		resolver:    r,
		flattener:   flattener,
		classifier:  classifier,
		locks:       support.NewSharedKeyLock(),
		concurrency: includeConcurrency(config.GetConfig()),
	}
}

func includeConcurrency(cfg config.Config) int {
	if c := int(cfg.Monitor.IncludeThreads); c > 0 {
		return c
	}
	return DefaultIncludeConcurrency
}

// CheckResult is the outcome of one domain check. Errors are collected per
// include; a check degrades to a domain-level error only when nothing at all
// could be resolved.
type CheckResult struct {
	Domain  string                 `json:"domain"`
	Checked int                    `json:"checked"`
	Events  []domain.IPChangeEvent `json:"events"`
	Errors  []string               `json:"errors,omitempty"`

	// AutoUpdates lists the include domains whose change is both safe to
	// apply and configured for automatic updates. Applying them is the
	// caller's job.
	AutoUpdates []string `json:"autoUpdates,omitempty"`
}

// CheckDomainChanges checks every monitored include of the domain against
// its stored baseline.
func (m *Monitor) CheckDomainChanges(ctx context.Context, userID uint64, domainName string) (*CheckResult, error) {
	return m.check(ctx, userID, domainName, "")
}

// CheckDomainTier is CheckDomainChanges restricted to includes whose ESP
// profile is checked at the given frequency. The scheduler uses it to run
// hourly, daily and weekly passes independently.
func (m *Monitor) CheckDomainTier(ctx context.Context, userID uint64, domainName string, tier esp.CheckFrequency) (*CheckResult, error) {
	return m.check(ctx, userID, domainName, tier)
}

func (m *Monitor) check(ctx context.Context, userID uint64, domainName string, tier esp.CheckFrequency) (*CheckResult, error) {
	domainName = spf.NormalizeDomain(domainName)
	result := &CheckResult{Domain: domainName}

	rec, err := spf.Fetch(ctx, m.resolver, domainName)
	if err != nil {
		return nil, fmt.Errorf("monitor: resolve %s: %w", domainName, err)
	}
	if !rec.Valid {
		return nil, fmt.Errorf("monitor: %s publishes an invalid SPF record: %v", domainName, rec.Errors)
	}

	var includes []string
	for _, mech := range rec.Mechanisms {
		if mech.Type != spf.TypeInclude || mech.Value == "" {
			continue
		}
		include := spf.NormalizeDomain(mech.Value)
		if tier != "" && m.classifier.Classify(include).CheckFrequency != tier {
			continue
		}
		includes = append(includes, include)
	}
	if len(includes) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(m.concurrency)

	for _, include := range includes {
		group.Go(func() error {
			event, err := m.checkInclude(groupCtx, userID, domainName, include)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("include:%s: %v", include, err))
				// A persistence failure still carries the computed event.
				if event == nil {
					return nil
				}
			}
			result.Checked++
			if event != nil {
				result.Events = append(result.Events, *event)
				if event.AutoUpdateSafe && m.autoUpdateEnabled(userID, domainName, include) {
					result.AutoUpdates = append(result.AutoUpdates, include)
				}
			}
			return nil
		})
	}
	group.Wait()

	if result.Checked == 0 && len(result.Errors) > 0 {
		return result, fmt.Errorf("monitor: no include of %s could be resolved: %v", domainName, result.Errors)
	}
	return result, nil
}

// checkInclude performs the baseline read-modify-write for one include under
// its per-key lock, so a scheduled check on one instance and an API-triggered
// check on another never interleave. A missing baseline is established
// silently; a matching set leaves the baseline untouched.
func (m *Monitor) checkInclude(ctx context.Context, userID uint64, domainName, include string) (*domain.IPChangeEvent, error) {
	key := fmt.Sprintf("%d/%s/%s", userID, domainName, include)
	unlock, err := m.locks.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := m.flattener.ResolveIPSet(ctx, include)
	if err != nil {
		return nil, err
	}

	baseline, err := database.GetBaseline(userID, domainName, include)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		if _, err := database.SaveBaseline(userID, domainName, include, current, time.Now()); err != nil {
			return nil, err
		}
		log.Debug("monitor: baseline established", "domain", domainName, "include", include, "ips", len(current))
		return nil, nil
	}
	if !baseline.MonitoringEnabled {
		return nil, nil
	}

	added, removed := diffIPs(baseline.BaselineIPs, current)
	if len(added) == 0 && len(removed) == 0 {
		return nil, nil
	}

	profile := m.classifier.Classify(include)
	changeType := classifyChange(added, removed)
	impact := assessImpact(added, removed, profile, baseline.Sensitivity)
	autoSafe := decideAutoUpdateSafe(changeType, impact, profile)

	event := &domain.IPChangeEvent{
		Domain:            domainName,
		IncludeDomain:     include,
		ESPName:           profile.ESPName,
		ChangeType:        changeType,
		PreviousIPs:       baseline.BaselineIPs.Clone(),
		CurrentIPs:        current,
		Impact:            impact,
		AutoUpdateSafe:    autoSafe,
		RiskFactors:       riskFactors(added, removed, profile),
		RecommendedAction: recommendedAction(include, impact, autoSafe),
	}

	log.Info("monitor: change detected",
		"domain", domainName, "include", include,
		"type", changeType, "impact", impact,
		"added", len(added), "removed", len(removed))

	// The baseline tracks ground truth, not applied state, so it is
	// replaced even when no auto-update follows. Persistence failures do
	// not discard the computed event.
	if _, err := database.SaveBaseline(userID, domainName, include, current, time.Now()); err != nil {
		log.Error("monitor: baseline save failed", "domain", domainName, "include", include, "error", err)
		return event, err
	}
	if err := database.AppendChangeEvent(event); err != nil {
		log.Error("monitor: event append failed", "domain", domainName, "include", include, "error", err)
		return event, err
	}
	return event, nil
}

func (m *Monitor) autoUpdateEnabled(userID uint64, domainName, include string) bool {
	baseline, err := database.GetBaseline(userID, domainName, include)
	if err != nil || baseline == nil {
		return false
	}
	return baseline.AutoUpdate
}
