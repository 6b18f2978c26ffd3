package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"spfwatch/internal/config"
	"spfwatch/internal/database"
	"spfwatch/internal/domain"
	"spfwatch/internal/esp"
	"spfwatch/internal/flatten"
	"spfwatch/internal/spf"
	"spfwatch/internal/support"
)

const (
	hourlyMonitorLockKey = "spfwatch:leader:monitor_hourly"
	dailyMonitorLockKey  = "spfwatch:leader:monitor_daily"
	weeklyMonitorLockKey = "spfwatch:leader:monitor_weekly"
)

// DefaultDomainConcurrency bounds how many monitored domains are checked at
// once across all tiers, so a large pass never floods the resolver.
const DefaultDomainConcurrency = 8

// Scheduler drives the periodic monitoring passes. Each check-frequency tier
// runs on its own timer behind its own leader lock; a domain whose previous
// check is still in flight when the next tick arrives is skipped, not queued.
// The checkSlots semaphore is shared by all tiers.
type Scheduler struct {
	monitor    *Monitor
	flattener  *flatten.Flattener
	inFlight   support.KeyTracker
	checkSlots *semaphore.Weighted
}

func NewScheduler(m *Monitor, flattener *flatten.Flattener) *Scheduler {
	return &Scheduler{
		monitor:    m,
		flattener:  flattener,
		checkSlots: semaphore.NewWeighted(domainConcurrency(config.GetConfig())),
	}
}

func domainConcurrency(cfg config.Config) int64 {
	if c := int64(cfg.Monitor.DomainThreads); c > 0 {
		return c
	}
	return DefaultDomainConcurrency
}

// Start launches the three tier routines. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	go s.startTier(ctx, esp.CheckHourly, hourlyMonitorLockKey,
		config.HourlyCheckIntervalUpdates(), config.GetHourlyCheckInterval, time.Hour)
	go s.startTier(ctx, esp.CheckDaily, dailyMonitorLockKey,
		config.DailyCheckIntervalUpdates(), config.GetDailyCheckInterval, 24*time.Hour)
	go s.startTier(ctx, esp.CheckWeekly, weeklyMonitorLockKey,
		config.WeeklyCheckIntervalUpdates(), config.GetWeeklyCheckInterval, 7*24*time.Hour)
}

func (s *Scheduler) startTier(ctx context.Context, tier esp.CheckFrequency, lockKey string,
	updates <-chan time.Duration, getInterval func() time.Duration, fallback time.Duration) {

	var intervalValue atomic.Value
	initialInterval := getInterval()
	if initialInterval <= 0 {
		initialInterval = fallback
	}
	intervalValue.Store(initialInterval)

	updateSignal := make(chan struct{}, 1)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case newInterval := <-updates:
				if newInterval <= 0 {
					newInterval = fallback
				}
				intervalValue.Store(newInterval)
				select {
				case updateSignal <- struct{}{}:
				default:
				}
			}
		}
	}()

	err := support.RunWithLeader(ctx, lockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		s.runTierLoop(leaderCtx, tier, &intervalValue, updateSignal, fallback)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Monitoring routine stopped", "tier", tier, "error", err)
	}
}

func (s *Scheduler) runTierLoop(ctx context.Context, tier esp.CheckFrequency,
	intervalValue *atomic.Value, updateSignal <-chan struct{}, fallback time.Duration) {

	currentInterval := intervalValue.Load().(time.Duration)
	if currentInterval <= 0 {
		currentInterval = fallback
	}

	ticker := time.NewTicker(currentInterval)
	defer ticker.Stop()

	s.runTierPass(ctx, tier)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTierPass(ctx, tier)
		case <-updateSignal:
			newInterval := intervalValue.Load().(time.Duration)
			if newInterval <= 0 {
				newInterval = fallback
			}
			if newInterval == currentInterval {
				continue
			}
			currentInterval = newInterval
			ticker.Reset(currentInterval)
		}
	}
}

func (s *Scheduler) runTierPass(ctx context.Context, tier esp.CheckFrequency) {
	keys, err := database.ListMonitoredKeys()
	if err != nil {
		log.Error("Monitoring pass aborted", "tier", tier, "error", err)
		return
	}

	start := time.Now()
	var checked, skipped int

	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}

		token := fmt.Sprintf("%d/%s", key.UserID, key.Domain)
		if !s.inFlight.TryAcquire(token) {
			skipped++
			continue
		}

		if err := s.checkSlots.Acquire(ctx, 1); err != nil {
			s.inFlight.Release(token)
			return
		}
		checked++

		go func() {
			defer s.checkSlots.Release(1)
			defer s.inFlight.Release(token)
			s.checkDomain(ctx, key, tier)
		}()
	}

	if checked > 0 || skipped > 0 {
		log.Info("Monitoring pass dispatched",
			"tier", tier, "domains", checked, "skipped", skipped, "duration", time.Since(start))
	}
}

func (s *Scheduler) checkDomain(ctx context.Context, key database.MonitoredKey, tier esp.CheckFrequency) {
	result, err := s.monitor.CheckDomainTier(ctx, key.UserID, key.Domain, tier)
	if err != nil {
		log.Error("Domain check failed", "domain", key.Domain, "tier", tier, "error", err)
		return
	}

	for _, e := range result.Errors {
		log.Warn("Include check failed", "domain", key.Domain, "detail", e)
	}

	if len(result.AutoUpdates) > 0 && config.GetConfig().Monitor.AutoUpdate {
		s.applyAutoUpdate(ctx, key, result.AutoUpdates)
	}
}

// applyAutoUpdate re-flattens the domain for the includes whose change was
// judged safe and records a pending history entry. The record itself is
// published by the operator, not here.
func (s *Scheduler) applyAutoUpdate(ctx context.Context, key database.MonitoredKey, includes []string) {
	rec, err := spf.Fetch(ctx, s.monitor.resolver, key.Domain)
	if err != nil {
		log.Error("Auto-update fetch failed", "domain", key.Domain, "error", err)
		return
	}

	result := s.flattener.Flatten(ctx, rec, includes, FlattenOptionsFromConfig(config.GetConfig()))
	if !result.Success {
		log.Warn("Auto-update flattening failed", "domain", key.Domain, "errors", result.Errors)
		return
	}

	op := &domain.FlatteningOperation{
		UserID:              key.UserID,
		Domain:              key.Domain,
		OriginalRecord:      rec.Raw,
		FlattenedRecord:     result.FlattenedRecord,
		TargetIncludes:      includes,
		OriginalLookupCount: result.OriginalLookups,
		NewLookupCount:      result.NewLookups,
		IPCount:             result.IPCount,
		Status:              domain.FlatteningStatusPending,
	}
	if err := database.CreateFlatteningOperation(op); err != nil {
		log.Error("Auto-update history write failed", "domain", key.Domain, "error", err)
		return
	}

	log.Info("Auto-update prepared",
		"domain", key.Domain, "includes", includes, "operation", op.ID,
		"lookups", result.OriginalLookups, "new_lookups", result.NewLookups)
}

// FlattenOptionsFromConfig maps the settings file onto flattening options.
func FlattenOptionsFromConfig(cfg config.Config) flatten.Options {
	return flatten.Options{
		ConsolidateCIDR:   cfg.Flattening.ConsolidateCIDR,
		PreserveOrder:     cfg.Flattening.PreserveOrder,
		IncludeSubdomains: cfg.Flattening.IncludeSubdomains,
		MinCIDRGroupSize:  int(cfg.Flattening.MinCIDRGroupSize),
		MaxIPsPerRecord:   int(cfg.Flattening.MaxIPsPerRecord),
		MaxDepth:          int(cfg.Flattening.MaxDepth),
		SplitOversize:     cfg.Flattening.SplitOversize,
	}
}
