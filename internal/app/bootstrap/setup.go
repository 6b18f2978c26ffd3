package bootstrap

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"spfwatch/internal/cache"
	"spfwatch/internal/config"
	"spfwatch/internal/database"
	"spfwatch/internal/esp"
	"spfwatch/internal/flatten"
	"spfwatch/internal/monitor"
	"spfwatch/internal/resolver"
	"spfwatch/internal/support"
)

// Components holds the wired application graph.
type Components struct {
	Resolver   resolver.Resolver
	Classifier *esp.Classifier
	Flattener  *flatten.Flattener
	Monitor    *monitor.Monitor
	Scheduler  *monitor.Scheduler
}

// Setup loads settings, connects the stores and wires the component graph.
// The scheduler is started and runs until ctx is cancelled.
func Setup(ctx context.Context) (*Components, error) {
	config.ReadSettings()

	if _, err := database.SetupDB(); err != nil {
		return nil, err
	}
	config.SetBetweenTime()

	profileCache := setupCache(ctx)

	cfg := config.GetConfig()
	dnsResolver := resolver.New(resolver.Config{
		Nameservers: cfg.DNS.Nameservers,
		Timeout:     time.Duration(cfg.DNS.TimeoutSeconds) * time.Second,
		Retries:     int(cfg.DNS.Retries),
	})

	classifier := esp.NewClassifier(profileCache,
		esp.WithTTL(config.GetProfileCacheInterval()),
		esp.WithOverride(database.ESPOverride),
	)
	flattener := flatten.New(dnsResolver, classifier)
	mon := monitor.New(dnsResolver, flattener, classifier)

	scheduler := monitor.NewScheduler(mon, flattener)
	scheduler.Start(ctx)

	return &Components{
		Resolver:   dnsResolver,
		Classifier: classifier,
		Flattener:  flattener,
		Monitor:    mon,
		Scheduler:  scheduler,
	}, nil
}

// setupCache prefers the shared redis cache so classifications survive
// restarts and are shared between instances; a redis outage degrades to a
// per-process in-memory cache.
func setupCache(ctx context.Context) cache.Provider {
	redisClient, err := support.GetRedisClient()
	if err != nil {
		log.Warn("Redis unavailable, using in-memory profile cache", "error", err)
		return cache.NewInMemoryCache()
	}

	config.EnableRedisSynchronization(ctx, redisClient)
	return cache.NewRedisCache(redisClient, "spfwatch")
}
