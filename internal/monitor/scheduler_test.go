package monitor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"

	"spfwatch/internal/config"
	"spfwatch/internal/database"
	"spfwatch/internal/resolver"
)

// gateResolver blocks every TXT lookup until release is closed and records
// how many were in flight at once.
type gateResolver struct {
	inner resolver.Resolver

	mu     sync.Mutex
	active int
	peak   int

	entered chan struct{}
	release chan struct{}
}

func (g *gateResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	g.mu.Lock()
	g.active++
	if g.active > g.peak {
		g.peak = g.active
	}
	g.mu.Unlock()

	g.entered <- struct{}{}
	<-g.release

	g.mu.Lock()
	g.active--
	g.mu.Unlock()

	return g.inner.LookupTXT(ctx, name)
}

func (g *gateResolver) LookupIP(ctx context.Context, name string) ([]net.IP, error) {
	return g.inner.LookupIP(ctx, name)
}

func (g *gateResolver) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	return g.inner.LookupMX(ctx, name)
}

func TestRunTierPassBoundsConcurrency(t *testing.T) {
	setupTestDB(t)

	const domains = 5
	txt := make(map[string][]string, domains)
	for i := 0; i < domains; i++ {
		name := fmt.Sprintf("d%d.example", i)
		txt[name] = []string{fmt.Sprintf("v=spf1 ip4:192.0.2.%d ~all", i+1)}
		if _, err := database.SaveBaseline(1, name, "inc.example", []string{"192.0.2.200"}, time.Now()); err != nil {
			t.Fatalf("seed baseline for %s: %v", name, err)
		}
	}

	gate := &gateResolver{
		inner:   &resolver.MockResolver{TXT: txt},
		entered: make(chan struct{}, domains),
		release: make(chan struct{}),
	}

	m := newTestMonitor(gate)
	s := NewScheduler(m, m.flattener)
	s.checkSlots = semaphore.NewWeighted(2)

	done := make(chan struct{})
	go func() {
		s.runTierPass(context.Background(), "")
		close(done)
	}()

	<-gate.entered
	<-gate.entered

	select {
	case <-gate.entered:
		t.Fatal("a third domain check started while both slots were busy")
	case <-time.After(100 * time.Millisecond):
	}

	close(gate.release)
	<-done
	for i := 0; i < domains-2; i++ {
		<-gate.entered
	}

	// Let the dispatched check goroutines drain before teardown.
	deadline := time.After(5 * time.Second)
	for {
		gate.mu.Lock()
		active := gate.active
		gate.mu.Unlock()
		if active == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("domain checks did not drain")
		case <-time.After(10 * time.Millisecond):
		}
	}

	gate.mu.Lock()
	peak := gate.peak
	gate.mu.Unlock()
	if peak > 2 {
		t.Errorf("peak concurrent domain checks = %d, want at most 2", peak)
	}
}

func TestConcurrencyFromConfig(t *testing.T) {
	var cfg config.Config
	if got := includeConcurrency(cfg); got != DefaultIncludeConcurrency {
		t.Errorf("includeConcurrency(zero) = %d, want %d", got, DefaultIncludeConcurrency)
	}
	if got := domainConcurrency(cfg); got != DefaultDomainConcurrency {
		t.Errorf("domainConcurrency(zero) = %d, want %d", got, DefaultDomainConcurrency)
	}

	cfg.Monitor.IncludeThreads = 2
	cfg.Monitor.DomainThreads = 16
	if got := includeConcurrency(cfg); got != 2 {
		t.Errorf("includeConcurrency = %d, want 2", got)
	}
	if got := domainConcurrency(cfg); got != 16 {
		t.Errorf("domainConcurrency = %d, want 16", got)
	}
}
