package monitor

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"gorm.io/driver/sqlite"

	"spfwatch/internal/cache"
	"spfwatch/internal/database"
	"spfwatch/internal/domain"
	"spfwatch/internal/esp"
	"spfwatch/internal/flatten"
	"spfwatch/internal/resolver"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := database.SetupDB(
		database.WithDialector(sqlite.Open(dsn)),
		database.WithSeedDefaults(false),
	)
	if err != nil {
		t.Fatalf("setup test database: %v", err)
	}

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	t.Cleanup(func() {
		database.DB = nil
	})
}

func newTestMonitor(r resolver.Resolver) *Monitor {
	classifier := esp.NewClassifier(cache.NewInMemoryCache())
	return New(r, flatten.New(r, classifier), classifier)
}

func TestDiffIPs(t *testing.T) {
	added, removed := diffIPs(
		[]string{"1.1.1.1", "2.2.2.2"},
		[]string{"2.2.2.2", "3.3.3.3"},
	)

	if !reflect.DeepEqual(added, []string{"3.3.3.3"}) {
		t.Errorf("added is %v, want [3.3.3.3]", added)
	}
	if !reflect.DeepEqual(removed, []string{"1.1.1.1"}) {
		t.Errorf("removed is %v, want [1.1.1.1]", removed)
	}
	if got := classifyChange(added, removed); got != domain.ChangeTypeModified {
		t.Errorf("classifyChange returned %q, want %q", got, domain.ChangeTypeModified)
	}
}

func TestClassifyChange(t *testing.T) {
	cases := []struct {
		name    string
		added   []string
		removed []string
		want    string
	}{
		{"only additions", []string{"3.3.3.3"}, nil, domain.ChangeTypeAdded},
		{"only removals", nil, []string{"1.1.1.1"}, domain.ChangeTypeRemoved},
		{"both", []string{"3.3.3.3"}, []string{"1.1.1.1"}, domain.ChangeTypeModified},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyChange(tc.added, tc.removed); got != tc.want {
				t.Fatalf("classifyChange returned %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAssessImpact(t *testing.T) {
	stable := esp.Profile{IsStable: true, AutoUpdateSafe: true, Known: true}
	unstable := esp.Profile{IsStable: false, Known: true}

	ips := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("192.0.2.%d", i+1)
		}
		return out
	}

	cases := []struct {
		name        string
		added       []string
		removed     []string
		profile     esp.Profile
		sensitivity string
		want        string
	}{
		{"many removals from stable", nil, ips(6), stable, "medium", domain.ImpactCritical},
		{"any removal from unstable", nil, ips(1), unstable, "medium", domain.ImpactHigh},
		{"large change on stable", ips(11), nil, stable, "medium", domain.ImpactHigh},
		{"over medium threshold", ips(4), nil, stable, "medium", domain.ImpactMedium},
		{"under medium threshold", ips(2), nil, stable, "medium", domain.ImpactLow},
		{"high sensitivity escalates", ips(2), nil, stable, "high", domain.ImpactMedium},
		{"low sensitivity tolerates", ips(5), nil, stable, "low", domain.ImpactLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := assessImpact(tc.added, tc.removed, tc.profile, tc.sensitivity)
			if got != tc.want {
				t.Fatalf("assessImpact returned %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAutoUpdateGating(t *testing.T) {
	safeProfile := esp.Profile{IsStable: true, AutoUpdateSafe: true, Known: true}
	unsafeProfile := esp.Profile{IsStable: false, AutoUpdateSafe: false, Known: true}

	// High and critical impact are never safe, whatever the profile says.
	for _, impact := range []string{domain.ImpactHigh, domain.ImpactCritical} {
		for _, changeType := range []string{domain.ChangeTypeAdded, domain.ChangeTypeRemoved, domain.ChangeTypeModified} {
			if decideAutoUpdateSafe(changeType, impact, safeProfile) {
				t.Errorf("decideAutoUpdateSafe(%s, %s) is true for a safe profile, want false", changeType, impact)
			}
		}
	}

	if decideAutoUpdateSafe(domain.ChangeTypeAdded, domain.ImpactLow, unsafeProfile) {
		t.Error("addition on an unsafe profile gated as safe")
	}
	if !decideAutoUpdateSafe(domain.ChangeTypeAdded, domain.ImpactMedium, safeProfile) {
		t.Error("medium-impact addition on a safe profile gated as unsafe")
	}
	if !decideAutoUpdateSafe(domain.ChangeTypeRemoved, domain.ImpactLow, safeProfile) {
		t.Error("low-impact removal on a stable safe profile gated as unsafe")
	}
	if decideAutoUpdateSafe(domain.ChangeTypeRemoved, domain.ImpactMedium, safeProfile) {
		t.Error("medium-impact removal gated as safe")
	}
}

func TestCheckDomainChanges(t *testing.T) {
	setupTestDB(t)

	mock := &resolver.MockResolver{TXT: map[string][]string{
		"example.com":     {"v=spf1 include:_spf.google.com ~all"},
		"_spf.google.com": {"v=spf1 ip4:1.1.1.1 ip4:2.2.2.2 ~all"},
	}}
	m := newTestMonitor(mock)
	ctx := context.Background()

	// First run establishes the baseline without emitting events.
	result, err := m.CheckDomainChanges(ctx, 1, "example.com")
	if err != nil {
		t.Fatalf("CheckDomainChanges returned %v", err)
	}
	if len(result.Events) != 0 {
		t.Fatalf("first run emitted %d events, want 0", len(result.Events))
	}

	baseline, err := database.GetBaseline(1, "example.com", "_spf.google.com")
	if err != nil || baseline == nil {
		t.Fatalf("baseline not established: %v", err)
	}
	if !reflect.DeepEqual([]string(baseline.BaselineIPs), []string{"1.1.1.1", "2.2.2.2"}) {
		t.Fatalf("baseline IPs are %v", baseline.BaselineIPs)
	}

	// A second run with no DNS change is a no-op.
	result, err = m.CheckDomainChanges(ctx, 1, "example.com")
	if err != nil {
		t.Fatalf("second CheckDomainChanges returned %v", err)
	}
	if len(result.Events) != 0 {
		t.Fatalf("healthy check emitted %d events, want 0", len(result.Events))
	}
	unchanged, _ := database.GetBaseline(1, "example.com", "_spf.google.com")
	if !unchanged.UpdatedAt.Equal(baseline.UpdatedAt) {
		t.Error("healthy check touched the baseline")
	}

	// Drift: 1.1.1.1 disappears, 3.3.3.3 appears.
	mock.TXT["_spf.google.com"] = []string{"v=spf1 ip4:2.2.2.2 ip4:3.3.3.3 ~all"}

	result, err = m.CheckDomainChanges(ctx, 1, "example.com")
	if err != nil {
		t.Fatalf("third CheckDomainChanges returned %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("drifted check emitted %d events, want 1", len(result.Events))
	}

	event := result.Events[0]
	if event.ChangeType != domain.ChangeTypeModified {
		t.Errorf("ChangeType is %q, want modified", event.ChangeType)
	}
	if !reflect.DeepEqual([]string(event.PreviousIPs), []string{"1.1.1.1", "2.2.2.2"}) {
		t.Errorf("PreviousIPs are %v", event.PreviousIPs)
	}
	if !reflect.DeepEqual([]string(event.CurrentIPs), []string{"2.2.2.2", "3.3.3.3"}) {
		t.Errorf("CurrentIPs are %v", event.CurrentIPs)
	}
	if event.ESPName != "Google Workspace" {
		t.Errorf("ESPName is %q", event.ESPName)
	}

	// Baseline replaced with ground truth, event persisted.
	replaced, _ := database.GetBaseline(1, "example.com", "_spf.google.com")
	if !reflect.DeepEqual([]string(replaced.BaselineIPs), []string{"2.2.2.2", "3.3.3.3"}) {
		t.Errorf("replaced baseline IPs are %v", replaced.BaselineIPs)
	}
	events, err := database.ListChangeEvents("example.com", 10)
	if err != nil {
		t.Fatalf("ListChangeEvents returned %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("stored %d events, want 1", len(events))
	}
}

func TestCheckDomainChangesPartialFailure(t *testing.T) {
	setupTestDB(t)

	mock := &resolver.MockResolver{
		TXT: map[string][]string{
			"example.com":  {"v=spf1 include:good.example include:bad.example ~all"},
			"good.example": {"v=spf1 ip4:192.0.2.1 ~all"},
			"bad.example":  {"v=spf1 ip4:198.51.100.1 ~all"},
		},
		Timeout: []string{"txt bad.example"},
	}
	m := newTestMonitor(mock)

	result, err := m.CheckDomainChanges(context.Background(), 1, "example.com")
	if err != nil {
		t.Fatalf("CheckDomainChanges returned %v, want partial success", err)
	}
	if result.Checked != 1 {
		t.Errorf("Checked is %d, want 1", result.Checked)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors are %v, want one entry", result.Errors)
	}

	baseline, err := database.GetBaseline(1, "example.com", "good.example")
	if err != nil || baseline == nil {
		t.Fatalf("healthy sibling baseline missing: %v", err)
	}
}

func TestCheckDomainChangesAllFailed(t *testing.T) {
	setupTestDB(t)

	mock := &resolver.MockResolver{
		TXT: map[string][]string{
			"example.com": {"v=spf1 include:bad.example ~all"},
			"bad.example": {"v=spf1 ip4:198.51.100.1 ~all"},
		},
		Fail: []string{"txt bad.example"},
	}
	m := newTestMonitor(mock)

	if _, err := m.CheckDomainChanges(context.Background(), 1, "example.com"); err == nil {
		t.Fatal("CheckDomainChanges returned nil error with every include failing")
	}
}

func TestCheckDomainChangesInvalidRecord(t *testing.T) {
	setupTestDB(t)

	mock := &resolver.MockResolver{TXT: map[string][]string{
		"example.com": {"v=spf1 ip4:not-an-ip ~all"},
	}}
	m := newTestMonitor(mock)

	if _, err := m.CheckDomainChanges(context.Background(), 1, "example.com"); err == nil {
		t.Fatal("CheckDomainChanges returned nil error for an invalid record")
	}
}

func TestCheckDomainTierFiltersIncludes(t *testing.T) {
	setupTestDB(t)

	// _spf.google.com is checked weekly; an unknown include defaults to
	// hourly checks.
	mock := &resolver.MockResolver{TXT: map[string][]string{
		"example.com":     {"v=spf1 include:_spf.google.com include:unknown.example ~all"},
		"_spf.google.com": {"v=spf1 ip4:1.1.1.1 ~all"},
		"unknown.example": {"v=spf1 ip4:2.2.2.2 ~all"},
	}}
	m := newTestMonitor(mock)

	result, err := m.CheckDomainTier(context.Background(), 1, "example.com", esp.CheckHourly)
	if err != nil {
		t.Fatalf("CheckDomainTier returned %v", err)
	}
	if result.Checked != 1 {
		t.Fatalf("hourly tier checked %d includes, want 1", result.Checked)
	}

	if b, _ := database.GetBaseline(1, "example.com", "_spf.google.com"); b != nil {
		t.Error("weekly include was checked during the hourly pass")
	}
	if b, _ := database.GetBaseline(1, "example.com", "unknown.example"); b == nil {
		t.Error("hourly include was not checked")
	}
}
