package database

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"spfwatch/internal/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}

	if err := db.AutoMigrate(
		&domain.ESPProfile{},
		&domain.MonitoringBaseline{},
		&domain.IPChangeEvent{},
		&domain.FlatteningOperation{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	DB = db
	t.Cleanup(func() {
		DB = nil
	})

	return db
}

func TestSeedESPProfiles(t *testing.T) {
	db := setupTestDB(t)

	if err := seedESPProfiles(db); err != nil {
		t.Fatalf("seedESPProfiles returned error: %v", err)
	}

	var count int64
	if err := db.Model(&domain.ESPProfile{}).Count(&count).Error; err != nil {
		t.Fatalf("count profiles: %v", err)
	}
	if count == 0 {
		t.Fatal("no ESP profiles were seeded")
	}

	// Seeding twice must not duplicate or overwrite rows.
	if err := db.Model(&domain.ESPProfile{}).
		Where("include_domain = ?", "_spf.google.com").
		Update("esp_name", "Edited By Operator").Error; err != nil {
		t.Fatalf("edit seeded profile: %v", err)
	}

	if err := seedESPProfiles(db); err != nil {
		t.Fatalf("second seedESPProfiles returned error: %v", err)
	}

	var again int64
	if err := db.Model(&domain.ESPProfile{}).Count(&again).Error; err != nil {
		t.Fatalf("recount profiles: %v", err)
	}
	if again != count {
		t.Fatalf("profile count changed from %d to %d after reseeding", count, again)
	}

	profile, err := GetESPProfile("_spf.google.com")
	if err != nil {
		t.Fatalf("GetESPProfile returned error: %v", err)
	}
	if profile == nil || profile.ESPName != "Edited By Operator" {
		t.Fatal("reseeding overwrote an operator edit")
	}
}

func TestESPOverride(t *testing.T) {
	setupTestDB(t)

	if _, ok := ESPOverride("missing.example"); ok {
		t.Fatal("ESPOverride reported a hit for a missing row")
	}

	row := &domain.ESPProfile{
		IncludeDomain:   "spf.custom.example",
		ESPName:         "Custom Relay",
		IsStable:        true,
		CheckFrequency:  "weekly",
		ChangeFrequency: "rare",
		AutoUpdateSafe:  true,
	}
	if err := UpsertESPProfile(row); err != nil {
		t.Fatalf("UpsertESPProfile returned error: %v", err)
	}

	profile, ok := ESPOverride("spf.custom.example")
	if !ok {
		t.Fatal("ESPOverride missed a stored row")
	}
	if profile.ESPName != "Custom Relay" || !profile.Known {
		t.Fatalf("override profile is %+v, want stored values marked known", profile)
	}
}

func TestSaveAndGetBaseline(t *testing.T) {
	setupTestDB(t)

	got, err := GetBaseline(1, "example.com", "_spf.google.com")
	if err != nil {
		t.Fatalf("GetBaseline returned error: %v", err)
	}
	if got != nil {
		t.Fatal("GetBaseline returned a baseline before any save")
	}

	now := time.Now().UTC().Truncate(time.Second)
	if _, err := SaveBaseline(1, "example.com", "_spf.google.com", []string{"192.0.2.1", "192.0.2.2"}, now); err != nil {
		t.Fatalf("SaveBaseline returned error: %v", err)
	}

	got, err = GetBaseline(1, "example.com", "_spf.google.com")
	if err != nil {
		t.Fatalf("GetBaseline returned error: %v", err)
	}
	if got == nil {
		t.Fatal("GetBaseline returned nil after save")
	}
	if len(got.BaselineIPs) != 2 {
		t.Fatalf("baseline holds %d IPs, want 2", len(got.BaselineIPs))
	}

	// Replacing the IP set must update the existing row, not add one.
	later := now.Add(time.Hour)
	if _, err := SaveBaseline(1, "example.com", "_spf.google.com", []string{"192.0.2.9"}, later); err != nil {
		t.Fatalf("second SaveBaseline returned error: %v", err)
	}

	var count int64
	if err := DB.Model(&domain.MonitoringBaseline{}).Count(&count).Error; err != nil {
		t.Fatalf("count baselines: %v", err)
	}
	if count != 1 {
		t.Fatalf("baseline table holds %d rows, want 1", count)
	}

	got, err = GetBaseline(1, "example.com", "_spf.google.com")
	if err != nil {
		t.Fatalf("GetBaseline returned error: %v", err)
	}
	if len(got.BaselineIPs) != 1 || got.BaselineIPs[0] != "192.0.2.9" {
		t.Fatalf("baseline IPs are %v, want the replacement set", got.BaselineIPs)
	}
}

func TestListMonitoredDomains(t *testing.T) {
	setupTestDB(t)

	now := time.Now()
	if _, err := SaveBaseline(1, "one.example", "_spf.google.com", []string{"192.0.2.1"}, now); err != nil {
		t.Fatalf("SaveBaseline returned error: %v", err)
	}
	if _, err := SaveBaseline(1, "one.example", "sendgrid.net", []string{"192.0.2.2"}, now); err != nil {
		t.Fatalf("SaveBaseline returned error: %v", err)
	}
	if _, err := SaveBaseline(2, "two.example", "mailgun.org", []string{"192.0.2.3"}, now); err != nil {
		t.Fatalf("SaveBaseline returned error: %v", err)
	}

	if err := SetBaselineMonitoring(2, "two.example", "mailgun.org", false); err != nil {
		t.Fatalf("SetBaselineMonitoring returned error: %v", err)
	}

	domains, err := ListMonitoredDomains()
	if err != nil {
		t.Fatalf("ListMonitoredDomains returned error: %v", err)
	}
	if len(domains) != 1 || domains[0] != "one.example" {
		t.Fatalf("monitored domains are %v, want [one.example]", domains)
	}
}

func TestChangeEventAppendAndList(t *testing.T) {
	setupTestDB(t)

	for i := 0; i < 3; i++ {
		event := &domain.IPChangeEvent{
			Domain:            "example.com",
			IncludeDomain:     "sendgrid.net",
			ESPName:           "SendGrid",
			ChangeType:        domain.ChangeTypeModified,
			PreviousIPs:       domain.StringList{"192.0.2.1"},
			CurrentIPs:        domain.StringList{"192.0.2.2"},
			Impact:            domain.ImpactLow,
			AutoUpdateSafe:    true,
			RecommendedAction: "review",
		}
		if err := AppendChangeEvent(event); err != nil {
			t.Fatalf("AppendChangeEvent returned error: %v", err)
		}
	}

	events, err := ListChangeEvents("example.com", 2)
	if err != nil {
		t.Fatalf("ListChangeEvents returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("listed %d events, want limit of 2", len(events))
	}

	if events, _ = ListChangeEvents("other.example", 10); len(events) != 0 {
		t.Fatalf("listed %d events for an unrelated domain, want 0", len(events))
	}
}

func TestFlatteningOperationLifecycle(t *testing.T) {
	setupTestDB(t)

	op := &domain.FlatteningOperation{
		UserID:              1,
		Domain:              "example.com",
		OriginalRecord:      "v=spf1 include:sendgrid.net ~all",
		FlattenedRecord:     "v=spf1 ip4:192.0.2.1 ~all",
		TargetIncludes:      domain.StringList{"sendgrid.net"},
		OriginalLookupCount: 1,
		NewLookupCount:      0,
		IPCount:             1,
	}
	if err := CreateFlatteningOperation(op); err != nil {
		t.Fatalf("CreateFlatteningOperation returned error: %v", err)
	}
	if op.Status != domain.FlatteningStatusPending {
		t.Fatalf("new operation status is %q, want pending", op.Status)
	}

	updated, err := UpdateFlatteningStatus(op.ID, domain.FlatteningStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateFlatteningStatus returned error: %v", err)
	}
	if updated.Status != domain.FlatteningStatusCompleted {
		t.Fatalf("status is %q, want completed", updated.Status)
	}

	if _, err := UpdateFlatteningStatus(op.ID, domain.FlatteningStatusPending); err == nil {
		t.Fatal("UpdateFlatteningStatus allowed completed -> pending")
	}

	ops, err := ListFlatteningOperations(1, "example.com", 10)
	if err != nil {
		t.Fatalf("ListFlatteningOperations returned error: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("listed %d operations, want 1", len(ops))
	}
}
