package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spfwatch/internal/domain"
	"spfwatch/internal/esp"
)

// seedESPProfiles writes the curated classification table into the esp_profiles
// table on first start so operators can inspect and override it. Existing rows
// are left untouched.
func seedESPProfiles(db *gorm.DB) error {
	for includeDomain, profile := range esp.KnownProviders() {
		row := domain.ESPProfile{
			IncludeDomain:      includeDomain,
			ESPName:            profile.ESPName,
			IsStable:           profile.IsStable,
			RequiresMonitoring: profile.RequiresMonitoring,
			CheckFrequency:     string(profile.CheckFrequency),
			ChangeFrequency:    string(profile.ChangeFrequency),
			AutoUpdateSafe:     profile.AutoUpdateSafe,
			KnownIPRanges:      profile.KnownIPRanges,
		}

		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "include_domain"}},
			DoNothing: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("seed profile for %s: %w", includeDomain, err)
		}
	}
	return nil
}

func GetESPProfile(includeDomain string) (*domain.ESPProfile, error) {
	var profile domain.ESPProfile
	err := DB.Where("include_domain = ?", includeDomain).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database: get ESP profile for %s: %w", includeDomain, err)
	}
	return &profile, nil
}

func UpsertESPProfile(profile *domain.ESPProfile) error {
	err := DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "include_domain"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"esp_name", "is_stable", "requires_monitoring",
			"check_frequency", "change_frequency", "auto_update_safe",
			"known_ip_ranges", "updated_at",
		}),
	}).Create(profile).Error
	if err != nil {
		return fmt.Errorf("database: upsert ESP profile for %s: %w", profile.IncludeDomain, err)
	}
	return nil
}

// ESPOverride adapts stored profiles to the classifier's override hook.
// Database errors degrade to "no override" so classification keeps working
// when the store is down.
func ESPOverride(includeDomain string) (esp.Profile, bool) {
	row, err := GetESPProfile(includeDomain)
	if err != nil || row == nil {
		return esp.Profile{}, false
	}

	return esp.Profile{
		ESPName:            row.ESPName,
		IncludeDomain:      row.IncludeDomain,
		IsStable:           row.IsStable,
		RequiresMonitoring: row.RequiresMonitoring,
		CheckFrequency:     esp.CheckFrequency(row.CheckFrequency),
		ChangeFrequency:    esp.ChangeFrequency(row.ChangeFrequency),
		AutoUpdateSafe:     row.AutoUpdateSafe,
		KnownIPRanges:      row.KnownIPRanges.Clone(),
		Known:              true,
	}, true
}
