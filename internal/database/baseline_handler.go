package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spfwatch/internal/domain"
)

func GetBaseline(userID uint64, domainName, includeDomain string) (*domain.MonitoringBaseline, error) {
	var baseline domain.MonitoringBaseline
	err := DB.Where(
		"user_id = ? AND domain = ? AND include_domain = ?",
		userID, domainName, includeDomain,
	).First(&baseline).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database: get baseline for %s/%s: %w", domainName, includeDomain, err)
	}
	return &baseline, nil
}

// SaveBaseline creates or replaces the stored IP set for one
// (user, domain, include) key and stamps LastVerified. The caller holds the
// per-key lock, so the read-modify-write cannot interleave with itself.
func SaveBaseline(userID uint64, domainName, includeDomain string, ips []string, verifiedAt time.Time) (*domain.MonitoringBaseline, error) {
	baseline := domain.MonitoringBaseline{
		UserID:            userID,
		Domain:            domainName,
		IncludeDomain:     includeDomain,
		BaselineIPs:       ips,
		MonitoringEnabled: true,
		Sensitivity:       string(domain.SensitivityMedium),
		LastVerified:      verifiedAt,
	}

	err := DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "domain"}, {Name: "include_domain"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"baseline_ips", "last_verified", "updated_at"}),
	}).Create(&baseline).Error
	if err != nil {
		return nil, fmt.Errorf("database: save baseline for %s/%s: %w", domainName, includeDomain, err)
	}

	return &baseline, nil
}

func ListBaselines(userID uint64, domainName string) ([]domain.MonitoringBaseline, error) {
	var baselines []domain.MonitoringBaseline
	err := DB.Where("user_id = ? AND domain = ?", userID, domainName).
		Order("include_domain").
		Find(&baselines).Error
	if err != nil {
		return nil, fmt.Errorf("database: list baselines for %s: %w", domainName, err)
	}
	return baselines, nil
}

// ListMonitoredDomains returns the distinct domains that have at least one
// baseline with monitoring enabled, for the scheduler to walk.
func ListMonitoredDomains() ([]string, error) {
	var domains []string
	err := DB.Model(&domain.MonitoringBaseline{}).
		Where("monitoring_enabled = ?", true).
		Distinct("domain").
		Order("domain").
		Pluck("domain", &domains).Error
	if err != nil {
		return nil, fmt.Errorf("database: list monitored domains: %w", err)
	}
	return domains, nil
}

// MonitoredKey identifies one owner's monitored domain.
type MonitoredKey struct {
	UserID uint64
	Domain string
}

// ListMonitoredKeys returns the distinct (user, domain) pairs with at least
// one monitoring-enabled baseline, for the scheduler to walk.
func ListMonitoredKeys() ([]MonitoredKey, error) {
	var keys []MonitoredKey
	err := DB.Model(&domain.MonitoringBaseline{}).
		Where("monitoring_enabled = ?", true).
		Distinct("user_id", "domain").
		Order("user_id, domain").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("database: list monitored keys: %w", err)
	}
	return keys, nil
}

func SetBaselineMonitoring(userID uint64, domainName, includeDomain string, enabled bool) error {
	res := DB.Model(&domain.MonitoringBaseline{}).
		Where("user_id = ? AND domain = ? AND include_domain = ?", userID, domainName, includeDomain).
		Update("monitoring_enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("database: set monitoring for %s/%s: %w", domainName, includeDomain, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("database: no baseline for %s/%s", domainName, includeDomain)
	}
	return nil
}

func SetBaselineAutoUpdate(userID uint64, domainName, includeDomain string, enabled bool) error {
	res := DB.Model(&domain.MonitoringBaseline{}).
		Where("user_id = ? AND domain = ? AND include_domain = ?", userID, domainName, includeDomain).
		Update("auto_update", enabled)
	if res.Error != nil {
		return fmt.Errorf("database: set auto-update for %s/%s: %w", domainName, includeDomain, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("database: no baseline for %s/%s", domainName, includeDomain)
	}
	return nil
}
