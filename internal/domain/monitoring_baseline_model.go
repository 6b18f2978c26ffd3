package domain

import "time"

type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// MonitoringBaseline is the last known resolved address set for one
// (user, domain, include) triple. It is the sole source of truth for
// "previous state" in change detection and is never recomputed
// retroactively; it is replaced after every processed change.
type MonitoringBaseline struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	UserID        uint64 `gorm:"index:idx_baseline_key,unique,priority:1"`
	Domain        string `gorm:"size:255;not null;index:idx_baseline_key,unique,priority:2"`
	IncludeDomain string `gorm:"size:255;not null;index:idx_baseline_key,unique,priority:3"`

	BaselineIPs       StringList `gorm:"type:text"`
	MonitoringEnabled bool       `gorm:"not null;default:true"`
	AutoUpdate        bool       `gorm:"not null"`
	Sensitivity       string     `gorm:"size:8;not null;default:'medium'"`
	LastVerified      time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
