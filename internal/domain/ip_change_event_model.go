package domain

import "time"

const (
	ChangeTypeAdded    = "added"
	ChangeTypeRemoved  = "removed"
	ChangeTypeModified = "modified"
)

const (
	ImpactLow      = "low"
	ImpactMedium   = "medium"
	ImpactHigh     = "high"
	ImpactCritical = "critical"
)

// IPChangeEvent records one detected drift between a monitoring baseline and
// a fresh resolution. Rows are append-only and never edited.
type IPChangeEvent struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	Domain        string `gorm:"size:255;not null;index:idx_change_event_domain,priority:1"`
	IncludeDomain string `gorm:"size:255;not null;index:idx_change_event_domain,priority:2"`
	ESPName       string `gorm:"size:120;not null"`

	ChangeType  string     `gorm:"size:16;not null"`
	PreviousIPs StringList `gorm:"type:text"`
	CurrentIPs  StringList `gorm:"type:text"`

	Impact            string     `gorm:"size:16;not null"`
	AutoUpdateSafe    bool       `gorm:"not null"`
	RiskFactors       StringList `gorm:"type:text"`
	RecommendedAction string     `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}
