package domain

import "time"

// ESPProfile is the persisted stability classification for one include
// domain. Rows are shared read-mostly across all users' domains; operators
// may edit them to override the built-in classification table.
type ESPProfile struct {
	ID                 uint64     `gorm:"primaryKey;autoIncrement"`
	IncludeDomain      string     `gorm:"size:255;uniqueIndex;not null"`
	ESPName            string     `gorm:"size:120;not null"`
	IsStable           bool       `gorm:"not null"`
	RequiresMonitoring bool       `gorm:"not null"`
	CheckFrequency     string     `gorm:"size:16;not null;default:'daily'"`
	ChangeFrequency    string     `gorm:"size:16;not null;default:'weekly'"`
	AutoUpdateSafe     bool       `gorm:"not null"`
	KnownIPRanges      StringList `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
