package domain

import "time"

const (
	FlatteningStatusPending   = "pending"
	FlatteningStatusCompleted = "completed"
	FlatteningStatusReverted  = "reverted"
	FlatteningStatusFailed    = "failed"
)

// FlatteningOperation is the history entry persisted when a user applies a
// flattening result. Status is mutated only by explicit approve/revert
// actions, never by background jobs.
type FlatteningOperation struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"index"`
	Domain string `gorm:"size:255;not null;index"`

	OriginalRecord  string     `gorm:"type:text;not null"`
	FlattenedRecord string     `gorm:"type:text;not null"`
	TargetIncludes  StringList `gorm:"type:text"`

	OriginalLookupCount int    `gorm:"not null"`
	NewLookupCount      int    `gorm:"not null"`
	IPCount             int    `gorm:"not null"`
	Status              string `gorm:"size:16;not null;default:'pending'"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// CanTransitionTo reports whether a status change is one of the allowed
// user actions: pending operations resolve to completed or failed, completed
// operations may be reverted.
func (op *FlatteningOperation) CanTransitionTo(status string) bool {
	switch op.Status {
	case FlatteningStatusPending:
		return status == FlatteningStatusCompleted || status == FlatteningStatusFailed || status == FlatteningStatusReverted
	case FlatteningStatusCompleted:
		return status == FlatteningStatusReverted
	default:
		return false
	}
}
