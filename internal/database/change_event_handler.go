package database

import (
	"fmt"

	"spfwatch/internal/domain"
)

// AppendChangeEvent persists a detected drift. The event log is append-only;
// there is deliberately no update or delete counterpart.
func AppendChangeEvent(event *domain.IPChangeEvent) error {
	if err := DB.Create(event).Error; err != nil {
		return fmt.Errorf("database: append change event for %s/%s: %w", event.Domain, event.IncludeDomain, err)
	}
	return nil
}

func ListChangeEvents(domainName string, limit int) ([]domain.IPChangeEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	var events []domain.IPChangeEvent
	err := DB.Where("domain = ?", domainName).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("database: list change events for %s: %w", domainName, err)
	}
	return events, nil
}
