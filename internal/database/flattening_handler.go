package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"spfwatch/internal/domain"
)

func CreateFlatteningOperation(op *domain.FlatteningOperation) error {
	if op.Status == "" {
		op.Status = domain.FlatteningStatusPending
	}
	if err := DB.Create(op).Error; err != nil {
		return fmt.Errorf("database: create flattening operation for %s: %w", op.Domain, err)
	}
	return nil
}

var ErrInvalidStatusTransition = errors.New("database: invalid flattening status transition")

// UpdateFlatteningStatus applies a user-driven approve/revert action. The
// read and conditional write run in one transaction so concurrent actions on
// the same operation cannot race each other into an illegal state.
func UpdateFlatteningStatus(id uint64, status string) (*domain.FlatteningOperation, error) {
	var op domain.FlatteningOperation

	err := DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&op, id).Error; err != nil {
			return fmt.Errorf("load flattening operation %d: %w", id, err)
		}

		if !op.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, op.Status, status)
		}

		op.Status = status
		return tx.Model(&op).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}

	return &op, nil
}

func ListFlatteningOperations(userID uint64, domainName string, limit int) ([]domain.FlatteningOperation, error) {
	if limit <= 0 {
		limit = 50
	}

	query := DB.Where("user_id = ?", userID)
	if domainName != "" {
		query = query.Where("domain = ?", domainName)
	}

	var ops []domain.FlatteningOperation
	err := query.Order("created_at DESC").Limit(limit).Find(&ops).Error
	if err != nil {
		return nil, fmt.Errorf("database: list flattening operations: %w", err)
	}
	return ops, nil
}
