package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/persistence/models"
)

// GormPriorityRepository persists vendor priorities in postgres
type GormPriorityRepository struct {
	db *Database
}

// NewGormPriorityRepository creates a priority repository
func NewGormPriorityRepository(db *Database) *GormPriorityRepository {
	return &GormPriorityRepository{db: db}
}

var _ vendor.PriorityRepository = (*GormPriorityRepository)(nil)

// FindByScopeAndCategory returns the declared ordering of a pair
func (r *GormPriorityRepository) FindByScopeAndCategory(ctx context.Context, scope vendor.Scope, category string) ([]vendor.PriorityEntry, error) {
	var rows []models.VendorPriorityModel
	err := r.db.DB().WithContext(ctx).
		Where("scope = ? AND category = ?", scope.String(), category).
		Order("rank DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find priorities: %w", err)
	}

	entries := make([]vendor.PriorityEntry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReplaceForScopeAndCategory swaps the full ordering of a pair in one
// transaction. Readers never observe a half-replaced ordering.
func (r *GormPriorityRepository) ReplaceForScopeAndCategory(ctx context.Context, scope vendor.Scope, category string, entries []vendor.PriorityEntry) error {
	return r.db.Transaction(ctx, func(tx *gorm.DB) error {
		err := tx.Where("scope = ? AND category = ?", scope.String(), category).
			Delete(&models.VendorPriorityModel{}).Error
		if err != nil {
			return fmt.Errorf("clear priorities: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		rows := make([]*models.VendorPriorityModel, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, models.PriorityFromDomain(e))
		}
		if err := tx.Create(rows).Error; err != nil {
			return fmt.Errorf("insert priorities: %w", err)
		}
		return nil
	})
}
