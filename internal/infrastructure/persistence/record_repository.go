package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vendorsync/backend/internal/domain/catalog"
	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/persistence/models"
)

// GormRecordRepository reads catalog records from postgres
type GormRecordRepository struct {
	db *Database
}

// NewGormRecordRepository creates a catalog record repository
func NewGormRecordRepository(db *Database) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

var _ catalog.RecordRepository = (*GormRecordRepository)(nil)

// FindByKey returns one record, or nil when the key has no record
func (r *GormRecordRepository) FindByKey(ctx context.Context, key catalog.RecordKey) (*catalog.Record, error) {
	var model models.CatalogRecordModel
	err := r.db.DB().WithContext(ctx).
		Where("sku = ? AND scope = ?", key.SKU, key.Scope.String()).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record: %w", err)
	}
	return model.ToDomain()
}

// FindByKeys returns existing records for the given keys. Keys without a
// record are simply absent from the result map.
func (r *GormRecordRepository) FindByKeys(ctx context.Context, keys []catalog.RecordKey) (map[catalog.RecordKey]*catalog.Record, error) {
	result := make(map[catalog.RecordKey]*catalog.Record, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	// all keys of one reconciliation share a scope
	scope := keys[0].Scope.String()
	skus := make([]string, 0, len(keys))
	for _, k := range keys {
		skus = append(skus, k.SKU)
	}

	const batch = 500
	for start := 0; start < len(skus); start += batch {
		end := start + batch
		if end > len(skus) {
			end = len(skus)
		}

		var rows []models.CatalogRecordModel
		err := r.db.DB().WithContext(ctx).
			Where("scope = ? AND sku IN ?", scope, skus[start:end]).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("find records: %w", err)
		}
		for i := range rows {
			rec, err := rows[i].ToDomain()
			if err != nil {
				return nil, err
			}
			result[rec.Key()] = rec
		}
	}
	return result, nil
}

// CountByScope returns the number of live records in a scope
func (r *GormRecordRepository) CountByScope(ctx context.Context, scope vendor.Scope) (int64, error) {
	var count int64
	err := r.db.DB().WithContext(ctx).
		Model(&models.CatalogRecordModel{}).
		Where("scope = ? AND retired = false", scope.String()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}
