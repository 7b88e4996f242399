package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/persistence/models"
)

// GormCredentialRepository persists credential fields in postgres.
// One row per field; MergeFields upserts the supplied rows and never
// touches fields absent from the input.
type GormCredentialRepository struct {
	db *Database
}

// NewGormCredentialRepository creates a credential repository
func NewGormCredentialRepository(db *Database) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

var _ vendor.CredentialRepository = (*GormCredentialRepository)(nil)

// FindByVendorAndScope returns every stored field of a pair
func (r *GormCredentialRepository) FindByVendorAndScope(ctx context.Context, code vendor.Code, scope vendor.Scope) ([]vendor.CredentialField, error) {
	var rows []models.VendorCredentialModel
	err := r.db.DB().WithContext(ctx).
		Where("vendor_code = ? AND scope = ?", code.String(), scope.String()).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find credentials: %w", err)
	}

	fields := make([]vendor.CredentialField, 0, len(rows))
	for i := range rows {
		f, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// MergeFields upserts the given fields by (vendor, scope, name)
func (r *GormCredentialRepository) MergeFields(ctx context.Context, fields []vendor.CredentialField) error {
	if len(fields) == 0 {
		return vendor.ErrNoFields
	}

	rows := make([]*models.VendorCredentialModel, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, models.CredentialFromDomain(f))
	}

	err := r.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vendor_code"}, {Name: "scope"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "encrypted", "updated_at"}),
		}).
		Create(rows).Error
	if err != nil {
		return fmt.Errorf("merge credential fields: %w", err)
	}
	return nil
}
