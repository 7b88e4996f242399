package persistence

import (
	"context"
	"fmt"

	"github.com/vendorsync/backend/internal/domain/catalog"
	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/persistence/models"
)

// GormOfferingRepository reads vendor offerings from postgres
type GormOfferingRepository struct {
	db *Database
}

// NewGormOfferingRepository creates an offering repository
func NewGormOfferingRepository(db *Database) *GormOfferingRepository {
	return &GormOfferingRepository{db: db}
}

var _ catalog.OfferingRepository = (*GormOfferingRepository)(nil)

// ActiveSuppliers returns the vendors currently supplying a SKU in a scope
func (r *GormOfferingRepository) ActiveSuppliers(ctx context.Context, scope vendor.Scope, sku string) ([]vendor.Code, error) {
	var codes []string
	err := r.db.DB().WithContext(ctx).
		Model(&models.VendorOfferingModel{}).
		Where("scope = ? AND sku = ? AND active = true", scope.String(), sku).
		Pluck("vendor_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("find active suppliers: %w", err)
	}

	suppliers := make([]vendor.Code, 0, len(codes))
	for _, c := range codes {
		suppliers = append(suppliers, vendor.Code(c))
	}
	return suppliers, nil
}
