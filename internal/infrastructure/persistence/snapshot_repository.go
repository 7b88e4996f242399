package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/persistence/models"
)

// GormSnapshotRepository reads feed snapshots from postgres
type GormSnapshotRepository struct {
	db *Database
}

// NewGormSnapshotRepository creates a snapshot repository
func NewGormSnapshotRepository(db *Database) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

var _ feedsync.SnapshotRepository = (*GormSnapshotRepository)(nil)

// FindByVendorAndScope returns the stored snapshot for a pair, or nil when
// the vendor has never synced into this scope.
func (r *GormSnapshotRepository) FindByVendorAndScope(ctx context.Context, code vendor.Code, scope vendor.Scope) (*feedsync.FeedSnapshot, error) {
	var model models.FeedSnapshotModel
	err := r.db.DB().WithContext(ctx).
		Where("vendor_code = ? AND scope = ?", code.String(), scope.String()).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	return model.ToDomain()
}
