package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncRunRepository persists sync runs in postgres
type GormSyncRunRepository struct {
	db *Database
}

// NewGormSyncRunRepository creates a sync run repository
func NewGormSyncRunRepository(db *Database) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

var _ feedsync.SyncRunRepository = (*GormSyncRunRepository)(nil)

// Save upserts a run by id; the orchestrator saves the same run once per
// state transition.
func (r *GormSyncRunRepository) Save(ctx context.Context, run *feedsync.SyncRun) error {
	model := models.RunFromDomain(run)
	err := r.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"state", "added", "updated", "removed", "skipped", "failed",
				"error_message", "completed_at", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("save sync run: %w", err)
	}
	return nil
}

// FindLatest returns the most recently started run for a pair, or nil when
// the pair has never run.
func (r *GormSyncRunRepository) FindLatest(ctx context.Context, code vendor.Code, scope vendor.Scope) (*feedsync.SyncRun, error) {
	var model models.SyncRunModel
	err := r.db.DB().WithContext(ctx).
		Where("vendor_code = ? AND scope = ?", code.String(), scope.String()).
		Order("started_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find latest run: %w", err)
	}
	return model.ToDomain()
}

// FindRecent returns runs matching the filter, newest first
func (r *GormSyncRunRepository) FindRecent(ctx context.Context, filter feedsync.RunFilter) ([]feedsync.SyncRun, error) {
	q := r.db.DB().WithContext(ctx).Model(&models.SyncRunModel{})
	if filter.VendorCode != nil {
		q = q.Where("vendor_code = ?", filter.VendorCode.String())
	}
	if filter.Scope != nil {
		q = q.Where("scope = ?", filter.Scope.String())
	}
	if filter.State != nil {
		q = q.Where("state = ?", filter.State.String())
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var rows []models.SyncRunModel
	if err := q.Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find recent runs: %w", err)
	}

	runs := make([]feedsync.SyncRun, 0, len(rows))
	for i := range rows {
		run, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}
