package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendorsync/backend/internal/domain/catalog"
	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/infrastructure/persistence/models"
)

// GormCommitter applies one reconciliation change set and the snapshot
// replacement in a single database transaction. A failure anywhere rolls
// the whole run back, leaving the prior snapshot authoritative so the next
// attempt re-detects the same delta.
type GormCommitter struct {
	db *Database
}

// NewGormCommitter creates a committer
func NewGormCommitter(db *Database) *GormCommitter {
	return &GormCommitter{db: db}
}

var _ catalog.Committer = (*GormCommitter)(nil)

// Commit applies the change set and swaps the snapshot atomically
func (c *GormCommitter) Commit(ctx context.Context, changes *catalog.ChangeSet, snapshot *feedsync.FeedSnapshot) error {
	return c.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := applyRecordUpserts(tx, changes.RecordUpserts); err != nil {
			return err
		}
		if err := applyOfferingUpserts(tx, changes.OfferingUpserts); err != nil {
			return err
		}
		if err := applyOfferingRetires(tx, changes.OfferingRetires); err != nil {
			return err
		}
		if err := applySourceClears(tx, changes.SourceClears); err != nil {
			return err
		}
		if err := applyRecordRetires(tx, changes.RecordRetires); err != nil {
			return err
		}
		return replaceSnapshot(tx, snapshot)
	})
}

func applyRecordUpserts(tx *gorm.DB, records []*catalog.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]*models.CatalogRecordModel, 0, len(records))
	for _, r := range records {
		rows = append(rows, models.RecordFromDomain(r))
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}, {Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price", "quantity", "description", "source_vendor", "retired",
			"last_modified_at", "updated_at",
		}),
	}).Create(rows).Error
	if err != nil {
		return fmt.Errorf("upsert records: %w", err)
	}
	return nil
}

func applyOfferingUpserts(tx *gorm.DB, offerings []catalog.Offering) error {
	if len(offerings) == 0 {
		return nil
	}
	rows := make([]*models.VendorOfferingModel, 0, len(offerings))
	for i := range offerings {
		rows = append(rows, models.OfferingFromDomain(&offerings[i]))
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vendor_code"}, {Name: "scope"}, {Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "last_seen_at", "updated_at"}),
	}).Create(rows).Error
	if err != nil {
		return fmt.Errorf("upsert offerings: %w", err)
	}
	return nil
}

func applyOfferingRetires(tx *gorm.DB, keys []catalog.OfferingKey) error {
	for _, k := range keys {
		err := tx.Model(&models.VendorOfferingModel{}).
			Where("vendor_code = ? AND scope = ? AND sku = ?", k.VendorCode.String(), k.Scope.String(), k.SKU).
			Update("active", false).Error
		if err != nil {
			return fmt.Errorf("retire offering %s/%s: %w", k.VendorCode, k.SKU, err)
		}
	}
	return nil
}

func applySourceClears(tx *gorm.DB, keys []catalog.RecordKey) error {
	for _, k := range keys {
		err := tx.Model(&models.CatalogRecordModel{}).
			Where("sku = ? AND scope = ?", k.SKU, k.Scope.String()).
			Update("source_vendor", "").Error
		if err != nil {
			return fmt.Errorf("clear record source %s: %w", k.SKU, err)
		}
	}
	return nil
}

func applyRecordRetires(tx *gorm.DB, keys []catalog.RecordKey) error {
	for _, k := range keys {
		err := tx.Model(&models.CatalogRecordModel{}).
			Where("sku = ? AND scope = ?", k.SKU, k.Scope.String()).
			Updates(map[string]interface{}{"retired": true, "source_vendor": ""}).Error
		if err != nil {
			return fmt.Errorf("retire record %s: %w", k.SKU, err)
		}
	}
	return nil
}

func replaceSnapshot(tx *gorm.DB, snapshot *feedsync.FeedSnapshot) error {
	if snapshot == nil {
		return nil
	}
	model := models.SnapshotFromDomain(snapshot)
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "vendor_code"}, {Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"fingerprint", "header", "rows", "captured_at", "updated_at",
		}),
	}).Create(model).Error
	if err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
