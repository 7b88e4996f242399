package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/catalog"
	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

// ReconcilerService folds one delta into the shared catalog under vendor
// priority precedence. It builds a pure change set in memory and hands it
// to the committer, so either the whole delta lands together with the new
// snapshot or nothing does.
//
// Precedence: an incoming vendor writes a record it does not own only when
// its rank is at least the current owner's rank; on equal rank the more
// recent feed wins. Unranked vendors carry rank 0.
type ReconcilerService struct {
	schemas    *vendor.SchemaRegistry
	records    catalog.RecordRepository
	offerings  catalog.OfferingRepository
	priorities vendor.PriorityCache
	committer  catalog.Committer
	log        *zap.Logger
}

// NewReconcilerService creates a reconciler
func NewReconcilerService(
	schemas *vendor.SchemaRegistry,
	records catalog.RecordRepository,
	offerings catalog.OfferingRepository,
	priorities vendor.PriorityCache,
	committer catalog.Committer,
	log *zap.Logger,
) *ReconcilerService {
	return &ReconcilerService{
		schemas:    schemas,
		records:    records,
		offerings:  offerings,
		priorities: priorities,
		committer:  committer,
		log:        log,
	}
}

var _ catalog.Reconciler = (*ReconcilerService)(nil)

// Reconcile applies a delta to the catalog and commits the new snapshot.
// onCommit, when non-nil, fires once the change set is built and the
// commit is about to start.
func (s *ReconcilerService) Reconcile(ctx context.Context, code vendor.Code, scope vendor.Scope, delta *feedsync.Delta, snapshot *feedsync.FeedSnapshot, onCommit func()) (*feedsync.SyncStats, error) {
	schema, err := s.schemas.Get(code)
	if err != nil {
		return nil, err
	}
	prio, err := s.priorities.Get(ctx, scope, schema.Category)
	if err != nil {
		return nil, err
	}

	keys := make([]catalog.RecordKey, 0, delta.Size())
	for _, r := range delta.Added {
		keys = append(keys, catalog.RecordKey{SKU: r.Key, Scope: scope})
	}
	for _, c := range delta.Modified {
		keys = append(keys, catalog.RecordKey{SKU: c.New.Key, Scope: scope})
	}
	for _, r := range delta.Removed {
		keys = append(keys, catalog.RecordKey{SKU: r.Key, Scope: scope})
	}
	existing, err := s.records.FindByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	stats := &feedsync.SyncStats{}
	changes := &catalog.ChangeSet{}
	now := time.Now().UTC()

	upsertRows := make([]feedsync.Row, 0, len(delta.Added)+len(delta.Modified))
	upsertRows = append(upsertRows, delta.Added...)
	for _, c := range delta.Modified {
		upsertRows = append(upsertRows, c.New)
	}

	for _, row := range upsertRows {
		s.applyUpsert(row, code, scope, schema, prio, existing, changes, stats, now)
	}
	for _, row := range delta.Removed {
		if err := s.applyRemoval(ctx, row, code, scope, existing, changes, stats); err != nil {
			return nil, err
		}
	}

	if onCommit != nil {
		onCommit()
	}
	if err := s.committer.Commit(ctx, changes, snapshot); err != nil {
		return nil, fmt.Errorf("commit reconciliation: %w", err)
	}

	s.log.Info("reconciliation committed",
		zap.String("vendor", code.String()),
		zap.String("scope", scope.String()),
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("removed", stats.Removed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// applyUpsert folds one added or modified row into the change set
func (s *ReconcilerService) applyUpsert(
	row feedsync.Row,
	code vendor.Code,
	scope vendor.Scope,
	schema *vendor.Schema,
	prio *vendor.PriorityList,
	existing map[catalog.RecordKey]*catalog.Record,
	changes *catalog.ChangeSet,
	stats *feedsync.SyncStats,
	now time.Time,
) {
	values, err := rowValues(row, schema)
	if err != nil {
		stats.Failed++
		s.log.Warn("unusable feed row",
			zap.String("vendor", code.String()),
			zap.String("key", row.Key),
			zap.Error(err))
		return
	}

	// the vendor offers the SKU whether or not it wins the record
	changes.OfferingUpserts = append(changes.OfferingUpserts, catalog.Offering{
		VendorCode: code,
		Scope:      scope,
		SKU:        row.Key,
		Active:     true,
		UpdatedAt:  now,
	})

	current := existing[catalog.RecordKey{SKU: row.Key, Scope: scope}]
	if current == nil {
		rec, err := catalog.NewRecord(row.Key, scope, code)
		if err != nil {
			stats.Failed++
			return
		}
		rec.Price = values.price
		rec.Quantity = values.quantity
		rec.Description = values.description
		rec.LastModifiedAt = now
		changes.RecordUpserts = append(changes.RecordUpserts, rec)
		stats.Added++
		return
	}

	if current.Sourced() && current.SourceVendor != code &&
		prio.RankOf(code) < prio.RankOf(current.SourceVendor) {
		stats.Skipped++
		return
	}

	updated := *current
	updated.Price = values.price
	updated.Quantity = values.quantity
	updated.Description = values.description
	updated.SourceVendor = code
	updated.Retired = false
	updated.LastModifiedAt = now
	changes.RecordUpserts = append(changes.RecordUpserts, &updated)
	stats.Updated++
}

// applyRemoval folds one removed row into the change set. The vendor's
// offering is always retired; the record itself only changes when the
// removing vendor is its current source. A record that lost its last
// supplier is kept unsourced in the admin catalog and retired in tenant
// price lists.
func (s *ReconcilerService) applyRemoval(
	ctx context.Context,
	row feedsync.Row,
	code vendor.Code,
	scope vendor.Scope,
	existing map[catalog.RecordKey]*catalog.Record,
	changes *catalog.ChangeSet,
	stats *feedsync.SyncStats,
) error {
	changes.OfferingRetires = append(changes.OfferingRetires, catalog.OfferingKey{
		VendorCode: code,
		Scope:      scope,
		SKU:        row.Key,
	})

	current := existing[catalog.RecordKey{SKU: row.Key, Scope: scope}]
	if current == nil || current.SourceVendor != code {
		stats.Skipped++
		return nil
	}

	suppliers, err := s.offerings.ActiveSuppliers(ctx, scope, row.Key)
	if err != nil {
		return err
	}
	othersRemain := false
	for _, sup := range suppliers {
		if sup != code {
			othersRemain = true
			break
		}
	}

	key := catalog.RecordKey{SKU: row.Key, Scope: scope}
	switch {
	case othersRemain:
		// another vendor still offers the SKU; drop ownership and let its
		// next sync claim the record
		changes.SourceClears = append(changes.SourceClears, key)
	case scope.IsAdmin():
		changes.SourceClears = append(changes.SourceClears, key)
	default:
		changes.RecordRetires = append(changes.RecordRetires, key)
	}
	stats.Removed++
	return nil
}

type recordValues struct {
	price       decimal.Decimal
	quantity    decimal.Decimal
	description string
}

// rowValues extracts catalog values from a feed row through the schema's
// column mapping. Keyless feeds carry the whole line as description.
func rowValues(row feedsync.Row, schema *vendor.Schema) (recordValues, error) {
	v := recordValues{}
	if row.Fields == nil {
		v.description = row.Text
		return v, nil
	}

	if col := strings.ToLower(schema.Columns.Price); col != "" {
		raw := strings.TrimSpace(row.Fields[col])
		if raw != "" {
			price, err := decimal.NewFromString(raw)
			if err != nil {
				return v, fmt.Errorf("bad price %q: %w", raw, err)
			}
			v.price = price
		}
	}
	if col := strings.ToLower(schema.Columns.Quantity); col != "" {
		raw := strings.TrimSpace(row.Fields[col])
		if raw != "" {
			qty, err := decimal.NewFromString(raw)
			if err != nil {
				return v, fmt.Errorf("bad quantity %q: %w", raw, err)
			}
			v.quantity = qty
		}
	}
	if col := strings.ToLower(schema.Columns.Description); col != "" {
		v.description = row.Fields[col]
	}
	return v, nil
}
