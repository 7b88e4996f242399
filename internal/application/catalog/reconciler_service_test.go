package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/catalog"
	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

type mockRecordRepo struct{ mock.Mock }

func (m *mockRecordRepo) FindByKey(ctx context.Context, key catalog.RecordKey) (*catalog.Record, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Record), args.Error(1)
}

func (m *mockRecordRepo) FindByKeys(ctx context.Context, keys []catalog.RecordKey) (map[catalog.RecordKey]*catalog.Record, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[catalog.RecordKey]*catalog.Record), args.Error(1)
}

func (m *mockRecordRepo) CountByScope(ctx context.Context, scope vendor.Scope) (int64, error) {
	args := m.Called(ctx, scope)
	return args.Get(0).(int64), args.Error(1)
}

type mockOfferingRepo struct{ mock.Mock }

func (m *mockOfferingRepo) ActiveSuppliers(ctx context.Context, scope vendor.Scope, sku string) ([]vendor.Code, error) {
	args := m.Called(ctx, scope, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vendor.Code), args.Error(1)
}

type staticPriorityCache struct{ list *vendor.PriorityList }

func (c staticPriorityCache) Get(context.Context, vendor.Scope, string) (*vendor.PriorityList, error) {
	return c.list, nil
}
func (c staticPriorityCache) Invalidate(context.Context, vendor.Scope, string) error { return nil }
func (c staticPriorityCache) InvalidateAll(context.Context) error                    { return nil }

// capturingCommitter records the change set it was asked to commit
type capturingCommitter struct {
	changes  *catalog.ChangeSet
	snapshot *feedsync.FeedSnapshot
	calls    int
}

func (c *capturingCommitter) Commit(_ context.Context, changes *catalog.ChangeSet, snapshot *feedsync.FeedSnapshot) error {
	c.changes = changes
	c.snapshot = snapshot
	c.calls++
	return nil
}

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	return id
}

func partsSchemaRegistry(t *testing.T) *vendor.SchemaRegistry {
	t.Helper()
	reg, err := vendor.NewSchemaRegistry(
		&vendor.Schema{
			VendorCode: "acme",
			Category:   "parts",
			HasHeader:  true,
			Columns:    vendor.FeedColumns{Key: "sku", Price: "price", Quantity: "qty", Description: "desc"},
		},
		&vendor.Schema{
			VendorCode: "globex",
			Category:   "parts",
			HasHeader:  true,
			Columns:    vendor.FeedColumns{Key: "sku", Price: "price", Quantity: "qty", Description: "desc"},
		},
	)
	require.NoError(t, err)
	return reg
}

func priorities(ranks map[vendor.Code]int) staticPriorityCache {
	entries := make([]vendor.PriorityEntry, 0, len(ranks))
	for code, rank := range ranks {
		entries = append(entries, vendor.PriorityEntry{VendorCode: code, Rank: rank})
	}
	return staticPriorityCache{list: vendor.NewPriorityList(vendor.AdminScope(), "parts", entries)}
}

func feedRow(sku, price, qty, desc string) feedsync.Row {
	return feedsync.Row{
		Key:    sku,
		Text:   sku + "," + price + "," + qty + "," + desc,
		Fields: map[string]string{"sku": sku, "price": price, "qty": qty, "desc": desc},
	}
}

func ownedRecord(sku string, scope vendor.Scope, owner vendor.Code, price string) *catalog.Record {
	rec, _ := catalog.NewRecord(sku, scope, owner)
	rec.Price = decimal.RequireFromString(price)
	rec.LastModifiedAt = time.Now().Add(-time.Hour)
	return rec
}

func newReconciler(t *testing.T, records *mockRecordRepo, offerings *mockOfferingRepo, prio staticPriorityCache, committer *capturingCommitter) *ReconcilerService {
	t.Helper()
	return NewReconcilerService(partsSchemaRegistry(t), records, offerings, prio, committer, zap.NewNop())
}

func testSnapshot() *feedsync.FeedSnapshot {
	return feedsync.NewFeedSnapshot("acme", vendor.AdminScope(), "fp", "sku,price,qty,desc", []string{"A1,10,5,bolt"}, time.Now().UTC())
}

func TestReconcile_NewRecordAdded(t *testing.T) {
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.Anything).
		Return(map[catalog.RecordKey]*catalog.Record{}, nil)
	committer := &capturingCommitter{}

	svc := newReconciler(t, records, new(mockOfferingRepo), priorities(nil), committer)
	delta := &feedsync.Delta{Added: []feedsync.Row{feedRow("A1", "10.00", "5", "bolt")}}

	stats, err := svc.Reconcile(context.Background(), "acme", vendor.AdminScope(), delta, testSnapshot(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
	require.Len(t, committer.changes.RecordUpserts, 1)
	rec := committer.changes.RecordUpserts[0]
	assert.Equal(t, "A1", rec.SKU)
	assert.Equal(t, vendor.Code("acme"), rec.SourceVendor)
	assert.True(t, rec.Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, rec.Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "bolt", rec.Description)
	require.Len(t, committer.changes.OfferingUpserts, 1)
	assert.Equal(t, 1, committer.calls)
	assert.NotNil(t, committer.snapshot)
}

func TestReconcile_HigherPriorityOverwrites(t *testing.T) {
	scope := vendor.AdminScope()
	existing := ownedRecord("A1", scope, "globex", "9.00")
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.Anything).
		Return(map[catalog.RecordKey]*catalog.Record{existing.Key(): existing}, nil)
	committer := &capturingCommitter{}

	// acme outranks globex
	svc := newReconciler(t, records, new(mockOfferingRepo), priorities(map[vendor.Code]int{"acme": 2, "globex": 1}), committer)
	delta := &feedsync.Delta{Modified: []feedsync.RowChange{{New: feedRow("A1", "10.00", "5", "bolt")}}}

	stats, err := svc.Reconcile(context.Background(), "acme", scope, delta, testSnapshot(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	require.Len(t, committer.changes.RecordUpserts, 1)
	assert.Equal(t, vendor.Code("acme"), committer.changes.RecordUpserts[0].SourceVendor)
	assert.True(t, committer.changes.RecordUpserts[0].Price.Equal(decimal.RequireFromString("10.00")))
}

func TestReconcile_LowerPrioritySkipsButStillOffers(t *testing.T) {
	scope := vendor.AdminScope()
	existing := ownedRecord("A1", scope, "acme", "10.00")
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.Anything).
		Return(map[catalog.RecordKey]*catalog.Record{existing.Key(): existing}, nil)
	committer := &capturingCommitter{}

	// globex is outranked by the current owner
	svc := newReconciler(t, records, new(mockOfferingRepo), priorities(map[vendor.Code]int{"acme": 2, "globex": 1}), committer)
	delta := &feedsync.Delta{Added: []feedsync.Row{feedRow("A1", "8.00", "3", "cheap bolt")}}

	stats, err := svc.Reconcile(context.Background(), "globex", scope, delta, testSnapshot(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, committer.changes.RecordUpserts, "lower priority must not overwrite")
	require.Len(t, committer.changes.OfferingUpserts, 1, "the vendor still offers the SKU")
	assert.Equal(t, vendor.Code("globex"), committer.changes.OfferingUpserts[0].VendorCode)
}

func TestReconcile_EqualRankRecencyWins(t *testing.T) {
	scope := vendor.AdminScope()
	existing := ownedRecord("A1", scope, "globex", "9.00")
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.Anything).
		Return(map[catalog.RecordKey]*catalog.Record{existing.Key(): existing}, nil)
	committer := &capturingCommitter{}

	svc := newReconciler(t, records, new(mockOfferingRepo), priorities(map[vendor.Code]int{"acme": 1, "globex": 1}), committer)
	delta := &feedsync.Delta{Modified: []feedsync.RowChange{{New: feedRow("A1", "11.00", "2", "bolt")}}}

	stats, err := svc.Reconcile(context.Background(), "acme", scope, delta, testSnapshot(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated, "on equal rank the more recent feed wins")
	assert.Equal(t, vendor.Code("acme"), committer.changes.RecordUpserts[0].SourceVendor)
}

func TestReconcile_OwnerRemoval_AdminKeepsUnsourced(t *testing.T) {
	scope := vendor.AdminScope()
	existing := ownedRecord("A1", scope, "acme", "10.00")
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.Anything).
		Return(map[catalog.RecordKey]*catalog.Record{existing.Key(): existing}, nil)
	offerings := new(mockOfferingRepo)
	offerings.On("ActiveSuppliers", mock.Anything, scope, "A1").Return([]vendor.Code{"acme"}, nil)
	committer := &capturingCommitter{}

	svc := newReconciler(t, records, offerings, priorities(nil), committer)
	delta := &feedsync.Delta{Removed: []feedsync.Row{feedRow("A1", "10.00", "5", "bolt")}}

	stats, err := svc.Reconcile(context.Background(), "acme", scope, delta, testSnapshot(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	require.Len(t, committer.changes.SourceClears, 1, "admin catalog keeps the record, unsourced")
	assert.Empty(t, committer.changes.RecordRetires)
	require.Len(t, committer.changes.OfferingRetires, 1)
}

func TestReconcile_OwnerRemoval_TenantRetires(t *testing.T) {
	scope := vendor.TenantScope(newUUID(t))
	existing := ownedRecord("A1", scope, "acme", "10.00")
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.Anything).
		Return(map[catalog.RecordKey]*catalog.Record{existing.Key(): existing}, nil)
	offerings := new(mockOfferingRepo)
	offerings.On("ActiveSuppliers", mock.Anything, scope, "A1").Return([]vendor.Code{"acme"}, nil)
	committer := &capturingCommitter{}

	svc := newReconciler(t, records, offerings, priorities(nil), committer)
	delta := &feedsync.Delta{Removed: []feedsync.Row{feedRow("A1", "10.00", "5", "bolt")}}

	stats, err := svc.Reconcile(context.Background(), "acme", scope, delta, testSnapshot(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Empty(t, committer.changes.SourceClears)
	require.Len(t, committer.changes.RecordRetires, 1, "tenant price lists retire orphaned records")
}

func TestReconcile_RemovalWithRemainingSupplier(t *testing.T) {
	scope := vendor.AdminScope()
	existing := ownedRecord("A1", scope, "acme", "10.00")
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.Anything).
		Return(map[catalog.RecordKey]*catalog.Record{existing.Key(): existing}, nil)
	offerings := new(mockOfferingRepo)
	offerings.On("ActiveSuppliers", mock.Anything, scope, "A1").Return([]vendor.Code{"acme", "globex"}, nil)
	committer := &capturingCommitter{}

	svc := newReconciler(t, records, offerings, priorities(nil), committer)
	delta := &feedsync.Delta{Removed: []feedsync.Row{feedRow("A1", "10.00", "5", "bolt")}}

	stats, err := svc.Reconcile(context.Background(), "acme", scope, delta, testSnapshot(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	require.Len(t, committer.changes.SourceClears, 1, "ownership drops so the remaining supplier can claim it")
	assert.Empty(t, committer.changes.RecordRetires)
}

func TestReconcile_NonOwnerRemovalOnlyRetiresOffering(t *testing.T) {
	scope := vendor.AdminScope()
	existing := ownedRecord("A1", scope, "acme", "10.00")
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.Anything).
		Return(map[catalog.RecordKey]*catalog.Record{existing.Key(): existing}, nil)
	committer := &capturingCommitter{}

	svc := newReconciler(t, records, new(mockOfferingRepo), priorities(nil), committer)
	delta := &feedsync.Delta{Removed: []feedsync.Row{feedRow("A1", "8.00", "1", "bolt")}}

	stats, err := svc.Reconcile(context.Background(), "globex", scope, delta, testSnapshot(), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, committer.changes.OfferingRetires, 1)
	assert.Empty(t, committer.changes.SourceClears)
	assert.Empty(t, committer.changes.RecordRetires)
}

func TestReconcile_ProcessedCountMatchesDelta(t *testing.T) {
	// work is proportional to the delta: 50 changed rows means 50 rows
	// processed and 50 upserts, regardless of how large the feed was
	scope := vendor.AdminScope()
	const changed = 50
	existing := make(map[catalog.RecordKey]*catalog.Record, changed)
	delta := &feedsync.Delta{}
	for i := 0; i < changed; i++ {
		sku := fmt.Sprintf("P%05d", i)
		rec := ownedRecord(sku, scope, "acme", "1.00")
		existing[rec.Key()] = rec
		delta.Modified = append(delta.Modified, feedsync.RowChange{New: feedRow(sku, "2.00", "1", "bolt")})
	}
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.MatchedBy(func(keys []catalog.RecordKey) bool {
		return len(keys) == changed
	})).Return(existing, nil)
	committer := &capturingCommitter{}

	svc := newReconciler(t, records, new(mockOfferingRepo), priorities(nil), committer)
	stats, err := svc.Reconcile(context.Background(), "acme", scope, delta, testSnapshot(), nil)

	require.NoError(t, err)
	assert.Equal(t, changed, stats.Processed())
	assert.Equal(t, changed, stats.Updated)
	require.Len(t, committer.changes.RecordUpserts, changed)
	require.Len(t, committer.changes.OfferingUpserts, changed)
}

func TestReconcile_SignalsBeforeCommit(t *testing.T) {
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.Anything).
		Return(map[catalog.RecordKey]*catalog.Record{}, nil)
	committer := &capturingCommitter{}

	svc := newReconciler(t, records, new(mockOfferingRepo), priorities(nil), committer)
	delta := &feedsync.Delta{Added: []feedsync.Row{feedRow("A1", "10.00", "5", "bolt")}}

	commitsWhenSignalled := -1
	_, err := svc.Reconcile(context.Background(), "acme", vendor.AdminScope(), delta, testSnapshot(), func() {
		commitsWhenSignalled = committer.calls
	})

	require.NoError(t, err)
	assert.Equal(t, 0, commitsWhenSignalled, "the commit signal fires before the transaction starts")
	assert.Equal(t, 1, committer.calls)
}

func TestReconcile_BadPriceCountsAsFailed(t *testing.T) {
	records := new(mockRecordRepo)
	records.On("FindByKeys", mock.Anything, mock.Anything).
		Return(map[catalog.RecordKey]*catalog.Record{}, nil)
	committer := &capturingCommitter{}

	svc := newReconciler(t, records, new(mockOfferingRepo), priorities(nil), committer)
	delta := &feedsync.Delta{Added: []feedsync.Row{
		feedRow("A1", "not-a-price", "5", "bolt"),
		feedRow("B2", "3.50", "1", "nut"),
	}}

	stats, err := svc.Reconcile(context.Background(), "acme", vendor.AdminScope(), delta, testSnapshot(), nil)

	require.NoError(t, err, "a bad row fails the row, not the run")
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Added)
	require.Len(t, committer.changes.RecordUpserts, 1)
	assert.Equal(t, "B2", committer.changes.RecordUpserts[0].SKU)
}
