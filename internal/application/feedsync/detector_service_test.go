package feedsync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/feedcsv"
)

type mockSnapshotRepo struct {
	mock.Mock
}

func (m *mockSnapshotRepo) FindByVendorAndScope(ctx context.Context, code vendor.Code, scope vendor.Scope) (*feedsync.FeedSnapshot, error) {
	args := m.Called(ctx, code, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feedsync.FeedSnapshot), args.Error(1)
}

func testRegistry(t *testing.T) *vendor.SchemaRegistry {
	t.Helper()
	reg, err := vendor.NewSchemaRegistry(&vendor.Schema{
		VendorCode: "acme",
		Category:   "parts",
		HasHeader:  true,
		Columns:    vendor.FeedColumns{Key: "sku", Price: "price", Quantity: "qty"},
	})
	require.NoError(t, err)
	return reg
}

func newDetector(t *testing.T, snapshots *mockSnapshotRepo) *ChangeDetectorService {
	t.Helper()
	return NewChangeDetectorService(testRegistry(t), snapshots, feedcsv.NewParser(), zap.NewNop())
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func storedSnapshot(body []byte, header string, rows []string) *feedsync.FeedSnapshot {
	return feedsync.NewFeedSnapshot("acme", vendor.AdminScope(), fingerprintOf(body), header, rows, time.Now().UTC())
}

func TestDetect_FingerprintShortCircuit(t *testing.T) {
	body := []byte("sku,price,qty\nA1,10.00,5\n")
	snapshots := new(mockSnapshotRepo)
	snapshots.On("FindByVendorAndScope", mock.Anything, vendor.Code("acme"), vendor.AdminScope()).
		Return(storedSnapshot(body, "sku,price,qty", []string{"A1,10.00,5"}), nil)

	det, err := newDetector(t, snapshots).Detect(context.Background(), "acme", vendor.AdminScope(), body)

	require.NoError(t, err)
	assert.False(t, det.Changed)
	assert.Nil(t, det.Delta)
	assert.Nil(t, det.NewSnapshot, "unchanged feed must not produce a new snapshot")
}

func TestDetect_FirstSyncIsAllAdded(t *testing.T) {
	body := []byte("sku,price,qty\nA1,10.00,5\nB2,3.50,0\n")
	snapshots := new(mockSnapshotRepo)
	snapshots.On("FindByVendorAndScope", mock.Anything, vendor.Code("acme"), vendor.AdminScope()).
		Return(nil, nil)

	det, err := newDetector(t, snapshots).Detect(context.Background(), "acme", vendor.AdminScope(), body)

	require.NoError(t, err)
	assert.True(t, det.Changed)
	assert.True(t, det.Stats.FirstSync)
	assert.Len(t, det.Delta.Added, 2)
	assert.Empty(t, det.Delta.Removed)
	assert.Empty(t, det.Delta.Modified)
	require.NotNil(t, det.NewSnapshot)
	assert.Equal(t, fingerprintOf(body), det.NewSnapshot.Fingerprint)
}

func TestDetect_MinimalDelta(t *testing.T) {
	oldBody := []byte("sku,price,qty\nA1,10.00,5\nB2,3.50,0\nC3,7.00,2\n")
	newBody := []byte("sku,price,qty\nA1,10.00,5\nB2,4.00,0\nD4,1.00,9\n")

	snapshots := new(mockSnapshotRepo)
	snapshots.On("FindByVendorAndScope", mock.Anything, vendor.Code("acme"), vendor.AdminScope()).
		Return(storedSnapshot(oldBody, "sku,price,qty", []string{"A1,10.00,5", "B2,3.50,0", "C3,7.00,2"}), nil)

	det, err := newDetector(t, snapshots).Detect(context.Background(), "acme", vendor.AdminScope(), newBody)

	require.NoError(t, err)
	assert.True(t, det.Changed)
	require.Len(t, det.Delta.Added, 1)
	assert.Equal(t, "D4", det.Delta.Added[0].Key)
	require.Len(t, det.Delta.Removed, 1)
	assert.Equal(t, "C3", det.Delta.Removed[0].Key)
	require.Len(t, det.Delta.Modified, 1)
	assert.Equal(t, "B2,3.50,0", det.Delta.Modified[0].Old.Text)
	assert.Equal(t, "B2,4.00,0", det.Delta.Modified[0].New.Text)
}

func TestDetect_DeltaSizeTracksChangedRows(t *testing.T) {
	// a large feed with a handful of edits must yield a delta the size of
	// the edits, never the size of the feed
	const totalRows = 40000
	header := "sku,price,qty"
	oldRows := make([]string, 0, totalRows)
	newRows := make([]string, 0, totalRows)
	changed := 0
	for i := 0; i < totalRows; i++ {
		sku := fmt.Sprintf("P%05d", i)
		oldRows = append(oldRows, sku+",1.00,1")
		if i%800 == 0 {
			newRows = append(newRows, sku+",2.00,1")
			changed++
		} else {
			newRows = append(newRows, sku+",1.00,1")
		}
	}
	require.Equal(t, 50, changed)
	oldBody := []byte(header + "\n" + strings.Join(oldRows, "\n") + "\n")
	newBody := []byte(header + "\n" + strings.Join(newRows, "\n") + "\n")

	snapshots := new(mockSnapshotRepo)
	snapshots.On("FindByVendorAndScope", mock.Anything, vendor.Code("acme"), vendor.AdminScope()).
		Return(storedSnapshot(oldBody, header, oldRows), nil)

	det, err := newDetector(t, snapshots).Detect(context.Background(), "acme", vendor.AdminScope(), newBody)

	require.NoError(t, err)
	assert.True(t, det.Changed)
	assert.Len(t, det.Delta.Modified, changed)
	assert.Empty(t, det.Delta.Added)
	assert.Empty(t, det.Delta.Removed)
	assert.Equal(t, changed, det.Delta.Size())
	assert.Equal(t, totalRows, det.Stats.FeedRows)
	assert.Equal(t, changed, det.Stats.ModifiedCount)
}

func TestDetect_ReorderedRowsAreNotChanges(t *testing.T) {
	oldBody := []byte("sku,price,qty\nA1,10.00,5\nB2,3.50,0\n")
	newBody := []byte("sku,price,qty\nB2,3.50,0\nA1,10.00,5\n")

	snapshots := new(mockSnapshotRepo)
	snapshots.On("FindByVendorAndScope", mock.Anything, vendor.Code("acme"), vendor.AdminScope()).
		Return(storedSnapshot(oldBody, "sku,price,qty", []string{"A1,10.00,5", "B2,3.50,0"}), nil)

	det, err := newDetector(t, snapshots).Detect(context.Background(), "acme", vendor.AdminScope(), newBody)

	require.NoError(t, err)
	assert.False(t, det.Changed, "row order is not content")
}

func TestDetect_TextualEqualityIsExact(t *testing.T) {
	// 10.00 vs 10.000 is a change even though the numeric value is equal
	oldBody := []byte("sku,price,qty\nA1,10.00,5\n")
	newBody := []byte("sku,price,qty\nA1,10.000,5\n")

	snapshots := new(mockSnapshotRepo)
	snapshots.On("FindByVendorAndScope", mock.Anything, vendor.Code("acme"), vendor.AdminScope()).
		Return(storedSnapshot(oldBody, "sku,price,qty", []string{"A1,10.00,5"}), nil)

	det, err := newDetector(t, snapshots).Detect(context.Background(), "acme", vendor.AdminScope(), newBody)

	require.NoError(t, err)
	assert.True(t, det.Changed)
	assert.Len(t, det.Delta.Modified, 1)
}

func TestDetect_EmptyFeedRejected(t *testing.T) {
	snapshots := new(mockSnapshotRepo)
	snapshots.On("FindByVendorAndScope", mock.Anything, vendor.Code("acme"), vendor.AdminScope()).
		Return(storedSnapshot([]byte("x"), "sku,price,qty", []string{"A1,10.00,5"}), nil)

	_, err := newDetector(t, snapshots).Detect(context.Background(), "acme", vendor.AdminScope(), []byte(""))

	assert.ErrorIs(t, err, feedsync.ErrEmptyFeed, "an empty feed must never become all-rows-removed")
}

func TestDetect_UnknownVendor(t *testing.T) {
	snapshots := new(mockSnapshotRepo)
	_, err := newDetector(t, snapshots).Detect(context.Background(), "ghost", vendor.AdminScope(), []byte("x"))
	assert.ErrorIs(t, err, vendor.ErrSchemaNotFound)
}
