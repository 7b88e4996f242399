package feedsync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vendorsync/backend/internal/domain/vendor"
)

// FeedSnapshot is the last accepted feed of one (vendor, scope) pair: the
// content fingerprint, the preserved header row and the ordered raw data
// rows. It is owned by the change detector and replaced atomically only
// after a reconciliation commits.
type FeedSnapshot struct {
	ID          uuid.UUID
	VendorCode  vendor.Code
	Scope       vendor.Scope
	Fingerprint string
	Header      string
	Rows        []string
	CapturedAt  time.Time
}

// NewFeedSnapshot creates a snapshot for a freshly accepted feed
func NewFeedSnapshot(code vendor.Code, scope vendor.Scope, fingerprint, header string, rows []string, capturedAt time.Time) *FeedSnapshot {
	return &FeedSnapshot{
		ID:          uuid.New(),
		VendorCode:  code,
		Scope:       scope,
		Fingerprint: fingerprint,
		Header:      header,
		Rows:        rows,
		CapturedAt:  capturedAt,
	}
}

// SnapshotRepository persists feed snapshots. Replace is only ever called
// from inside the reconciliation transaction so a failed run leaves the
// prior snapshot authoritative.
type SnapshotRepository interface {
	FindByVendorAndScope(ctx context.Context, code vendor.Code, scope vendor.Scope) (*FeedSnapshot, error)
}
