package feedsync

import (
	"context"

	"github.com/vendorsync/backend/internal/domain/vendor"
)

// Detection is the result of one change-detection pass. When Changed is
// false the delta is nil and the orchestrator short-circuits to a skipped
// run. NewSnapshot is the snapshot to commit alongside the delta; it is
// only populated when Changed is true.
type Detection struct {
	Changed     bool
	Delta       *Delta
	NewSnapshot *FeedSnapshot
	Stats       DetectionStats
}

// ChangeDetector computes the minimal delta between a newly fetched feed
// and the stored snapshot of the same (vendor, scope) pair.
//
// The fingerprint comparison is a constant-time short-circuit independent
// of feed size. On first-ever sync the whole feed is the "added" set; that
// is expected, not an error. Empty feeds fail with ErrEmptyFeed and
// unparseable feeds with ErrMalformedFeed before any diffing.
type ChangeDetector interface {
	Detect(ctx context.Context, code vendor.Code, scope vendor.Scope, raw []byte) (*Detection, error)
}
