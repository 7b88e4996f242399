package catalog

import (
	"context"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

// ChangeSet is the full write set of one reconciliation: record upserts,
// offering upserts and retirements, and source clears for records that
// lost their last supplier. The committer applies the whole set plus the
// new snapshot in one transaction; partial application is the primary
// corruption class this type exists to prevent.
type ChangeSet struct {
	RecordUpserts   []*Record
	OfferingUpserts []Offering
	OfferingRetires []OfferingKey
	SourceClears    []RecordKey
	RecordRetires   []RecordKey
}

// IsEmpty returns true when the set carries no writes
func (c *ChangeSet) IsEmpty() bool {
	return len(c.RecordUpserts) == 0 && len(c.OfferingUpserts) == 0 &&
		len(c.OfferingRetires) == 0 && len(c.SourceClears) == 0 && len(c.RecordRetires) == 0
}

// Committer applies a change set and the snapshot replacement atomically:
// either everything commits and the new snapshot becomes authoritative, or
// nothing does and the prior snapshot stays in place.
type Committer interface {
	Commit(ctx context.Context, changes *ChangeSet, snapshot *feedsync.FeedSnapshot) error
}

// Reconciler applies a delta (only the delta, never the full feed) to the
// catalog, consulting vendor priorities before every write, then commits
// the new snapshot in the same transaction. onCommit fires after the change
// set is built and before the transaction starts, so callers can record the
// phase boundary; it may be nil.
type Reconciler interface {
	Reconcile(ctx context.Context, code vendor.Code, scope vendor.Scope, delta *feedsync.Delta, snapshot *feedsync.FeedSnapshot, onCommit func()) (*feedsync.SyncStats, error)
}
