package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

// FeedSnapshotModel is the persistence model for feed snapshots.
// One row per (vendor, scope); the data rows live in a text array so the
// snapshot replace is a single-row swap.
type FeedSnapshotModel struct {
	BaseModel
	VendorCode  string         `gorm:"type:varchar(40);not null;uniqueIndex:idx_snapshot_vendor_scope,priority:1"`
	Scope       string         `gorm:"type:varchar(60);not null;uniqueIndex:idx_snapshot_vendor_scope,priority:2"`
	Fingerprint string         `gorm:"type:char(64);not null"`
	Header      string         `gorm:"type:text;not null;default:''"`
	Rows        pq.StringArray `gorm:"type:text[];not null"`
	CapturedAt  time.Time      `gorm:"not null"`
}

// TableName returns the database table name
func (FeedSnapshotModel) TableName() string { return "feed_snapshots" }

// ToDomain converts the model to a domain snapshot
func (m *FeedSnapshotModel) ToDomain() (*feedsync.FeedSnapshot, error) {
	scope, err := vendor.ParseScope(m.Scope)
	if err != nil {
		return nil, err
	}
	return &feedsync.FeedSnapshot{
		ID:          m.ID,
		VendorCode:  vendor.Code(m.VendorCode),
		Scope:       scope,
		Fingerprint: m.Fingerprint,
		Header:      m.Header,
		Rows:        []string(m.Rows),
		CapturedAt:  m.CapturedAt,
	}, nil
}

// SnapshotFromDomain converts a domain snapshot to its persistence model
func SnapshotFromDomain(s *feedsync.FeedSnapshot) *FeedSnapshotModel {
	return &FeedSnapshotModel{
		BaseModel:   BaseModel{ID: s.ID},
		VendorCode:  s.VendorCode.String(),
		Scope:       s.Scope.String(),
		Fingerprint: s.Fingerprint,
		Header:      s.Header,
		Rows:        pq.StringArray(s.Rows),
		CapturedAt:  s.CapturedAt,
	}
}

// SyncRunModel is the persistence model for sync runs
type SyncRunModel struct {
	BaseModel
	VendorCode   string     `gorm:"type:varchar(40);not null;index:idx_run_vendor_scope,priority:1"`
	Scope        string     `gorm:"type:varchar(60);not null;index:idx_run_vendor_scope,priority:2"`
	Trigger      string     `gorm:"type:varchar(16);not null"`
	State        string     `gorm:"type:varchar(16);not null"`
	Added        int        `gorm:"not null;default:0"`
	Updated      int        `gorm:"not null;default:0"`
	Removed      int        `gorm:"not null;default:0"`
	Skipped      int        `gorm:"not null;default:0"`
	Failed       int        `gorm:"not null;default:0"`
	ErrorMessage string     `gorm:"type:text;not null;default:''"`
	StartedAt    time.Time  `gorm:"not null;index"`
	CompletedAt  *time.Time `gorm:""`
}

// TableName returns the database table name
func (SyncRunModel) TableName() string { return "sync_runs" }

// ToDomain converts the model to a domain sync run
func (m *SyncRunModel) ToDomain() (*feedsync.SyncRun, error) {
	scope, err := vendor.ParseScope(m.Scope)
	if err != nil {
		return nil, err
	}
	return &feedsync.SyncRun{
		ID:         m.ID,
		VendorCode: vendor.Code(m.VendorCode),
		Scope:      scope,
		Trigger:    feedsync.TriggerSource(m.Trigger),
		State:      feedsync.RunState(m.State),
		Stats: feedsync.SyncStats{
			Added:   m.Added,
			Updated: m.Updated,
			Removed: m.Removed,
			Skipped: m.Skipped,
			Failed:  m.Failed,
		},
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}, nil
}

// RunFromDomain converts a domain sync run to its persistence model
func RunFromDomain(r *feedsync.SyncRun) *SyncRunModel {
	return &SyncRunModel{
		BaseModel:    BaseModel{ID: r.ID},
		VendorCode:   r.VendorCode.String(),
		Scope:        r.Scope.String(),
		Trigger:      string(r.Trigger),
		State:        string(r.State),
		Added:        r.Stats.Added,
		Updated:      r.Stats.Updated,
		Removed:      r.Stats.Removed,
		Skipped:      r.Stats.Skipped,
		Failed:       r.Stats.Failed,
		ErrorMessage: r.ErrorMessage,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
}
