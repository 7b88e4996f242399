package feedsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vendorsync/backend/internal/domain/vendor"
)

// RunState is the state of one sync run
type RunState string

const (
	RunStateIdle        RunState = "IDLE"
	RunStateFetching    RunState = "FETCHING"
	RunStateDiffing     RunState = "DIFFING"
	RunStateReconciling RunState = "RECONCILING"
	RunStateCommitting  RunState = "COMMITTING"
	RunStateSuccess     RunState = "SUCCESS"
	RunStateSkipped     RunState = "SKIPPED"
	RunStateFailed      RunState = "FAILED"
)

// IsValid returns true if the state is a known run state
func (s RunState) IsValid() bool {
	switch s {
	case RunStateIdle, RunStateFetching, RunStateDiffing, RunStateReconciling,
		RunStateCommitting, RunStateSuccess, RunStateSkipped, RunStateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for states that end a run
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateSuccess, RunStateSkipped, RunStateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the run state
func (s RunState) String() string {
	return string(s)
}

// runTransitions lists the legal state transitions. fetching, diffing and
// reconciling may each fail; idle short-circuits to skipped when the
// detector reports no change.
var runTransitions = map[RunState][]RunState{
	RunStateIdle:        {RunStateFetching, RunStateSkipped},
	RunStateFetching:    {RunStateDiffing, RunStateFailed},
	RunStateDiffing:     {RunStateReconciling, RunStateSkipped, RunStateFailed},
	RunStateReconciling: {RunStateCommitting, RunStateFailed},
	RunStateCommitting:  {RunStateSuccess, RunStateFailed},
}

// CanTransition reports whether from -> to is a legal transition
func CanTransition(from, to RunState) bool {
	for _, next := range runTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TriggerSource distinguishes how a run was started
type TriggerSource string

const (
	TriggerManual    TriggerSource = "MANUAL"
	TriggerScheduled TriggerSource = "SCHEDULED"
)

// IsValid returns true if the trigger source is valid
func (t TriggerSource) IsValid() bool {
	return t == TriggerManual || t == TriggerScheduled
}

// SyncStats counts the outcome of one reconciliation
type SyncStats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Processed returns the number of delta rows the reconciliation touched
func (s SyncStats) Processed() int {
	return s.Added + s.Updated + s.Removed + s.Skipped + s.Failed
}

// SyncRun records one orchestration attempt for a (vendor, scope) pair.
// Each completed run supersedes the previous one for the pair in status
// queries; history is kept for observability.
type SyncRun struct {
	ID           uuid.UUID
	VendorCode   vendor.Code
	Scope        vendor.Scope
	Trigger      TriggerSource
	State        RunState
	Stats        SyncStats
	ErrorMessage string
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// NewSyncRun creates a run in the idle state
func NewSyncRun(code vendor.Code, scope vendor.Scope, trigger TriggerSource) *SyncRun {
	return &SyncRun{
		ID:         uuid.New(),
		VendorCode: code,
		Scope:      scope,
		Trigger:    trigger,
		State:      RunStateIdle,
		StartedAt:  time.Now().UTC(),
	}
}

// Advance moves the run to the next in-progress state
func (r *SyncRun) Advance(next RunState) error {
	if !CanTransition(r.State, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, next)
	}
	r.State = next
	return nil
}

// Complete marks the run successful with its final counts
func (r *SyncRun) Complete(stats SyncStats) error {
	if err := r.Advance(RunStateSuccess); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.Stats = stats
	r.CompletedAt = &now
	return nil
}

// Skip ends the run because the feed was unchanged
func (r *SyncRun) Skip() error {
	if r.State != RunStateIdle && r.State != RunStateDiffing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, RunStateSkipped)
	}
	now := time.Now().UTC()
	r.State = RunStateSkipped
	r.CompletedAt = &now
	return nil
}

// Fail ends the run with a human-readable cause. The cause is the only
// error detail surfaced to callers; stack traces stay server-side.
func (r *SyncRun) Fail(cause string) {
	now := time.Now().UTC()
	r.State = RunStateFailed
	r.ErrorMessage = cause
	r.CompletedAt = &now
}

// InProgress returns true while the run is neither terminal nor idle
func (r *SyncRun) InProgress() bool {
	return !r.State.IsTerminal() && r.State != RunStateIdle
}

// Age returns how long the run has been going
func (r *SyncRun) Age(now time.Time) time.Duration {
	return now.Sub(r.StartedAt)
}

// RunFilter narrows SyncRun listings
type RunFilter struct {
	VendorCode *vendor.Code
	Scope      *vendor.Scope
	State      *RunState
	Limit      int
}

// SyncRunRepository persists completed and in-flight sync runs
type SyncRunRepository interface {
	Save(ctx context.Context, run *SyncRun) error
	FindLatest(ctx context.Context, code vendor.Code, scope vendor.Scope) (*SyncRun, error)
	FindRecent(ctx context.Context, filter RunFilter) ([]SyncRun, error)
}
