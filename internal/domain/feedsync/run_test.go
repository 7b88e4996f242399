package feedsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorsync/backend/internal/domain/vendor"
)

func TestSyncRunHappyPath(t *testing.T) {
	run := NewSyncRun("acme", vendor.AdminScope(), TriggerManual)
	assert.Equal(t, RunStateIdle, run.State)
	assert.False(t, run.InProgress())

	require.NoError(t, run.Advance(RunStateFetching))
	assert.True(t, run.InProgress())
	require.NoError(t, run.Advance(RunStateDiffing))
	require.NoError(t, run.Advance(RunStateReconciling))
	require.NoError(t, run.Advance(RunStateCommitting))

	stats := SyncStats{Added: 3, Updated: 1, Removed: 2}
	require.NoError(t, run.Complete(stats))
	assert.Equal(t, RunStateSuccess, run.State)
	assert.Equal(t, stats, run.Stats)
	assert.NotNil(t, run.CompletedAt)
	assert.False(t, run.InProgress())
}

func TestSyncRunIllegalTransitions(t *testing.T) {
	run := NewSyncRun("acme", vendor.AdminScope(), TriggerManual)

	err := run.Advance(RunStateReconciling)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, RunStateIdle, run.State)

	err = run.Complete(SyncStats{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, run.Advance(RunStateFetching))
	err = run.Skip()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSyncRunSkip(t *testing.T) {
	run := NewSyncRun("acme", vendor.AdminScope(), TriggerScheduled)
	require.NoError(t, run.Advance(RunStateFetching))
	require.NoError(t, run.Advance(RunStateDiffing))

	require.NoError(t, run.Skip())
	assert.Equal(t, RunStateSkipped, run.State)
	assert.NotNil(t, run.CompletedAt)
}

func TestSyncRunFailFromAnyState(t *testing.T) {
	run := NewSyncRun("acme", vendor.AdminScope(), TriggerManual)
	require.NoError(t, run.Advance(RunStateFetching))

	run.Fail("vendor endpoint unreachable")
	assert.Equal(t, RunStateFailed, run.State)
	assert.Equal(t, "vendor endpoint unreachable", run.ErrorMessage)
	assert.NotNil(t, run.CompletedAt)
}

func TestSyncRunAge(t *testing.T) {
	run := NewSyncRun("acme", vendor.AdminScope(), TriggerManual)
	run.StartedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	now := run.StartedAt.Add(7 * time.Minute)
	assert.Equal(t, 7*time.Minute, run.Age(now))
}

func TestRunStateTerminal(t *testing.T) {
	assert.True(t, RunStateSuccess.IsTerminal())
	assert.True(t, RunStateSkipped.IsTerminal())
	assert.True(t, RunStateFailed.IsTerminal())
	assert.False(t, RunStateIdle.IsTerminal())
	assert.False(t, RunStateCommitting.IsTerminal())
}

func TestCanTransitionFromTerminal(t *testing.T) {
	for _, from := range []RunState{RunStateSuccess, RunStateSkipped, RunStateFailed} {
		for _, to := range []RunState{RunStateIdle, RunStateFetching, RunStateSuccess} {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}
