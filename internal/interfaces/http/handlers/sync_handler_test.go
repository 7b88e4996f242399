package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

func TestRunView_ReportsProcessedRows(t *testing.T) {
	run := feedsync.NewSyncRun("acme", vendor.AdminScope(), feedsync.TriggerManual)
	run.Stats = feedsync.SyncStats{Added: 3, Updated: 5, Removed: 1, Skipped: 2, Failed: 1}

	view := runView(run)

	assert.Equal(t, 12, view.Processed, "processed covers every delta row the run touched")
	assert.Equal(t, "acme", view.VendorCode)
	assert.Equal(t, "MANUAL", view.Trigger)
	assert.Equal(t, run.ID.String(), view.ID)
}
