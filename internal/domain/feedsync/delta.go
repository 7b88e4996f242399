package feedsync

// Row is one data row of a parsed feed. Text is the raw line exactly as it
// appeared in the feed; equality between snapshots is textual, never
// semantic, to avoid false negatives from float or format drift. Fields is
// the header-mapped view used by the reconciler; Key is the stable row key
// when the vendor schema declares one, otherwise the raw line itself.
type Row struct {
	Key    string
	Text   string
	Fields map[string]string
}

// RowChange pairs the old and new version of a keyed row whose content
// changed between snapshots.
type RowChange struct {
	Old Row
	New Row
}

// Delta is the minimal difference between the stored snapshot and a newly
// fetched feed. It is a transient value: consumed once per sync attempt and
// never persisted.
type Delta struct {
	Added    []Row
	Removed  []Row
	Modified []RowChange
}

// IsEmpty returns true when the delta carries no changes
func (d *Delta) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// Size returns the total number of changed rows
func (d *Delta) Size() int {
	return len(d.Added) + len(d.Removed) + len(d.Modified)
}

// DetectionStats describes one change-detection pass
type DetectionStats struct {
	Fingerprint   string `json:"fingerprint"`
	FeedRows      int    `json:"feed_rows"`
	AddedCount    int    `json:"added_count"`
	RemovedCount  int    `json:"removed_count"`
	ModifiedCount int    `json:"modified_count"`
	FirstSync     bool   `json:"first_sync"`
}
