package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

// Credential field names the drop-directory fetcher consumes
const (
	FieldDropDir     = "drop_dir"
	FieldFilePattern = "file_pattern"
)

// DropDirFetcher reads the newest feed file from a vendor drop directory
// (an FTP landing zone mounted into the filesystem). The drop host owns
// file rotation; this fetcher only ever reads.
type DropDirFetcher struct{}

// NewDropDirFetcher creates a drop-directory feed fetcher
func NewDropDirFetcher() *DropDirFetcher {
	return &DropDirFetcher{}
}

var _ feedsync.FeedFetcher = (*DropDirFetcher)(nil)

// Fetch reads the most recently modified file matching the bag's
// file_pattern (default *.csv) under drop_dir.
func (f *DropDirFetcher) Fetch(ctx context.Context, bag *vendor.CredentialBag) (*feedsync.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, ok := bag.Get(FieldDropDir)
	if !ok || dir == "" {
		return nil, fmt.Errorf("%w: vendor %s has no %s field", vendor.ErrNotConfigured, bag.VendorCode, FieldDropDir)
	}
	pattern := bag.GetOrDefault(FieldFilePattern, "*.csv")

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: bad file pattern %q", feedsync.ErrConnection, pattern)
	}

	var newest string
	var newestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = m
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("%w: drop dir %s: %v", feedsync.ErrConnection, dir, err)
		}
		return nil, fmt.Errorf("%w: no file matching %q in %s", feedsync.ErrFeedNotFound, pattern, dir)
	}

	body, err := os.ReadFile(newest)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", feedsync.ErrConnection, newest, err)
	}

	return &feedsync.FetchResult{
		Body:      body,
		SourceID:  filepath.Base(newest),
		FetchedAt: time.Now().UTC(),
	}, nil
}
