package feedsync

import (
	"context"
	"time"

	"github.com/vendorsync/backend/internal/domain/vendor"
)

// FetchResult is the raw outcome of one feed fetch: the payload bytes, a
// transport-level content identity (ETag, file name, URL) and the fetch
// time. The core is agnostic to the transport behind it.
type FetchResult struct {
	Body      []byte
	SourceID  string
	FetchedAt time.Time
}

// FeedFetcher is the port to a vendor-specific transport (HTTP pull,
// FTP-style drop directory). Implementations classify failures into the
// ErrConnection / ErrAuth / ErrFeedNotFound taxonomy; connection errors are
// retried with bounded backoff inside the adapter.
type FeedFetcher interface {
	Fetch(ctx context.Context, bag *vendor.CredentialBag) (*FetchResult, error)
}

// FetcherRegistry selects the fetcher adapter for a vendor, keyed by a
// transport field in the vendor's credential bag rather than vendor-name
// matching in control flow.
type FetcherRegistry interface {
	GetFetcher(ctx context.Context, bag *vendor.CredentialBag) (FeedFetcher, error)
}
