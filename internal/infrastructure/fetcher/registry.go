package fetcher

import (
	"context"
	"fmt"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
)

// FieldTransport selects the fetch transport for a vendor. It lives in the
// credential bag alongside the connection details it governs.
const FieldTransport = "transport"

// Transport values
const (
	TransportHTTP = "http"
	TransportDrop = "drop"
)

// Registry routes a vendor's credential bag to the fetcher adapter its
// transport field names. The default is HTTP.
type Registry struct {
	httpFetcher feedsync.FeedFetcher
	dropFetcher feedsync.FeedFetcher
}

// NewRegistry creates a fetcher registry over the given adapters
func NewRegistry(httpFetcher, dropFetcher feedsync.FeedFetcher) *Registry {
	return &Registry{httpFetcher: httpFetcher, dropFetcher: dropFetcher}
}

var _ feedsync.FetcherRegistry = (*Registry)(nil)

// GetFetcher returns the adapter for the bag's declared transport
func (r *Registry) GetFetcher(_ context.Context, bag *vendor.CredentialBag) (feedsync.FeedFetcher, error) {
	switch bag.GetOrDefault(FieldTransport, TransportHTTP) {
	case TransportHTTP:
		return r.httpFetcher, nil
	case TransportDrop:
		return r.dropFetcher, nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q for vendor %s",
			vendor.ErrNotConfigured, bag.GetOrDefault(FieldTransport, ""), bag.VendorCode)
	}
}
