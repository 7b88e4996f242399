package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/feedsync"
	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/config"
)

// Credential field names the HTTP fetcher consumes
const (
	FieldFeedURL  = "feed_url"
	FieldAPIKey   = "api_key"
	FieldUsername = "username"
	FieldPassword = "password"
)

// HTTPFetcher pulls a vendor feed over HTTP(S). Connection-level failures
// and 5xx responses are retried with backoff; auth and not-found responses
// are not retried and map onto the domain error taxonomy.
type HTTPFetcher struct {
	client *retryablehttp.Client
	maxLen int64
}

// NewHTTPFetcher creates an HTTP feed fetcher
func NewHTTPFetcher(cfg config.FetcherConfig, log *zap.Logger) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Warn("retrying feed fetch",
				zap.String("url", req.URL.Redacted()),
				zap.Int("attempt", attempt))
		}
	}

	return &HTTPFetcher{client: client, maxLen: cfg.MaxFeedBytes}
}

var _ feedsync.FeedFetcher = (*HTTPFetcher)(nil)

// Fetch downloads the feed named by the bag's feed_url field
func (f *HTTPFetcher) Fetch(ctx context.Context, bag *vendor.CredentialBag) (*feedsync.FetchResult, error) {
	feedURL, ok := bag.Get(FieldFeedURL)
	if !ok || feedURL == "" {
		return nil, fmt.Errorf("%w: vendor %s has no %s field", vendor.ErrNotConfigured, bag.VendorCode, FieldFeedURL)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feedsync.ErrConnection, err)
	}
	if key, ok := bag.Get(FieldAPIKey); ok && key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	} else if user, ok := bag.Get(FieldUsername); ok && user != "" {
		req.SetBasicAuth(user, bag.GetOrDefault(FieldPassword, ""))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", feedsync.ErrConnection, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", feedsync.ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: status %d", feedsync.ErrFeedNotFound, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", feedsync.ErrConnection, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxLen+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", feedsync.ErrConnection, err)
	}
	if int64(len(body)) > f.maxLen {
		return nil, fmt.Errorf("%w: feed exceeds %d bytes", feedsync.ErrMalformedFeed, f.maxLen)
	}

	sourceID := resp.Header.Get("ETag")
	if sourceID == "" {
		sourceID = feedURL
	}

	return &feedsync.FetchResult{
		Body:      body,
		SourceID:  sourceID,
		FetchedAt: time.Now().UTC(),
	}, nil
}
