package fetcher

import (
	"context"

	"github.com/skarsvik/beautycrawl/internal/types"
)

// Client is the interface every crawling component fetches through.
type Client interface {
	// Get retrieves the page at the given URL, retrying per the
	// configured policy. After retries are exhausted it fails with
	// *types.FetchError carrying the last error.
	Get(ctx context.Context, rawURL string) (*types.Page, error)

	// Close releases any resources held by the client.
	Close() error
}
