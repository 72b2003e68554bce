package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoURLs       = errors.New("no URLs to scrape")
	ErrNoSitemap    = errors.New("no sitemap could be fetched for domain")
	ErrInvalidURL   = errors.New("invalid URL")
	ErrDuplicateURL = errors.New("product URL already exists")
	ErrNotFound     = errors.New("not found")
)

// FetchError wraps errors that occur during fetching, after retries
// are exhausted.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d, %d attempts): %v", e.URL, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch error for %s (%d attempts): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps malformed XML/JSON/HTML. It never crosses a component
// boundary: callers treat it as "no data from this source".
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
