package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/skarsvik/beautycrawl/internal/config"
	"github.com/skarsvik/beautycrawl/internal/types"
)

// HTTPClient implements Client using net/http with bounded retry and
// exponential backoff.
type HTTPClient struct {
	client  *http.Client
	cfg     *config.Fetcher
	limiter *HostLimiter
	logger  *slog.Logger
}

// NewHTTPClient creates a new HTTP fetch client. The limiter may be nil,
// in which case no per-host rate limiting is applied.
func NewHTTPClient(cfg *config.Config, limiter *HostLimiter, logger *slog.Logger) *HTTPClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // We handle decompression ourselves (including brotli)
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.Fetcher.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.Fetcher.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.Fetcher.MaxRedirects)
		}
		return nil
	}

	return &HTTPClient{
		client: &http.Client{
			Transport:     transport,
			Timeout:       cfg.Fetcher.RequestTimeout,
			CheckRedirect: redirectPolicy,
		},
		cfg:     &cfg.Fetcher,
		limiter: limiter,
		logger:  logger.With("component", "fetcher"),
	}
}

// Get fetches a URL. Every failure (network error or non-2xx status) is
// retried with exponential backoff for up to MaxAttempts total attempts.
func (c *HTTPClient) Get(ctx context.Context, rawURL string) (*types.Page, error) {
	var lastErr error
	var lastStatus int

	attempts := c.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	made := 0

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			c.logger.Debug("retrying fetch", "url", rawURL, "attempt", attempt+1, "wait", wait)
			select {
			case <-ctx.Done():
				return nil, &types.FetchError{URL: rawURL, Attempts: attempt, Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, rawURL); err != nil {
				return nil, &types.FetchError{URL: rawURL, Attempts: attempt, Err: err}
			}
		}

		page, status, err := c.fetchOnce(ctx, rawURL)
		made = attempt + 1
		if err == nil {
			return page, nil
		}
		lastErr = err
		lastStatus = status

		// Context cancellation is terminal, not retryable.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}

	return nil, &types.FetchError{
		URL:        rawURL,
		StatusCode: lastStatus,
		Attempts:   made,
		Err:        lastErr,
	}
}

// fetchOnce performs a single GET. The returned status is 0 for
// transport-level failures.
func (c *HTTPClient) fetchOnce(ctx context.Context, rawURL string) (*types.Page, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "sv-SE,sv;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little for the error message, then discard.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(snippet))
	}

	var reader io.Reader = resp.Body
	if c.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, c.cfg.MaxBodySize)
	}

	reader, err = decompressReader(resp, reader)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	duration := time.Since(start)
	page := &types.Page{
		URL:           rawURL,
		FinalURL:      resp.Request.URL.String(),
		StatusCode:    resp.StatusCode,
		Body:          body,
		FetchedAt:     time.Now(),
		FetchDuration: duration,
	}

	c.logger.Debug("fetch complete",
		"url", rawURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", duration,
	)

	return page, resp.StatusCode, nil
}

// backoff computes the wait before the given attempt: base * 2^attempt,
// floored at BackoffMin and capped at BackoffMax.
func (c *HTTPClient) backoff(attempt int) time.Duration {
	wait := c.cfg.BackoffBase * (1 << attempt)
	if wait < c.cfg.BackoffMin {
		wait = c.cfg.BackoffMin
	}
	if wait > c.cfg.BackoffMax {
		wait = c.cfg.BackoffMax
	}
	return wait
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
