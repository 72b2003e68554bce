package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skarsvik/beautycrawl/internal/config"
	"github.com/skarsvik/beautycrawl/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.Fetcher.MaxAttempts = 3
	cfg.Fetcher.BackoffBase = time.Millisecond
	cfg.Fetcher.BackoffMin = time.Millisecond
	cfg.Fetcher.BackoffMax = 5 * time.Millisecond
	return cfg
}

func TestGetRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	client := NewHTTPClient(fastConfig(), nil, testLogger)
	defer client.Close()

	page, err := client.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(page.Body) != "hello" {
		t.Errorf("body = %q", page.Body)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestGetExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(fastConfig(), nil, testLogger)
	defer client.Close()

	_, err := client.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected an error")
	}

	var fetchErr *types.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error type = %T, want *types.FetchError", err)
	}
	if fetchErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", fetchErr.StatusCode)
	}
	if fetchErr.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", fetchErr.Attempts)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestGetSendsIdentityHeader(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.Fetcher.UserAgent = "beautycrawl-test/1.0"
	client := NewHTTPClient(cfg, nil, testLogger)
	defer client.Close()

	if _, err := client.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotUA != "beautycrawl-test/1.0" {
		t.Errorf("user-agent = %q", gotUA)
	}
}

func TestGetDecompressesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gw := gzip.NewWriter(w)
		gw.Write([]byte("<html>compressed</html>"))
		gw.Close()
	}))
	defer srv.Close()

	client := NewHTTPClient(fastConfig(), nil, testLogger)
	defer client.Close()

	page, err := client.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(page.Body) != "<html>compressed</html>" {
		t.Errorf("body = %q", page.Body)
	}
}

func TestGetHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.Fetcher.BackoffBase = time.Second
	cfg.Fetcher.BackoffMin = time.Second
	client := NewHTTPClient(cfg, nil, testLogger)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Get(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected an error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("cancellation was not honored promptly")
	}
}

func TestGetReportsAttemptsMadeOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Cancel while the first request is in flight so the client sees
		// context.Canceled mid-attempt.
		cancel()
		time.Sleep(100 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewHTTPClient(fastConfig(), nil, testLogger)
	defer client.Close()

	_, err := client.Get(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected an error")
	}

	var fetchErr *types.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error type = %T, want *types.FetchError", err)
	}
	if fetchErr.Attempts != 1 {
		t.Errorf("attempts = %d, want the 1 attempt actually made", fetchErr.Attempts)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in the chain", err)
	}
}

func TestHostLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewHostLimiter(2)

	ctx := context.Background()
	if err := limiter.Wait(ctx, "https://x.com/a"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := limiter.Wait(ctx, "https://x.com/b"); err != nil {
		t.Fatalf("second wait: %v", err)
	}

	// Burst exhausted; a third request on the same host must block past
	// a short deadline.
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(shortCtx, "https://x.com/c"); err == nil {
		t.Fatal("expected the third wait to block")
	}

	// A different host is unaffected.
	otherCtx, cancelOther := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancelOther()
	if err := limiter.Wait(otherCtx, "https://y.com/a"); err != nil {
		t.Fatalf("other host wait: %v", err)
	}
}

func TestHostLimiterDisabled(t *testing.T) {
	limiter := NewHostLimiter(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx, "https://x.com/a"); err != nil {
			t.Fatalf("disabled limiter blocked: %v", err)
		}
	}
}
