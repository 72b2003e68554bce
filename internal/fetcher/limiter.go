package fetcher

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces a requests-per-host-per-minute ceiling across the
// whole run. Workers targeting an exhausted host block in Wait without
// stalling workers on other hosts.
type HostLimiter struct {
	perMinute int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter allowing perMinute requests per host.
// A perMinute of 0 disables limiting.
func NewHostLimiter(perMinute int) *HostLimiter {
	return &HostLimiter{
		perMinute: perMinute,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the host of rawURL has a token available, or the
// context is done.
func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil || l.perMinute <= 0 {
		return nil
	}

	host := hostOf(rawURL)
	if host == "" {
		return nil
	}

	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		interval := time.Minute / time.Duration(l.perMinute)
		limiter = rate.NewLimiter(rate.Every(interval), l.perMinute)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	return limiter.Wait(ctx)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
