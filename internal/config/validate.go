package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.UserAgent == "" {
		return fmt.Errorf("fetcher.user_agent must not be empty")
	}
	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxAttempts < 1 {
		return fmt.Errorf("fetcher.max_attempts must be >= 1, got %d", cfg.Fetcher.MaxAttempts)
	}
	if cfg.Fetcher.BackoffMin > cfg.Fetcher.BackoffMax {
		return fmt.Errorf("fetcher.backoff_min (%s) must be <= fetcher.backoff_max (%s)",
			cfg.Fetcher.BackoffMin, cfg.Fetcher.BackoffMax)
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Crawl.Concurrency < 1 {
		return fmt.Errorf("crawl.concurrency must be >= 1, got %d", cfg.Crawl.Concurrency)
	}
	if cfg.Crawl.Concurrency > 1000 {
		return fmt.Errorf("crawl.concurrency must be <= 1000, got %d", cfg.Crawl.Concurrency)
	}
	if cfg.Crawl.HostRatePerMin < 0 {
		return fmt.Errorf("crawl.host_rate_per_minute must be >= 0, got %d", cfg.Crawl.HostRatePerMin)
	}
	if cfg.Crawl.PageLimit < 1 {
		return fmt.Errorf("crawl.page_limit must be >= 1, got %d", cfg.Crawl.PageLimit)
	}

	if cfg.Catalog.BaseURL != "" {
		u, err := url.Parse(cfg.Catalog.BaseURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("catalog.base_url %q is not a valid URL", cfg.Catalog.BaseURL)
		}
	}
	if cfg.Catalog.MaxPagesPerBrand < 1 {
		return fmt.Errorf("catalog.max_pages_per_brand must be >= 1, got %d", cfg.Catalog.MaxPagesPerBrand)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a scrape target.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
