package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultPassesValidation(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty user agent", func(c *Config) { c.Fetcher.UserAgent = "" }, "user_agent"},
		{"zero attempts", func(c *Config) { c.Fetcher.MaxAttempts = 0 }, "max_attempts"},
		{"backoff min above max", func(c *Config) {
			c.Fetcher.BackoffMin = 10 * time.Second
			c.Fetcher.BackoffMax = time.Second
		}, "backoff_min"},
		{"zero concurrency", func(c *Config) { c.Crawl.Concurrency = 0 }, "concurrency"},
		{"excessive concurrency", func(c *Config) { c.Crawl.Concurrency = 5000 }, "concurrency"},
		{"negative host rate", func(c *Config) { c.Crawl.HostRatePerMin = -1 }, "host_rate"},
		{"zero page limit", func(c *Config) { c.Crawl.PageLimit = 0 }, "page_limit"},
		{"bad catalog base", func(c *Config) { c.Catalog.BaseURL = "://nope" }, "base_url"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad metrics port", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = 70000
		}, "metrics.port"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://lyko.com/p/serum",
		"http://127.0.0.1:8080/p/1",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"ftp://lyko.com/file",
		"/p/serum",
		"",
	}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
		}
	}
}

func TestLoadAppliesFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beautycrawl.yaml")
	yaml := `crawl:
  concurrency: 9
  page_limit: 7
catalog:
  base_url: https://example.se
logging:
  format: json
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Crawl.Concurrency != 9 {
		t.Errorf("concurrency = %d, want 9", cfg.Crawl.Concurrency)
	}
	if cfg.Crawl.PageLimit != 7 {
		t.Errorf("page limit = %d, want 7", cfg.Crawl.PageLimit)
	}
	if cfg.Catalog.BaseURL != "https://example.se" {
		t.Errorf("catalog base = %q", cfg.Catalog.BaseURL)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("logging format = %q", cfg.Logging.Format)
	}

	// Untouched keys keep their defaults.
	if cfg.Storage.Database != "beautycrawl" {
		t.Errorf("storage database = %q", cfg.Storage.Database)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("loaded config is invalid: %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("BEAUTYCRAWL_CRAWL_CONCURRENCY", "12")
	t.Setenv("BEAUTYCRAWL_FETCHER_USER_AGENT", "envbot/1.0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crawl.Concurrency != 12 {
		t.Errorf("concurrency = %d, want 12", cfg.Crawl.Concurrency)
	}
	if cfg.Fetcher.UserAgent != "envbot/1.0" {
		t.Errorf("user agent = %q", cfg.Fetcher.UserAgent)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}
