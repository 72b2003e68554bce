package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for beautycrawl.
type Config struct {
	Fetcher Fetcher `mapstructure:"fetcher" yaml:"fetcher"`
	Crawl   Crawl   `mapstructure:"crawl"   yaml:"crawl"`
	Catalog Catalog `mapstructure:"catalog" yaml:"catalog"`
	Storage Storage `mapstructure:"storage" yaml:"storage"`
	API     API     `mapstructure:"api"     yaml:"api"`
	Logging Logging `mapstructure:"logging" yaml:"logging"`
	Metrics Metrics `mapstructure:"metrics" yaml:"metrics"`
}

// Fetcher controls the HTTP client and its retry policy.
type Fetcher struct {
	UserAgent       string        `mapstructure:"user_agent"       yaml:"user_agent"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"     yaml:"max_attempts"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"     yaml:"backoff_base"`
	BackoffMin      time.Duration `mapstructure:"backoff_min"      yaml:"backoff_min"`
	BackoffMax      time.Duration `mapstructure:"backoff_max"      yaml:"backoff_max"`
	MaxBodySize     int64         `mapstructure:"max_body_size"    yaml:"max_body_size"`
	FollowRedirects bool          `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"    yaml:"max_redirects"`
}

// Crawl controls run-wide concurrency and politeness.
type Crawl struct {
	Concurrency    int           `mapstructure:"concurrency"          yaml:"concurrency"`
	HostRatePerMin int           `mapstructure:"host_rate_per_minute" yaml:"host_rate_per_minute"`
	PageLimit      int           `mapstructure:"page_limit"           yaml:"page_limit"`
	RunTimeout     time.Duration `mapstructure:"run_timeout"          yaml:"run_timeout"`
	TargetDomains  []string      `mapstructure:"target_domains"       yaml:"target_domains"`
}

// Catalog controls brand-catalog discovery for retailers without
// complete sitemaps.
type Catalog struct {
	BaseURL          string `mapstructure:"base_url"            yaml:"base_url"`
	BrandIndexPath   string `mapstructure:"brand_index_path"    yaml:"brand_index_path"`
	PageParam        string `mapstructure:"page_param"          yaml:"page_param"`
	MaxBrands        int    `mapstructure:"max_brands"          yaml:"max_brands"`
	MaxPagesPerBrand int    `mapstructure:"max_pages_per_brand" yaml:"max_pages_per_brand"`
	VerifyBrands     bool   `mapstructure:"verify_brands"       yaml:"verify_brands"`
}

// Storage controls the product store backend.
type Storage struct {
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// API controls the HTTP serving layer.
type API struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// Logging controls logging behavior.
type Logging struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Fetcher: Fetcher{
			UserAgent:       "beautycrawl/" + Version + " (+https://github.com/skarsvik/beautycrawl; contact: ops@skarsvik.dev)",
			RequestTimeout:  20 * time.Second,
			MaxAttempts:     3,
			BackoffBase:     500 * time.Millisecond,
			BackoffMin:      1 * time.Second,
			BackoffMax:      8 * time.Second,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			FollowRedirects: true,
			MaxRedirects:    10,
		},
		Crawl: Crawl{
			Concurrency:    4,
			HostRatePerMin: 30,
			PageLimit:      50,
			RunTimeout:     15 * time.Minute,
			TargetDomains: []string{
				"lyko.com",
				"kicks.se",
				"apotea.se",
				"bangerhead.se",
				"skincity.com",
				"lookfantastic.com",
				"sephora.com",
				"ulta.com",
				"cultbeauty.co.uk",
				"boots.com",
			},
		},
		Catalog: Catalog{
			BaseURL:          "https://www.kicks.se",
			BrandIndexPath:   "/varumarken",
			PageParam:        "page",
			MaxBrands:        50,
			MaxPagesPerBrand: 3,
			VerifyBrands:     true,
		},
		Storage: Storage{
			URI:        "mongodb://localhost:27017",
			Database:   "beautycrawl",
			Collection: "products",
		},
		API: API{
			Port: 8080,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Metrics: Metrics{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
