package model

import (
	"fmt"
	"time"
)

// Config holds all zettelgen configuration
type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	Extraction   ExtractionConfig   `yaml:"extraction"`
	Output       OutputConfig       `yaml:"output"`
	Cache        CacheConfig        `yaml:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
}

// LLMConfig selects and configures the generation backend
type LLMConfig struct {
	Provider string `yaml:"provider"`           // openai, anthropic, google
	Model    string `yaml:"model,omitempty"`    // Empty means the backend default
	APIKey   string `yaml:"-"`                  // Resolved from the environment, never written out
	BaseURL  string `yaml:"base_url,omitempty"` // Custom endpoint (proxies, gateways, tests)
	Timeout  int    `yaml:"timeout"`            // Per-request timeout in seconds

	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// ExtractionConfig controls the retry loop around the backend
type ExtractionConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	BackoffUnit time.Duration `yaml:"backoff_unit"`
}

// OutputConfig controls note rendering
type OutputConfig struct {
	Dir          string   `yaml:"dir"`
	TemplatePath string   `yaml:"template,omitempty"`
	BookTitle    string   `yaml:"book_title"`
	Author       string   `yaml:"author"`
	DefaultTags  []string `yaml:"default_tags"`
	CreateIndex  bool     `yaml:"create_index"`
	CreateMOC    bool     `yaml:"create_moc"`
	Verbose      bool     `yaml:"verbose"`
}

// CacheConfig controls caching of validated batches
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// RateLimitingConfig throttles backend requests per provider.
// Overrides are keyed by backend name (aliases allowed).
type RateLimitingConfig struct {
	RequestsPerSecond float64                 `yaml:"requests_per_second"`
	BurstSize         int                     `yaml:"burst_size"`
	Overrides         map[string]RateOverride `yaml:"overrides,omitempty"`
}

// RateOverride replaces the default rate for one backend
type RateOverride struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Timeout:  120,
		},
		Extraction: ExtractionConfig{
			MaxRetries:  3,
			BackoffUnit: time.Second,
		},
		Output: OutputConfig{
			Dir:         "notes",
			BookTitle:   "A Random Walk Down Wall Street",
			Author:      "Burton G. Malkiel",
			DefaultTags: []string{"finance", "investing"},
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".zettelgen-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 2,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
	}
}

// Validate rejects settings the extraction loop cannot run with
func (c *Config) Validate() error {
	if c.Extraction.MaxRetries < 1 {
		return fmt.Errorf("invalid config: extraction.max_retries must be at least 1, got %d", c.Extraction.MaxRetries)
	}
	if c.Extraction.BackoffUnit < 0 {
		return fmt.Errorf("invalid config: extraction.backoff_unit must not be negative, got %s", c.Extraction.BackoffUnit)
	}
	return nil
}
