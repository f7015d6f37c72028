package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the complete factcheck configuration
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Research     ResearchConfig     `yaml:"research" mapstructure:"research"`
	Adjudication AdjudicationConfig `yaml:"adjudication" mapstructure:"adjudication"`
	Tools        ToolsConfig        `yaml:"tools" mapstructure:"tools"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	RateLimiting RateLimitConfig    `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Authority    AuthorityConfig    `yaml:"authority" mapstructure:"authority"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// LLMConfig selects and tunes the language-model collaborator
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, gemini, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// TierQuotas is the per-question tool-call quota for each priority tier
type TierQuotas struct {
	High   int `yaml:"high" mapstructure:"high"`
	Medium int `yaml:"medium" mapstructure:"medium"`
	Low    int `yaml:"low" mapstructure:"low"`
}

// For returns the quota of a tier
func (q TierQuotas) For(p Priority) int {
	switch p {
	case PriorityHigh:
		return q.High
	case PriorityMedium:
		return q.Medium
	default:
		return q.Low
	}
}

// Validate enforces high > medium > low >= 1
func (q TierQuotas) Validate() error {
	if q.Low < 1 {
		return fmt.Errorf("low quota must be at least 1, got %d", q.Low)
	}
	if q.Medium <= q.Low {
		return fmt.Errorf("medium quota (%d) must exceed low quota (%d)", q.Medium, q.Low)
	}
	if q.High <= q.Medium {
		return fmt.Errorf("high quota (%d) must exceed medium quota (%d)", q.High, q.Medium)
	}
	return nil
}

// ResearchConfig controls the research scheduler
type ResearchConfig struct {
	Workers                int           `yaml:"workers" mapstructure:"workers"`
	Quotas                 TierQuotas    `yaml:"quotas" mapstructure:"quotas"`
	Budget                 int           `yaml:"budget" mapstructure:"budget"` // 0 = sum of quotas
	Deadline               time.Duration `yaml:"deadline" mapstructure:"deadline"`
	ScrapeTopN             int           `yaml:"scrape_top_n" mapstructure:"scrape_top_n"`
	ScrapeParallelism      int           `yaml:"scrape_parallelism" mapstructure:"scrape_parallelism"`
	LowConfidenceThreshold float64       `yaml:"low_confidence_threshold" mapstructure:"low_confidence_threshold"`
}

// AdjudicationConfig controls verdict production
type AdjudicationConfig struct {
	HighConfidenceThreshold float64 `yaml:"high_confidence_threshold" mapstructure:"high_confidence_threshold"`
	MaxEvidenceChars        int     `yaml:"max_evidence_chars" mapstructure:"max_evidence_chars"` // per item in the prompt
}

// ToolsConfig selects and tunes the search and scrape backends
type ToolsConfig struct {
	SearchBackend    string        `yaml:"search_backend" mapstructure:"search_backend"` // brave, searxng
	SearchURL        string        `yaml:"search_url,omitempty" mapstructure:"search_url"`
	SearchAPIKey     string        `yaml:"search_api_key,omitempty" mapstructure:"search_api_key"`
	MaxResults       int           `yaml:"max_results" mapstructure:"max_results"`
	ScrapeBackend    string        `yaml:"scrape_backend" mapstructure:"scrape_backend"` // direct, scrapedo
	ScrapeURL        string        `yaml:"scrape_url,omitempty" mapstructure:"scrape_url"`
	ScrapeToken      string        `yaml:"scrape_token,omitempty" mapstructure:"scrape_token"`
	GeoCode          string        `yaml:"geo_code" mapstructure:"geo_code"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent        string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxContentLength int           `yaml:"max_content_length" mapstructure:"max_content_length"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots    bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy        string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy       string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy          string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RetryConfig bounds retries of transient failures
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseBackoff time.Duration `yaml:"base_backoff" mapstructure:"base_backoff"`
}

// RateLimitConfig is the per-host request rate for tool backends
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig controls caching of tool results
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// AuthorityConfig drives source authority classification
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty" mapstructure:"path_patterns"`
}

// PathPattern maps a URL path regex to an authority tier
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// StoreConfig configures the run archive. An empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP endpoint
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	cacheDir := filepath.Join(os.TempDir(), "factcheck-cache")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".factcheck", "cache")
	}

	return &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   60,
			MaxTokens: 2000,
		},
		Research: ResearchConfig{
			Workers:                4,
			Quotas:                 TierQuotas{High: 6, Medium: 3, Low: 1},
			Deadline:               5 * time.Minute,
			ScrapeTopN:             7,
			ScrapeParallelism:      2,
			LowConfidenceThreshold: 0.5,
		},
		Adjudication: AdjudicationConfig{
			HighConfidenceThreshold: 0.9,
			MaxEvidenceChars:        2000,
		},
		Tools: ToolsConfig{
			SearchBackend:    "brave",
			MaxResults:       8,
			ScrapeBackend:    "direct",
			ScrapeURL:        "https://api.scrape.do",
			GeoCode:          "US",
			Timeout:          60 * time.Second,
			UserAgent:        "factcheck/0.1 (+https://github.com/ppiankov/factcheck)",
			MaxContentLength: 10000,
			MaxBodyBytes:     2_000_000,
			RespectRobots:    true,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseBackoff: 500 * time.Millisecond,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"doi.org",
				"arxiv.org",
				"nih.gov",
				"who.int",
				"europa.eu",
				"un.org",
				"sec.gov",
				"legislation.gov.uk",
			},
			SecondaryDomains: []string{
				"wikipedia.org",
				"britannica.com",
				"reuters.com",
				"apnews.com",
				"bbc.co.uk",
				"bbc.com",
				"nytimes.com",
				"theguardian.com",
			},
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// Validate checks the settings the pipeline depends on
func (c *Config) Validate() error {
	var errs []error
	if c.Research.Workers < 1 {
		errs = append(errs, fmt.Errorf("research.workers must be at least 1, got %d", c.Research.Workers))
	}
	if err := c.Research.Quotas.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("research.quotas: %w", err))
	}
	if c.Research.Budget < 0 {
		errs = append(errs, fmt.Errorf("research.budget must not be negative, got %d", c.Research.Budget))
	}
	if c.Research.Deadline < 0 {
		errs = append(errs, fmt.Errorf("research.deadline must not be negative, got %s", c.Research.Deadline))
	}
	if t := c.Research.LowConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("research.low_confidence_threshold must be in [0,1], got %v", t))
	}
	if t := c.Adjudication.HighConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("adjudication.high_confidence_threshold must be in [0,1], got %v", t))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	return errors.Join(errs...)
}
