package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete runtime configuration. It is built once (defaults,
// config file, env, flags) and passed by value into constructors so tests
// can vary any setting per case.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" json:"http"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" json:"retrieval"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Originality OriginalityConfig `yaml:"originality" json:"originality"`
	Rewrite     RewriteConfig     `yaml:"rewrite" json:"rewrite"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Sources     SourcesConfig     `yaml:"sources" json:"sources"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// HTTPConfig controls the document fetcher's HTTP behavior
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	InsecureTLS   bool          `yaml:"insecure_tls" json:"insecure_tls"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" json:"http_proxy,omitempty"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" json:"https_proxy,omitempty"`
	NoProxy       string        `yaml:"no_proxy,omitempty" json:"no_proxy,omitempty"`
	RespectRobots bool          `yaml:"respect_robots" json:"respect_robots"`
	RatePerHost   float64       `yaml:"rate_per_host" json:"rate_per_host"` // Requests per second per host
	RateBurst     int           `yaml:"rate_burst" json:"rate_burst"`
}

// RetrievalConfig bounds what is kept from each retrieved document
type RetrievalConfig struct {
	MaxContentLength int `yaml:"max_content_length" json:"max_content_length"` // Chars kept per document
	MaxResults       int `yaml:"max_results" json:"max_results"`               // Documents per sub-question
}

// LLMConfig configures the language-model provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" json:"provider"` // "openai", "anthropic", "ollama", "" (disabled)
	Model       string  `yaml:"model" json:"model"`
	APIKey      string  `yaml:"-" json:"-"` // Never serialized; from environment
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout     int     `yaml:"timeout" json:"timeout"` // Seconds
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// OriginalityConfig configures the originality scorer.
// Two flagging granularities exist upstream of this design: a single
// whole-text flag at threshold 0.85, and per-paragraph flags at the
// configured threshold (default 0.8). Both are kept as explicit policies.
type OriginalityConfig struct {
	Threshold          float64 `yaml:"threshold" json:"threshold"`                       // Per-paragraph policy threshold
	WholeTextThreshold float64 `yaml:"whole_text_threshold" json:"whole_text_threshold"` // Whole-text policy threshold
	Policy             string  `yaml:"policy" json:"policy"`                             // "whole-text" or "per-paragraph"
	MaxRefLength       int     `yaml:"max_ref_length" json:"max_ref_length"`             // Chars used per reference document
	VocabCap           int     `yaml:"vocab_cap" json:"vocab_cap"`                       // Vocabulary size limit for vectorization
	LeadSpanLength     int     `yaml:"lead_span_length" json:"lead_span_length"`         // Flagged prefix length, whole-text policy
	MinSegmentLength   int     `yaml:"min_segment_length" json:"min_segment_length"`     // Paragraphs shorter than this are not flagged
	SegmentSpanLength  int     `yaml:"segment_span_length" json:"segment_span_length"`   // Flagged span cap, per-paragraph policy
	Detector           string  `yaml:"detector" json:"detector"`                         // "local" or "remote"
	RemoteURL          string  `yaml:"remote_url,omitempty" json:"remote_url,omitempty"`
	RemoteAPIKey       string  `yaml:"-" json:"-"`
}

// RewriteConfig configures the targeted rewriter
type RewriteConfig struct {
	MinSpanLength        int           `yaml:"min_span_length" json:"min_span_length"`               // Spans below this are never sent for rewrite
	MinReplacementLength int           `yaml:"min_replacement_length" json:"min_replacement_length"` // Replacements at or below this are rejected
	PerFlagTimeout       time.Duration `yaml:"per_flag_timeout" json:"per_flag_timeout"`
	MaxPasses            int           `yaml:"max_passes" json:"max_passes"` // Score→rewrite→re-score iterations
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	TaskWorkers  int `yaml:"task_workers" json:"task_workers"`   // Concurrent sub-question pipelines
	FetchWorkers int `yaml:"fetch_workers" json:"fetch_workers"` // Concurrent document fetches per task
	Workers      int `yaml:"workers" json:"workers"`             // Batch mode: concurrent queries
}

// CacheConfig controls the fetched-document cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir" json:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" json:"disk_ttl"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Dir           string `yaml:"dir" json:"dir"`
	Verbose       bool   `yaml:"verbose" json:"verbose"`
	IncludeFooter bool   `yaml:"include_footer" json:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	cacheDir := ".delver-cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".delver", "cache")
	}

	return &Config{
		HTTP: HTTPConfig{
			Timeout:       20 * time.Second,
			UserAgent:     "Delver/0.2 (+https://github.com/ameins/delver)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
			RatePerHost:   2.0,
			RateBurst:     5,
		},
		Retrieval: RetrievalConfig{
			MaxContentLength: 8000,
			MaxResults:       5,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Timeout:     30,
			MaxTokens:   4000,
			Temperature: 0.3,
		},
		Originality: OriginalityConfig{
			Threshold:          0.8,
			WholeTextThreshold: 0.85,
			Policy:             "per-paragraph",
			MaxRefLength:       10000,
			VocabCap:           5000,
			LeadSpanLength:     1500,
			MinSegmentLength:   200,
			SegmentSpanLength:  500,
			Detector:           "local",
		},
		Rewrite: RewriteConfig{
			MinSpanLength:        50,
			MinReplacementLength: 20,
			PerFlagTimeout:       30 * time.Second,
			MaxPasses:            1,
		},
		Concurrency: ConcurrencyConfig{
			TaskWorkers:  4,
			FetchWorkers: 8,
			Workers:      2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       cacheDir,
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Sources: SourcesConfig{
			PrimaryDomains: []string{
				"arxiv.org",
				"doi.org",
				"nature.com",
				"nih.gov",
				"science.org",
				"who.int",
			},
			SecondaryDomains: []string{
				"apnews.com",
				"bbc.com",
				"britannica.com",
				"reuters.com",
				"wikipedia.org",
			},
		},
		Output: OutputConfig{
			Dir:           "./delver-reports",
			IncludeFooter: true,
		},
	}
}

// SourcesConfig tunes source credibility classification
type SourcesConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" json:"primary_domains"`     // Authoritative hosts (exact or suffix match)
	SecondaryDomains []string          `yaml:"secondary_domains" json:"secondary_domains"` // Reputable aggregators and reference sites
	DomainMap        map[string]string `yaml:"domain_map,omitempty" json:"domain_map,omitempty"` // Explicit host → tier overrides
}
