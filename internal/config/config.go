// Package config loads and validates the service configuration from a TOML
// file, with environment-variable overrides for the API keys so secrets can
// stay out of the file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Defaults applied to absent fields.
const (
	DefaultListenAddr       = ":8000"
	DefaultRequestsPerMin   = 25
	DefaultConcurrency      = 8
	DefaultChunkTokens      = 350
	DefaultOverlapTokens    = 75
	DefaultDirectSizeMB     = 10
	DefaultSampleSizeMB     = 2
	DefaultStorageBackend   = "memory"
	maxCredentialEnvEntries = 16
)

// Config is the full service configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `toml:"listen_addr"`

	// BearerToken authenticates incoming requests (exact equality).
	BearerToken string `toml:"bearer_token"`

	// APIKeys is the credential list. GROQ_API_KEY_1..n environment
	// variables are appended if set, so keys can live outside the file.
	APIKeys []string `toml:"api_keys"`

	// RequestsPerMinute is the per-credential rate ceiling.
	RequestsPerMinute int `toml:"requests_per_minute"`

	// Concurrency bounds in-flight LLM calls, independent of key count.
	Concurrency int `toml:"concurrency"`

	// Verbose enables debug logging.
	Verbose bool `toml:"verbose"`

	// Storage selects the answer-cache backend: "memory" or "sqlite".
	Storage string `toml:"storage"`

	// DataDir is where the sqlite backend keeps its database.
	DataDir string `toml:"data_dir"`

	Chunker ChunkerConfig `toml:"chunker"`
	Router  RouterConfig  `toml:"router"`
	LLM     LLMConfig     `toml:"llm"`
	Embed   EmbedConfig   `toml:"embedding"`
	Rerank  RerankConfig  `toml:"rerank"`
}

// ChunkerConfig tunes chunk sizing.
type ChunkerConfig struct {
	ChunkTokens   int `toml:"chunk_tokens"`
	OverlapTokens int `toml:"overlap_tokens"`
}

// RouterConfig tunes the document-size thresholds for strategy routing.
type RouterConfig struct {
	// DirectSizeMB: documents larger than this always take the direct path.
	DirectSizeMB int `toml:"direct_size_mb"`

	// SampleSizeMB: documents above this are sampled and keyword-scored
	// before a strategy is chosen.
	SampleSizeMB int `toml:"sample_size_mb"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// EmbedConfig configures the embedding provider.
type EmbedConfig struct {
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
}

// RerankConfig configures the optional cross-encoder reranker.
// An empty APIKey disables reranking; retrieval keeps vector order.
type RerankConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Load reads the TOML file at path, applies environment overrides and
// defaults, and validates. A missing file is fine when the environment
// supplies everything needed.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Environment-only configuration.
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv appends API keys from GROQ_API_KEY_1..n and picks up the bearer
// token from HACKRX_BEARER_TOKEN when the file left it empty.
func (c *Config) applyEnv() {
	for i := 1; i <= maxCredentialEnvEntries; i++ {
		key := strings.TrimSpace(os.Getenv(fmt.Sprintf("GROQ_API_KEY_%d", i)))
		if key == "" {
			continue
		}
		if !contains(c.APIKeys, key) {
			c.APIKeys = append(c.APIKeys, key)
		}
	}
	if c.BearerToken == "" {
		c.BearerToken = os.Getenv("HACKRX_BEARER_TOKEN")
	}
	if c.Rerank.APIKey == "" {
		c.Rerank.APIKey = os.Getenv("RERANK_API_KEY")
	}
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = DefaultRequestsPerMin
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Storage == "" {
		c.Storage = DefaultStorageBackend
	}
	if c.Chunker.ChunkTokens <= 0 {
		c.Chunker.ChunkTokens = DefaultChunkTokens
	}
	if c.Chunker.OverlapTokens <= 0 {
		c.Chunker.OverlapTokens = DefaultOverlapTokens
	}
	if c.Router.DirectSizeMB <= 0 {
		c.Router.DirectSizeMB = DefaultDirectSizeMB
	}
	if c.Router.SampleSizeMB <= 0 {
		c.Router.SampleSizeMB = DefaultSampleSizeMB
	}
}

// Validate refuses configurations the service cannot run with.
func (c *Config) Validate() error {
	if len(c.APIKeys) == 0 {
		return fmt.Errorf("no API keys configured: set api_keys or GROQ_API_KEY_1..n")
	}
	if c.BearerToken == "" {
		return fmt.Errorf("no bearer token configured: set bearer_token or HACKRX_BEARER_TOKEN")
	}
	if c.Storage != "memory" && c.Storage != "sqlite" {
		return fmt.Errorf("unknown storage backend %q (want memory or sqlite)", c.Storage)
	}
	if c.Router.SampleSizeMB >= c.Router.DirectSizeMB {
		return fmt.Errorf("router.sample_size_mb (%d) must be below router.direct_size_mb (%d)",
			c.Router.SampleSizeMB, c.Router.DirectSizeMB)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
