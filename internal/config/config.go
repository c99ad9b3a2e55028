// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (COURSECHAT_* runtime override)
//  2. Config file (~/.coursechat/config.yaml or ./config.yaml)
//  3. Default values
//
// Error Handling: sentinel errors for Go-idiomatic checking with errors.Is(),
// wrapped with context using fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidChunking indicates chunk size/overlap values that cannot
	// produce terminating chunking (overlap must be smaller than size).
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidModelName indicates the generation model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model name is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidMaxResults indicates an out-of-range search result limit.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidMaxHistory indicates an out-of-range history depth.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidMinSimilarity indicates a similarity threshold outside [0, 1].
	ErrInvalidMinSimilarity = errors.New("invalid min similarity")

	// ErrInvalidStorePath indicates an empty vector store path.
	ErrInvalidStorePath = errors.New("invalid store path")

	// ErrInvalidRateLimit indicates inconsistent model pacing settings.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
)

// Defaults mirror the shipped course-materials setup.
const (
	// DefaultChunkSize is the maximum characters per content chunk.
	DefaultChunkSize = 800

	// DefaultChunkOverlap is the number of characters shared between
	// consecutive chunks.
	DefaultChunkOverlap = 100

	// DefaultMaxResults is the search result limit per query.
	DefaultMaxResults = 5

	// DefaultMaxHistory is the number of question/answer exchanges kept
	// per session.
	DefaultMaxHistory = 2

	// DefaultMinSimilarity is the cosine similarity threshold for fuzzy
	// course-name resolution against the catalog.
	DefaultMinSimilarity = 0.3

	// DefaultModelName is the default generation model.
	DefaultModelName = "googleai/gemini-2.5-flash"

	// DefaultEmbedderModel is the default Gemini embedder model.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultAddr is the default HTTP listen address.
	DefaultAddr = "127.0.0.1:3400"

	// DefaultRateBurst is the limiter burst used when rate limiting is on.
	DefaultRateBurst = 1
)

// Config stores application configuration.
type Config struct {
	// Generation model configuration
	ModelName string `mapstructure:"model_name" json:"model_name"`

	// Embedding model used at both ingestion and query time
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Chunking configuration
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Retrieval configuration
	MaxResults    int     `mapstructure:"max_results" json:"max_results"`
	MinSimilarity float32 `mapstructure:"min_similarity" json:"min_similarity"`

	// Conversation history depth (exchanges kept per session)
	MaxHistory int `mapstructure:"max_history" json:"max_history"`

	// Vector store persistence directory
	StorePath string `mapstructure:"store_path" json:"store_path"`

	// Course document directory for ingestion
	DocsDir string `mapstructure:"docs_dir" json:"docs_dir"`

	// HTTP server listen address (serve mode)
	Addr string `mapstructure:"addr" json:"addr"`

	// Model call pacing. RateLimit is calls per second; 0 disables pacing.
	RateLimit float64 `mapstructure:"rate_limit" json:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".coursechat")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)

	v.SetEnvPrefix("COURSECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("max_results", DefaultMaxResults)
	v.SetDefault("min_similarity", DefaultMinSimilarity)
	v.SetDefault("max_history", DefaultMaxHistory)
	v.SetDefault("store_path", filepath.Join(configDir, "store"))
	v.SetDefault("docs_dir", "docs")
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_burst", DefaultRateBurst)
}

// Validate checks configuration invariants (fail-fast at startup).
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("configuration is nil")
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder model must not be empty", ErrInvalidEmbedderModel)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, chunk size %d)",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}
	if c.MaxResults <= 0 || c.MaxResults > 100 {
		return fmt.Errorf("%w: must be in [1, 100], got %d", ErrInvalidMaxResults, c.MaxResults)
	}
	if c.MaxHistory <= 0 || c.MaxHistory > 100 {
		return fmt.Errorf("%w: must be in [1, 100], got %d", ErrInvalidMaxHistory, c.MaxHistory)
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("%w: must be in [0, 1], got %v", ErrInvalidMinSimilarity, c.MinSimilarity)
	}
	if strings.TrimSpace(c.StorePath) == "" {
		return fmt.Errorf("%w: store path must not be empty", ErrInvalidStorePath)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative, got %v", ErrInvalidRateLimit, c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return fmt.Errorf("%w: burst must be positive when rate limiting is on, got %d",
			ErrInvalidRateLimit, c.RateBurst)
	}
	return nil
}
