package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest,omitempty"`
	Search      SearchConfig      `yaml:"search,omitempty"`
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "openai" (any OpenAI-compatible endpoint)
	APIKey   string `yaml:"api_key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`

	// Dimensions is the fixed vector size produced by the model. Every
	// stored and query vector must match it.
	Dimensions int `yaml:"dimensions,omitempty"`
}

// VectorStoreConfig holds vector store configuration.
// If QdrantURL is empty, a local SQLite-backed store under LocalPath is used.
type VectorStoreConfig struct {
	QdrantURL      string `yaml:"qdrant_url,omitempty"`
	QdrantAPIKey   string `yaml:"qdrant_api_key,omitempty"`
	Collection     string `yaml:"collection,omitempty"`
	LocalPath      string `yaml:"local_path,omitempty"`
	BatchSize      int    `yaml:"batch_size,omitempty"`      // points per upsert batch
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // per-request client timeout
}

// IngestConfig holds ingestion configuration
type IngestConfig struct {
	MaxChunkChars int `yaml:"max_chunk_chars,omitempty"`
}

// SearchConfig holds search configuration
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k,omitempty"`
}

// Load loads configuration from the default config file
// Default location: ~/.pagemark/config.yaml
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromFile(path)
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pagemark", "config.yaml"), nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			defaultPath, _ := DefaultPath()
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

// expandPath expands ~ and $HOME to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 384
	}

	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "study_chunks"
	}
	if c.VectorStore.BatchSize == 0 {
		c.VectorStore.BatchSize = 100
	}
	if c.VectorStore.TimeoutSeconds == 0 {
		c.VectorStore.TimeoutSeconds = 10
	}
	if c.VectorStore.LocalPath != "" {
		c.VectorStore.LocalPath = expandPath(c.VectorStore.LocalPath)
	}

	if c.Ingest.MaxChunkChars == 0 {
		c.Ingest.MaxChunkChars = 1000
	}

	if c.Search.DefaultTopK == 0 {
		c.Search.DefaultTopK = 5
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai":
		// A key is only mandatory for the hosted API; local
		// OpenAI-compatible runtimes usually accept any token.
		if c.Embedding.APIKey == "" && c.Embedding.Endpoint == "" {
			return fmt.Errorf("openai provider requires api_key (or a custom endpoint)")
		}
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got: %d", c.Embedding.Dimensions)
	}

	if c.VectorStore.BatchSize <= 0 || c.VectorStore.BatchSize > 1000 {
		return fmt.Errorf("batch_size must be between 1 and 1000, got: %d", c.VectorStore.BatchSize)
	}

	if c.VectorStore.QdrantURL == "" && c.VectorStore.LocalPath == "" {
		return fmt.Errorf("vector_store requires qdrant_url or local_path")
	}

	return nil
}

const defaultConfigTemplate = `# pagemark configuration
#
# Copy and edit this file for your environment.
# Default location: $HOME/.pagemark/config.yaml

embedding:
  provider: openai
  api_key: your-api-key
  # endpoint: http://localhost:8081/v1/embeddings   # any OpenAI-compatible runtime
  model: text-embedding-3-small
  dimensions: 384

vector_store:
  qdrant_url: http://localhost:6333
  # qdrant_api_key: your-qdrant-key
  collection: study_chunks
  batch_size: 100
  timeout_seconds: 10
  # local_path: ~/.pagemark/vectors   # offline fallback instead of qdrant_url

ingest:
  max_chunk_chars: 1000

search:
  default_top_k: 5
`

// WriteDefaultTemplate creates a default configuration file if it does not exist.
// It returns true if a file was created, false if it already existed.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}
