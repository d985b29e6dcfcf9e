package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the search API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Data      DataConfig      `yaml:"data"`
	Search    SearchConfig    `yaml:"search"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// AuthConfig holds API authentication settings. An empty key list disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// DataConfig locates the index artifacts produced by the index builder.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// MetadataFile is the normalized document metadata (JSONL).
func (d DataConfig) MetadataFile() string { return filepath.Join(d.Dir, "metadata.jsonl") }

// KeywordDBFile is the SQLite FTS database.
func (d DataConfig) KeywordDBFile() string { return filepath.Join(d.Dir, "search.db") }

// VectorIndexFile is the HNSW snapshot.
func (d DataConfig) VectorIndexFile() string { return filepath.Join(d.Dir, "vectors.hnsw") }

// BleveIndexDir is the bleve index directory (keyword_driver: bleve).
func (d DataConfig) BleveIndexDir() string { return filepath.Join(d.Dir, "keyword.bleve") }

// SearchConfig holds retrieval settings.
type SearchConfig struct {
	// Overfetch is the per-source candidate count fetched before fusion.
	Overfetch int `yaml:"overfetch"`
	// KeywordDriver selects the lexical backend: sqlite (default) or bleve.
	KeywordDriver string `yaml:"keyword_driver"`
	// RequestTimeoutSec bounds the retrieval fan-out per search call. 0 disables.
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	// Provider selects the embedder: static (default, offline) or openai.
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	// CacheSize bounds the in-process query embedding LRU cache.
	CacheSize int `yaml:"cache_size"`
	// RedisCache enables a shared second-tier embedding cache when addrs are set.
	RedisCache RedisCacheConfig `yaml:"redis_cache"`
}

// RedisCacheConfig holds the optional Redis embedding cache settings.
type RedisCacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Search.Overfetch <= 0 {
		c.Search.Overfetch = 30
	}
	if c.Search.KeywordDriver == "" {
		c.Search.KeywordDriver = "sqlite"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "static"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = 1024
	}
	if c.Embedding.RedisCache.TTLSec <= 0 {
		c.Embedding.RedisCache.TTLSec = 86400
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Search.KeywordDriver {
	case "sqlite", "bleve":
	default:
		return fmt.Errorf("search.keyword_driver must be \"sqlite\" or \"bleve\", got %q", c.Search.KeywordDriver)
	}
	switch c.Embedding.Provider {
	case "static":
	case "openai":
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for the openai provider")
		}
		if c.Embedding.APIKey == "" {
			return fmt.Errorf("embedding.api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"static\" or \"openai\", got %q", c.Embedding.Provider)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])

		name, def, hasDefault := strings.Cut(expr, ":-")
		if val, ok := os.LookupEnv(name); ok {
			return []byte(val)
		}
		if hasDefault {
			return []byte(def)
		}
		return []byte{}
	})
}
