package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted for embedding and generation.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Index backends.
const (
	BackendFlat     = "flat"
	BackendPGVector = "pgvector"
	BackendRedis    = "redis" // Redis Search on the cache connection
)

// Config holds the answer service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Preset     PresetConfig     `yaml:"preset"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Index      IndexConfig      `yaml:"index"`
	Cache      CacheConfig      `yaml:"cache"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RateLimitConfig holds per-client request limits for the chatbot endpoint.
type RateLimitConfig struct {
	RPS        float64 `yaml:"rps"` // 0 = disabled
	Burst      int     `yaml:"burst"`
	TrustProxy bool    `yaml:"trust_proxy"` // key clients by X-Forwarded-For
}

// CorpusConfig points at the scraped document directory.
type CorpusConfig struct {
	Dir    string `yaml:"dir"`
	Strict bool   `yaml:"strict"` // fail on the first malformed file instead of skipping it
}

// PresetConfig points at the preset answer source.
type PresetConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// GenerationConfig holds completion provider settings.
type GenerationConfig struct {
	Provider     string  `yaml:"provider"`
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	MaxAttempts  int     `yaml:"max_attempts"` // 1 = no retry
}

// IndexConfig holds vector index settings.
type IndexConfig struct {
	Backend  string         `yaml:"backend"` // flat, pgvector, redis (default: flat)
	TopK     int            `yaml:"top_k"`
	PGVector PGVectorConfig `yaml:"pgvector"`
}

// PGVectorConfig holds Postgres settings for the pgvector backend.
type PGVectorConfig struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
}

// CacheConfig holds the embedding cache connection. Empty Addrs disables the cache.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLHours         int      `yaml:"ttl_hours"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether an embedding cache is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into the
// process environment. Missing files are ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.RPS*2) + 1
	}
	if c.Preset.Path == "" {
		c.Preset.Path = filepath.Join("preset_answers", "preset_answers.json")
	}
	c.applyEmbeddingDefaults()
	c.applyGenerationDefaults()
	if c.Index.Backend == "" {
		c.Index.Backend = BackendFlat
	}
	if c.Index.TopK <= 0 {
		c.Index.TopK = 3
	}
	if c.Index.PGVector.Table == "" {
		c.Index.PGVector.Table = "workvisa_documents"
	}
	// An unset ${REDIS_ADDR} expands to "", which must not enable the cache.
	c.Cache.Addrs = slices.DeleteFunc(c.Cache.Addrs, func(a string) bool { return strings.TrimSpace(a) == "" })
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "workvisa:"
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 30
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

func (c *Config) applyEmbeddingDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.Model == "" {
		switch c.Embedding.Provider {
		case ProviderOllama:
			c.Embedding.Model = "nomic-embed-text"
		default:
			c.Embedding.Model = "text-embedding-3-small"
		}
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
}

func (c *Config) applyGenerationDefaults() {
	if c.Generation.Provider == "" {
		c.Generation.Provider = ProviderOpenAI
	}
	if c.Generation.Model == "" {
		switch c.Generation.Provider {
		case ProviderOllama:
			c.Generation.Model = "llama3"
		default:
			c.Generation.Model = "gpt-4o"
		}
	}
	if c.Generation.SystemPrompt == "" {
		c.Generation.SystemPrompt = "너는 지금 외국인 근로자와 대화를 하는 친절한 상담원이야."
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = 0.7
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 500
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 30
	}
	if c.Generation.MaxAttempts <= 0 {
		c.Generation.MaxAttempts = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must not be negative, got %g", c.RateLimit.RPS)
	}
	if c.Preset.Path == "" {
		return fmt.Errorf("preset.path is required")
	}
	if err := validateProvider("embedding", c.Embedding.Provider, c.Embedding.APIKey); err != nil {
		return err
	}
	if err := validateProvider("generation", c.Generation.Provider, c.Generation.APIKey); err != nil {
		return err
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %g", c.Generation.Temperature)
	}
	if c.Generation.MaxAttempts > 5 {
		return fmt.Errorf("generation.max_attempts must be at most 5, got %d", c.Generation.MaxAttempts)
	}
	switch c.Index.Backend {
	case BackendFlat:
	case BackendPGVector:
		if c.Index.PGVector.URL == "" {
			return fmt.Errorf("index.pgvector.url is required for the pgvector backend")
		}
		if !tableNameRegex.MatchString(c.Index.PGVector.Table) {
			return fmt.Errorf("index.pgvector.table %q is not a valid identifier", c.Index.PGVector.Table)
		}
	case BackendRedis:
		if !c.Cache.Enabled() {
			return fmt.Errorf("cache.addrs is required for the redis backend")
		}
	default:
		return fmt.Errorf("index.backend must be %q, %q or %q, got %q",
			BackendFlat, BackendPGVector, BackendRedis, c.Index.Backend)
	}
	return nil
}

var tableNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

func validateProvider(section, provider, apiKey string) error {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return fmt.Errorf("%s.api_key is required for the %s provider", section, provider)
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("%s.provider must be %q or %q, got %q", section, ProviderOpenAI, ProviderOllama, provider)
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
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
