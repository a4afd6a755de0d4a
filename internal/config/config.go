package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in the storage section.
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendBleve    = "bleve"
	BackendBadger   = "badger"
	BackendDynamoDB = "dynamodb"
	BackendHNSW     = "hnsw"
)

// Config holds the pkgdex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Fulltext  FulltextConfig  `yaml:"fulltext"`
	Vector    VectorConfig    `yaml:"vector"`
	Records   RecordsConfig   `yaml:"records"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port             int `yaml:"port"`
	ReadTimeoutSec   int `yaml:"read_timeout_sec"`
	WriteTimeoutSec  int `yaml:"write_timeout_sec"`
	ShutdownSec      int `yaml:"shutdown_timeout_sec"`
	HealthTimeoutSec int `yaml:"health_timeout_sec"`
}

// StorageConfig selects a backend per concern and holds each backend's settings.
type StorageConfig struct {
	Lexical string `yaml:"lexical"` // sqlite, redis, bleve
	Records string `yaml:"records"` // sqlite, redis, badger, dynamodb
	Vector  string `yaml:"vector"`  // redis, hnsw, or empty to disable

	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Redis    RedisConfig    `yaml:"redis"`
	Bleve    PathConfig     `yaml:"bleve"`
	Badger   PathConfig     `yaml:"badger"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	HNSW     HNSWConfig     `yaml:"hnsw"`
	S3       S3Config       `yaml:"s3"`
}

// SQLiteConfig locates the packaged search artifact. Path may be an s3:// URI.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	FTSTable     string `yaml:"fts_table"`
	KVTable      string `yaml:"kv_table"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	DocPrefix        string   `yaml:"doc_prefix"`
	VectorField      string   `yaml:"vector_field"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PathConfig is a backend addressed by a single local path.
type PathConfig struct {
	Path string `yaml:"path"`
}

// DynamoDBConfig locates the records table.
type DynamoDBConfig struct {
	Table         string `yaml:"table"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	KeyAttribute  string `yaml:"key_attribute"`
	DataAttribute string `yaml:"data_attribute"`
}

// HNSWConfig locates a prebuilt graph.
type HNSWConfig struct {
	Path     string `yaml:"path"`
	Metric   string `yaml:"metric"`
	EfSearch int    `yaml:"ef_search"`
}

// S3Config holds settings for downloading s3:// artifacts.
type S3Config struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	CacheDir  string `yaml:"cache_dir"`
}

// FulltextConfig tunes lexical retrieval.
type FulltextConfig struct {
	IndexName    string  `yaml:"index_name"`
	FallbackStep float64 `yaml:"fallback_step"`
	ScanLimit    int     `yaml:"scan_limit"`
}

// VectorConfig tunes vector retrieval.
type VectorConfig struct {
	IndexName string `yaml:"index_name"`
}

// RecordsConfig tunes record hydration.
type RecordsConfig struct {
	// DictionaryPath defaults to the sqlite path with a .dict extension.
	DictionaryPath     string `yaml:"dictionary_path"`
	DictionaryRequired bool   `yaml:"dictionary_required"`
	KeyPrefix          string `yaml:"key_prefix"`
	CacheSize          int    `yaml:"cache_size"`
	Workers            int    `yaml:"workers"`
}

// EmbeddingConfig holds the query embedding provider and its decorators.
type EmbeddingConfig struct {
	Enabled          Flag    `yaml:"enabled"`
	Provider         string  `yaml:"provider"`
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url"`
	Model            string  `yaml:"model"`
	Dimensions       int     `yaml:"dimensions"`
	QueryInstruction string  `yaml:"query_instruction"`
	TimeoutSec       int     `yaml:"timeout_sec"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps"`
	RateLimitBurst   int     `yaml:"rate_limit_burst"`
	MaxAttempts      int     `yaml:"max_attempts"`
	InitialBackoffMS int     `yaml:"initial_backoff_ms"`

	Cache EmbeddingCacheConfig `yaml:"cache"`
}

// EmbeddingCacheConfig selects the query embedding cache.
type EmbeddingCacheConfig struct {
	Backend   string `yaml:"backend"` // redis, badger, or empty to disable
	KeyPrefix string `yaml:"key_prefix"`
	TTLSec    int    `yaml:"ttl_sec"`
	// Path is the badger directory; empty keeps the cache in memory.
	Path string `yaml:"path"`
}

// SearchConfig tunes the orchestrator.
type SearchConfig struct {
	CandidateMultiplier int     `yaml:"candidate_multiplier"`
	MaxCandidates       int     `yaml:"max_candidates"`
	RRFK                float64 `yaml:"rrf_k"`
}

// Flag is a boolean that also accepts "1" and "yes" (case-insensitive).
// Anything not recognized as true is false.
type Flag bool

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: flag must be a scalar", node.Line)
	}
	*f = Flag(ParseFlag(node.Value))
	return nil
}

// ParseFlag reports whether s is "1", "true" or "yes", ignoring case and spaces.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// Load reads configuration from a YAML file by environment name (local, prod).
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.HealthTimeoutSec <= 0 {
		c.HTTP.HealthTimeoutSec = 2
	}

	if c.Storage.Lexical == "" {
		c.Storage.Lexical = BackendSQLite
	}
	if c.Storage.Records == "" {
		c.Storage.Records = BackendSQLite
	}
	if c.Storage.Redis.ReadinessTimeout <= 0 {
		c.Storage.Redis.ReadinessTimeout = 10
	}

	if c.Records.DictionaryPath == "" {
		c.Records.DictionaryPath = defaultDictionaryPath(c.Storage.SQLite.Path)
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 10
	}
	if c.Embedding.MaxAttempts <= 0 {
		c.Embedding.MaxAttempts = 3
	}
	if c.Embedding.InitialBackoffMS <= 0 {
		c.Embedding.InitialBackoffMS = 100
	}
	if c.Embedding.RateLimitBurst <= 0 {
		c.Embedding.RateLimitBurst = 1
	}

	if c.Search.CandidateMultiplier <= 0 {
		c.Search.CandidateMultiplier = 2
	}
	if c.Search.MaxCandidates <= 0 {
		c.Search.MaxCandidates = 1000
	}
	if c.Search.RRFK <= 0 {
		c.Search.RRFK = 60
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if err := oneOf("storage.lexical", c.Storage.Lexical, BackendSQLite, BackendRedis, BackendBleve); err != nil {
		return err
	}
	if err := oneOf("storage.records", c.Storage.Records,
		BackendSQLite, BackendRedis, BackendBadger, BackendDynamoDB); err != nil {
		return err
	}
	if err := oneOf("storage.vector", c.Storage.Vector, "", BackendRedis, BackendHNSW); err != nil {
		return err
	}
	if err := oneOf("embedding.cache.backend", c.Embedding.Cache.Backend, "", BackendRedis, BackendBadger); err != nil {
		return err
	}

	var errs []error
	for _, b := range c.backendsInUse() {
		switch b {
		case BackendSQLite:
			if c.Storage.SQLite.Path == "" {
				errs = append(errs, errors.New("storage.sqlite.path is required"))
			}
		case BackendRedis:
			if len(c.Storage.Redis.Addrs) == 0 {
				errs = append(errs, errors.New("storage.redis.addrs is required"))
			}
		case BackendBleve:
			if c.Storage.Bleve.Path == "" {
				errs = append(errs, errors.New("storage.bleve.path is required"))
			}
		case BackendBadger:
			if c.Storage.Badger.Path == "" {
				errs = append(errs, errors.New("storage.badger.path is required"))
			}
		case BackendDynamoDB:
			if c.Storage.DynamoDB.Table == "" {
				errs = append(errs, errors.New("storage.dynamodb.table is required"))
			}
		case BackendHNSW:
			if c.Storage.HNSW.Path == "" {
				errs = append(errs, errors.New("storage.hnsw.path is required"))
			}
		}
	}

	if c.Embedding.Enabled && c.Embedding.Model == "" {
		errs = append(errs, errors.New("embedding.model is required when embeddings are enabled"))
	}
	if c.Fulltext.FallbackStep < 0 || c.Fulltext.FallbackStep >= 1 {
		errs = append(errs, fmt.Errorf("fulltext.fallback_step must be in [0, 1), got %g", c.Fulltext.FallbackStep))
	}
	return errors.Join(errs...)
}

// EmbeddingTimeout returns the provider request timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSec) * time.Second
}

// backendsInUse lists selected backends without duplicates.
func (c *Config) backendsInUse() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range []string{c.Storage.Lexical, c.Storage.Records, c.Storage.Vector} {
		if b != "" && !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	if bool(c.Embedding.Enabled) && c.Embedding.Cache.Backend == BackendRedis && !seen[BackendRedis] {
		out = append(out, BackendRedis)
	}
	return out
}

func oneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %q, got %q", field, allowed, v)
}

// defaultDictionaryPath mirrors records.DefaultDictionaryPath without importing it.
func defaultDictionaryPath(artifact string) string {
	if artifact == "" {
		return ""
	}
	ext := filepath.Ext(artifact)
	return strings.TrimSuffix(artifact, ext) + ".dict"
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests run from package directories
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
