package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{Path: "/data/packages.db"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_UnknownBackend(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"lexical", func(c *Config) { c.Storage.Lexical = "elastic" }, "storage.lexical"},
		{"records", func(c *Config) { c.Storage.Records = "bleve" }, "storage.records"},
		{"vector", func(c *Config) { c.Storage.Vector = "sqlite" }, "storage.vector"},
		{"cache", func(c *Config) { c.Embedding.Cache.Backend = "memcached" }, "embedding.cache.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("expected %s error, got %v", tt.field, err)
			}
		})
	}
}

func TestValidate_BackendSettingsRequired(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"sqlite path", func(c *Config) { c.Storage.SQLite.Path = "" }, "storage.sqlite.path"},
		{"redis addrs", func(c *Config) { c.Storage.Vector = BackendRedis }, "storage.redis.addrs"},
		{"bleve path", func(c *Config) { c.Storage.Lexical = BackendBleve }, "storage.bleve.path"},
		{"badger path", func(c *Config) { c.Storage.Records = BackendBadger }, "storage.badger.path"},
		{"dynamodb table", func(c *Config) { c.Storage.Records = BackendDynamoDB }, "storage.dynamodb.table"},
		{"hnsw path", func(c *Config) { c.Storage.Vector = BackendHNSW }, "storage.hnsw.path"},
		{"redis cache", func(c *Config) {
			c.Embedding.Enabled = true
			c.Embedding.Model = "m"
			c.Embedding.Cache.Backend = BackendRedis
		}, "storage.redis.addrs"},
		{"embedding model", func(c *Config) { c.Embedding.Enabled = true }, "embedding.model"},
		{"fallback step", func(c *Config) { c.Fulltext.FallbackStep = 1 }, "fulltext.fallback_step"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %s error, got %v", tt.want, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Storage: StorageConfig{SQLite: SQLiteConfig{Path: "s3://artifacts/nixpkgs/packages.db"}}}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Storage.Lexical != BackendSQLite || cfg.Storage.Records != BackendSQLite {
		t.Errorf("expected sqlite backends, got %q/%q", cfg.Storage.Lexical, cfg.Storage.Records)
	}
	if cfg.Storage.Vector != "" {
		t.Errorf("vector backend must stay disabled, got %q", cfg.Storage.Vector)
	}
	if cfg.Records.DictionaryPath != "s3://artifacts/nixpkgs/packages.dict" {
		t.Errorf("unexpected dictionary path %q", cfg.Records.DictionaryPath)
	}
	if cfg.Embedding.MaxAttempts != 3 || cfg.Embedding.InitialBackoffMS != 100 {
		t.Errorf("unexpected retry defaults %d/%d", cfg.Embedding.MaxAttempts, cfg.Embedding.InitialBackoffMS)
	}
	if cfg.Search.CandidateMultiplier != 2 || cfg.Search.MaxCandidates != 1000 || cfg.Search.RRFK != 60 {
		t.Errorf("unexpected search defaults %+v", cfg.Search)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Records: RecordsConfig{DictionaryPath: "/etc/pkgdex/custom.dict"},
		Search:  SearchConfig{CandidateMultiplier: 4, RRFK: 10},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Records.DictionaryPath != "/etc/pkgdex/custom.dict" {
		t.Errorf("dictionary path overridden: %q", cfg.Records.DictionaryPath)
	}
	if cfg.Search.CandidateMultiplier != 4 || cfg.Search.RRFK != 10 {
		t.Errorf("search settings overridden: %+v", cfg.Search)
	}
}

func TestFlag_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"YES", true},
		{`"True"`, true},
		{"0", false},
		{"no", false},
		{"on", false},
		{`""`, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var v struct {
				Enabled Flag `yaml:"enabled"`
			}
			if err := yaml.Unmarshal([]byte("enabled: "+tt.in), &v); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if bool(v.Enabled) != tt.want {
				t.Errorf("Flag(%s) = %v, want %v", tt.in, v.Enabled, tt.want)
			}
		})
	}
}

func TestFlag_RejectsSequence(t *testing.T) {
	var v struct {
		Enabled Flag `yaml:"enabled"`
	}
	if err := yaml.Unmarshal([]byte("enabled: [1]"), &v); err == nil {
		t.Fatal("expected error for sequence flag")
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("PKGDEX_TEST_PORT", "9090")
	t.Setenv("ENABLE_EMBEDDINGS", "yes")

	path := filepath.Join(t.TempDir(), "test.yaml")
	data := `
http:
  port: ${PKGDEX_TEST_PORT}
storage:
  sqlite:
    path: ${PKGDEX_TEST_DB:-/tmp/packages.db}
embedding:
  enabled: ${ENABLE_EMBEDDINGS:-0}
  model: text-embedding-3-small
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Storage.SQLite.Path != "/tmp/packages.db" {
		t.Errorf("expected default path, got %q", cfg.Storage.SQLite.Path)
	}
	if !cfg.Embedding.Enabled {
		t.Error("expected embeddings enabled")
	}
	if cfg.Records.DictionaryPath != "/tmp/packages.dict" {
		t.Errorf("expected derived dictionary, got %q", cfg.Records.DictionaryPath)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Storage.Lexical != BackendSQLite {
		t.Errorf("expected sqlite lexical backend, got %q", cfg.Storage.Lexical)
	}
}
