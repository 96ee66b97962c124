// Package config loads the application configuration from a YAML file
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"

	"github.com/yitzyh/shtell/pkg/source"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// storage backends
const (
	BackendSQLite = "sqlite"
	BackendDynamo = "dynamo"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server" jsonschema:"description=Read API server configuration"`
	Storage    StorageConfig    `yaml:"storage" json:"storage" jsonschema:"description=Storage of webpage records"`
	Rules      RulesConfig      `yaml:"rules" json:"rules" jsonschema:"description=Curation rules"`
	Apply      ApplyConfig      `yaml:"apply" json:"apply" jsonschema:"description=Batch and apply settings"`
	Sources    []source.Feed    `yaml:"sources" json:"sources" jsonschema:"description=Feeds to ingest, built-in Medium and Designboom feeds if empty"`
	Ingest     IngestConfig     `yaml:"ingest" json:"ingest" jsonschema:"description=Feed ingest settings"`
	LLM        LLMConfig        `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for AI summaries"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Content extraction configuration"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics" jsonschema:"description=Prometheus metrics of batch runs"`
	Export     ExportConfig     `yaml:"export" json:"export" jsonschema:"description=Change-set export"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Listen   string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	PageSize int           `yaml:"page_size" json:"page_size" jsonschema:"default=50,minimum=1,description=Default records per page"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Backend string       `yaml:"backend" json:"backend" jsonschema:"default=sqlite,enum=sqlite,enum=dynamo,description=Storage backend"`
	SQLite  SQLiteConfig `yaml:"sqlite" json:"sqlite" jsonschema:"description=SQLite settings"`
	Dynamo  DynamoConfig `yaml:"dynamo" json:"dynamo" jsonschema:"description=DynamoDB settings"`
}

// SQLiteConfig holds database settings
type SQLiteConfig struct {
	DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:shtell.db?cache=shared&mode=rwc,description=Database connection string"`
	MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
	MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
}

// DynamoConfig holds DynamoDB settings
type DynamoConfig struct {
	Table           string `yaml:"table" json:"table" jsonschema:"default=webpages,description=Table name"`
	Region          string `yaml:"region" json:"region" jsonschema:"default=us-east-1,description=AWS region"`
	Endpoint        string `yaml:"endpoint" json:"endpoint" jsonschema:"description=Custom endpoint, like dynamodb-local"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" jsonschema:"description=Static access key, default credential chain if empty"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" jsonschema:"description=Static secret key"`
}

// RulesConfig points to curation rules
type RulesConfig struct {
	Path string `yaml:"path" json:"path" jsonschema:"description=Rules YAML file, embedded defaults if empty"`
}

// ApplyConfig holds batch run and apply settings
type ApplyConfig struct {
	ChunkSize   int `yaml:"chunk_size" json:"chunk_size" jsonschema:"default=100,minimum=1,description=Records per engine chunk"`
	BatchSize   int `yaml:"batch_size" json:"batch_size" jsonschema:"default=25,minimum=1,maximum=25,description=Records per storage write batch"`
	Concurrency int `yaml:"concurrency" json:"concurrency" jsonschema:"default=4,minimum=1,description=Concurrent storage write batches"`
}

// IngestConfig holds feed ingest settings
type IngestConfig struct {
	Concurrency int           `yaml:"concurrency" json:"concurrency" jsonschema:"default=4,minimum=1,description=Feeds fetched in parallel"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Feed fetch timeout"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=shtell/1.0,description=User agent for feed requests"`
}

// LLMConfig holds LLM configuration for summaries
type LLMConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Generate AI summaries"`
	Endpoint     string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey       string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model        string        `yaml:"model" json:"model" jsonschema:"description=Model name (e.g. gpt-4o-mini or llama3)"`
	Temperature  float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,description=Temperature for response generation"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=1000,description=Maximum tokens in response"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt for the LLM (optional)"`
	BatchSize    int           `yaml:"batch_size" json:"batch_size" jsonschema:"default=5,minimum=1,description=Records summarized in one request"`
	UseJSONMode  bool          `yaml:"use_json_mode" json:"use_json_mode" jsonschema:"default=false,description=Use JSON response format (not all models support this)"`
}

// ExtractionConfig holds content extraction settings
type ExtractionConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Extraction timeout per page"`
	MaxConcurrent int           `yaml:"max_concurrent" json:"max_concurrent" jsonschema:"default=5,description=Maximum concurrent extractions"`
	RateLimit     time.Duration `yaml:"rate_limit" json:"rate_limit" jsonschema:"default=1s,description=Rate limit between extractions"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=shtell/1.0,description=User agent for HTTP requests"`
	MinTextLength int           `yaml:"min_text_length" json:"min_text_length" jsonschema:"default=100,description=Minimum text length to consider valid"`
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	PushURL string `yaml:"push_url" json:"push_url" jsonschema:"description=Prometheus Pushgateway url, metrics are not pushed if empty"`
	Job     string `yaml:"job" json:"job" jsonschema:"default=shtell,description=Pushgateway job name"`
}

// ExportConfig holds change-set export settings
type ExportConfig struct {
	Dir string   `yaml:"dir" json:"dir" jsonschema:"description=Local directory for change-set files"`
	S3  S3Config `yaml:"s3" json:"s3" jsonschema:"description=S3 bucket for change-set files"`
}

// S3Config holds S3 settings
type S3Config struct {
	Bucket          string `yaml:"bucket" json:"bucket" jsonschema:"description=Bucket name, S3 export disabled if empty"`
	Prefix          string `yaml:"prefix" json:"prefix" jsonschema:"default=changesets,description=Key prefix"`
	Region          string `yaml:"region" json:"region" jsonschema:"default=us-east-1,description=AWS region"`
	Endpoint        string `yaml:"endpoint" json:"endpoint" jsonschema:"description=Custom endpoint, like minio"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id" jsonschema:"description=Static access key"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key" jsonschema:"description=Static secret key"`
	UsePathStyle    bool   `yaml:"use_path_style" json:"use_path_style" jsonschema:"default=false,description=Path-style addressing"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse makes configuration from YAML, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// schema validation is supplementary
		lgr.Printf("[WARN] schema validation failed: %v", err)
	}

	return &cfg, nil
}

// Default returns configuration with all defaults set, used when no config file is given
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Server.PageSize == 0 {
		c.Server.PageSize = 50
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSQLite
	}
	if c.Storage.SQLite.DSN == "" {
		c.Storage.SQLite.DSN = "file:shtell.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if c.Storage.SQLite.MaxOpenConns == 0 {
		c.Storage.SQLite.MaxOpenConns = 10
	}
	if c.Storage.SQLite.MaxIdleConns == 0 {
		c.Storage.SQLite.MaxIdleConns = 5
	}
	if c.Storage.SQLite.ConnMaxLifetime == 0 {
		c.Storage.SQLite.ConnMaxLifetime = 3600
	}
	if c.Storage.Dynamo.Table == "" {
		c.Storage.Dynamo.Table = "webpages"
	}
	if c.Storage.Dynamo.Region == "" {
		c.Storage.Dynamo.Region = "us-east-1"
	}

	if c.Apply.ChunkSize == 0 {
		c.Apply.ChunkSize = 100
	}
	if c.Apply.BatchSize == 0 {
		c.Apply.BatchSize = 25
	}
	if c.Apply.Concurrency == 0 {
		c.Apply.Concurrency = 4
	}

	if len(c.Sources) == 0 {
		c.Sources = source.DefaultFeeds()
	}
	if c.Ingest.Concurrency == 0 {
		c.Ingest.Concurrency = 4
	}
	if c.Ingest.Timeout == 0 {
		c.Ingest.Timeout = 30 * time.Second
	}
	if c.Ingest.UserAgent == "" {
		c.Ingest.UserAgent = "shtell/1.0"
	}

	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1000
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.LLM.BatchSize == 0 {
		c.LLM.BatchSize = 5
	}

	if c.Extraction.Timeout == 0 {
		c.Extraction.Timeout = 30 * time.Second
	}
	if c.Extraction.MaxConcurrent == 0 {
		c.Extraction.MaxConcurrent = 5
	}
	if c.Extraction.RateLimit == 0 {
		c.Extraction.RateLimit = time.Second
	}
	if c.Extraction.UserAgent == "" {
		c.Extraction.UserAgent = "shtell/1.0"
	}
	if c.Extraction.MinTextLength == 0 {
		c.Extraction.MinTextLength = 100
	}

	if c.Metrics.Job == "" {
		c.Metrics.Job = "shtell"
	}
	if c.Export.S3.Prefix == "" {
		c.Export.S3.Prefix = "changesets"
	}
	if c.Export.S3.Region == "" {
		c.Export.S3.Region = "us-east-1"
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case BackendSQLite, BackendDynamo:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendSQLite, BackendDynamo, cfg.Storage.Backend)
	}

	if cfg.LLM.Enabled {
		if cfg.LLM.Endpoint == "" {
			return fmt.Errorf("llm.endpoint is required")
		}
		if cfg.LLM.Model == "" {
			return fmt.Errorf("llm.model is required")
		}
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.LLM.BatchSize < 1 {
		return fmt.Errorf("llm.batch_size must be at least 1")
	}

	if cfg.Apply.BatchSize < 1 || cfg.Apply.BatchSize > 25 {
		return fmt.Errorf("apply.batch_size must be between 1 and 25")
	}
	if cfg.Apply.ChunkSize < 1 || cfg.Apply.Concurrency < 1 {
		return fmt.Errorf("apply.chunk_size and apply.concurrency must be positive")
	}

	for i, f := range cfg.Sources {
		if f.Name == "" || f.URL == "" {
			return fmt.Errorf("sources[%d]: name and url are required", i)
		}
	}

	if cfg.Extraction.Timeout < time.Second {
		return fmt.Errorf("extraction timeout must be at least 1 second")
	}
	if cfg.Extraction.MinTextLength < 0 {
		return fmt.Errorf("extraction min_text_length must be non-negative")
	}

	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	return nil
}
