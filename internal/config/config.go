// Package config loads and validates process configuration for the
// ingestion and retrieval engine.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	ConnectionString string `yaml:"connection_string"`
	MaxConns         int32  `yaml:"max_conns"`
}

// VectorBackendConfig selects and configures the vector-store implementation.
type VectorBackendConfig struct {
	Backend    string `yaml:"backend"` // "postgres" or "qdrant"
	QdrantAddr string `yaml:"qdrant_addr,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	Metric     string `yaml:"metric"` // "cosine", "l2", "ip"
}

// RedisConfig configures the registry/query-embedding cache.
type RedisConfig struct {
	Enabled               bool   `yaml:"enabled"`
	Addr                  string `yaml:"addr"`
	Password              string `yaml:"password,omitempty"`
	DB                    int    `yaml:"db"`
	TLSInsecureSkipVerify bool   `yaml:"tls_insecure_skip_verify,omitempty"`
	QueryCacheTTLSeconds  int    `yaml:"query_cache_ttl_seconds,omitempty"`
}

// KafkaConfig configures the ingestion completion-event publisher.
type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
	Enabled bool   `yaml:"enabled"`
}

// ClickHouseConfig configures the ingestion analytics sink.
type ClickHouseConfig struct {
	DSN     string `yaml:"dsn"`
	Enabled bool   `yaml:"enabled"`
}

// S3SSEConfig configures server-side encryption for objects written by
// S3Store.
type S3SSEConfig struct {
	Mode     string `yaml:"mode,omitempty"` // "", "sse-s3", "sse-kms"
	KMSKeyID string `yaml:"kms_key_id,omitempty"`
}

// S3Config configures original-bytes retention for uploaded documents.
type S3Config struct {
	Bucket                string      `yaml:"bucket"`
	Region                string      `yaml:"region"`
	Endpoint              string      `yaml:"endpoint,omitempty"`
	Prefix                string      `yaml:"prefix,omitempty"`
	AccessKey             string      `yaml:"access_key,omitempty"`
	SecretKey             string      `yaml:"secret_key,omitempty"`
	UsePathStyle          bool        `yaml:"use_path_style,omitempty"`
	TLSInsecureSkipVerify bool        `yaml:"tls_insecure_skip_verify,omitempty"`
	SSE                   S3SSEConfig `yaml:"sse,omitempty"`
	Enabled               bool        `yaml:"enabled"`
}

// ProviderConfig describes a single registered LLM provider.
type ProviderConfig struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"` // "openai", "anthropic", "google"
	BaseURL  string   `yaml:"base_url,omitempty"`
	APIKey   string   `yaml:"api_key,omitempty"`
	Models   []string `yaml:"models,omitempty"`
	Priority int      `yaml:"priority"`
}

// PoolConfig configures provider-pool routing.
type PoolConfig struct {
	Strategy             string `yaml:"strategy"` // PRIMARY_ONLY, FAILOVER, ROUND_ROBIN, MODEL_BASED, SPECIALIZED, SMART_ROUTING, DUAL_VERIFICATION
	MaxRetries           int    `yaml:"max_retries"`
	RegistryRefreshEvery string `yaml:"registry_refresh_every,omitempty"`
}

// IngestionConfig controls orchestrator concurrency and chunking defaults.
type IngestionConfig struct {
	Workers              int     `yaml:"workers"`
	BatchSize            int     `yaml:"batch_size"`
	DefaultChunkSize     int     `yaml:"default_chunk_size"`
	DefaultChunkOverlap  int     `yaml:"default_chunk_overlap"`
	OversizeThresholdPct float64 `yaml:"oversize_threshold_pct"`
	StatusTTLSeconds     int     `yaml:"status_ttl_seconds"`
}

// RetrievalConfig controls default hybrid-search tuning.
type RetrievalConfig struct {
	RRFConstant       int     `yaml:"rrf_constant"`
	DefaultSemantic   float64 `yaml:"default_semantic_weight"`
	DefaultTextual    float64 `yaml:"default_textual_weight"`
	MaxResultsDefault int     `yaml:"max_results_default"`
}

// DefaultsConfig sets the process-wide model/temperature fallbacks used
// when a library or a call site doesn't override them.
type DefaultsConfig struct {
	LLMModel            string  `yaml:"llm_model"`
	LLMTemperature      float64 `yaml:"llm_temperature"`
	LLMMaxTokens        int     `yaml:"llm_max_tokens"`
	EmbeddingModel      string  `yaml:"embedding_model"`
	EmbeddingContextLen int     `yaml:"embedding_context_len"`
	EmbeddingDim        int     `yaml:"embedding_dim"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	Insecure       bool   `yaml:"insecure"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version,omitempty"`
	Environment    string `yaml:"environment,omitempty"`
}

// Config is the root configuration object for the engine.
type Config struct {
	Database   DatabaseConfig       `yaml:"database"`
	Vector     VectorBackendConfig  `yaml:"vector"`
	Redis      RedisConfig          `yaml:"redis"`
	Kafka      KafkaConfig          `yaml:"kafka"`
	ClickHouse ClickHouseConfig     `yaml:"clickhouse"`
	S3         S3Config             `yaml:"s3"`
	Providers  []ProviderConfig     `yaml:"providers"`
	Pool       PoolConfig           `yaml:"pool"`
	Ingestion  IngestionConfig      `yaml:"ingestion"`
	Retrieval  RetrievalConfig      `yaml:"retrieval"`
	Defaults   DefaultsConfig       `yaml:"defaults"`
	OTel       TelemetryConfig      `yaml:"otel"`
	LogLevel   string               `yaml:"log_level"`
	HTTPAddr   string               `yaml:"http_addr"`
}

// LoadConfig loads a .env file from the working directory (if any), reads
// filename as YAML, applies environment overrides, and fills in defaults
// for anything left unset.
func LoadConfig(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	log.Info().Str("file", filename).Msg("configuration loaded")
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.ConnectionString = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTel.Endpoint = v
	}
	if v := os.Getenv("INGESTION_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingestion.Workers = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 8
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "postgres"
	}
	if cfg.Vector.Metric == "" {
		cfg.Vector.Metric = "cosine"
	}
	if cfg.Pool.Strategy == "" {
		cfg.Pool.Strategy = "FAILOVER"
	}
	if cfg.Pool.MaxRetries <= 0 {
		cfg.Pool.MaxRetries = 3
	}
	if cfg.Ingestion.Workers <= 0 {
		cfg.Ingestion.Workers = 4
		log.Info().Msg("no ingestion.workers configured, defaulting to 4")
	}
	if cfg.Ingestion.BatchSize <= 0 {
		cfg.Ingestion.BatchSize = 10
	}
	if cfg.Ingestion.DefaultChunkSize <= 0 {
		cfg.Ingestion.DefaultChunkSize = 1000
	}
	if cfg.Ingestion.OversizeThresholdPct <= 0 {
		cfg.Ingestion.OversizeThresholdPct = 0.02
	}
	if cfg.Ingestion.StatusTTLSeconds <= 0 {
		cfg.Ingestion.StatusTTLSeconds = 3600
	}
	if cfg.Retrieval.RRFConstant <= 0 {
		cfg.Retrieval.RRFConstant = 60
	}
	if cfg.Retrieval.DefaultSemantic == 0 && cfg.Retrieval.DefaultTextual == 0 {
		cfg.Retrieval.DefaultSemantic = 0.6
		cfg.Retrieval.DefaultTextual = 0.4
	}
	if cfg.Retrieval.MaxResultsDefault <= 0 {
		cfg.Retrieval.MaxResultsDefault = 20
	}
	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "jsimplerag"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Defaults.EmbeddingDim <= 0 {
		cfg.Defaults.EmbeddingDim = 1536
	}
	if cfg.Defaults.EmbeddingContextLen <= 0 {
		cfg.Defaults.EmbeddingContextLen = 8191
	}
	if cfg.Defaults.LLMMaxTokens <= 0 {
		cfg.Defaults.LLMMaxTokens = 4096
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
}
