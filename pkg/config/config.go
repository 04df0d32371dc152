// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Redis, Corpus, Router, Vector, Live, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	RPC        RPCConfig        `yaml:"rpc"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Router     RouterConfig     `yaml:"router"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Topic      TopicConfig      `yaml:"topic"`
	Vector     VectorConfig     `yaml:"vector"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Milvus     MilvusConfig     `yaml:"milvus"`
	Live       LiveConfig       `yaml:"live"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RPCConfig controls the JSON-over-TCP RPC listener used by the generation
// layer.
type RPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	RouteEvents string `yaml:"routeEvents"`
	LiveControl string `yaml:"liveControl"`
}

// RedisConfig holds Redis connection parameters for the long-TTL live cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// CorpusConfig selects where the course, faculty and campus documents are
// loaded from at startup.
type CorpusConfig struct {
	Source string `yaml:"source"` // "file" or "postgres"
	Dir    string `yaml:"dir"`
	Table  string `yaml:"table"`
}

// RouterConfig controls result sizes and the route event buffer.
type RouterConfig struct {
	DefaultLimit      int `yaml:"defaultLimit"`
	CompleteListLimit int `yaml:"completeListLimit"`
	EventBuffer       int `yaml:"eventBuffer"`
}

// ClassifierConfig holds the rule and exemplar confidence cutoffs.
type ClassifierConfig struct {
	Threshold         float64 `yaml:"threshold"`
	ExemplarThreshold float64 `yaml:"exemplarThreshold"`
}

// TopicConfig tunes fuzzy topic resolution.
type TopicConfig struct {
	MinScore float64 `yaml:"minScore"`
	TopK     int     `yaml:"topK"`
}

// VectorConfig controls the semantic fallback path.
type VectorConfig struct {
	Store        string        `yaml:"store"` // "memory" or "milvus"
	TopK         int           `yaml:"topK"`
	MinScore     float64       `yaml:"minScore"`
	Timeout      time.Duration `yaml:"timeout"`
	BuildWorkers int           `yaml:"buildWorkers"`
	BatchSize    int           `yaml:"batchSize"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "hash" or "http"
	BaseURL   string        `yaml:"baseUrl"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"apiKey"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cacheSize"`
}

// MilvusConfig holds connection parameters for the Milvus vector store.
type MilvusConfig struct {
	Address    string        `yaml:"address"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LiveConfig controls the live class-search client and its two cache layers.
type LiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BaseURL       string        `yaml:"baseUrl"`
	Semester      string        `yaml:"semester"`
	Career        string        `yaml:"career"`
	Timeout       time.Duration `yaml:"timeout"`
	ShortTTL      time.Duration `yaml:"shortTTL"`
	ShortCapacity int           `yaml:"shortCapacity"`
	FreshTTL      time.Duration `yaml:"freshTTL"`
	Retention     time.Duration `yaml:"retention"`
	RatePerSecond float64       `yaml:"ratePerSecond"`
	Burst         int           `yaml:"burst"`
	MaxAttempts   int           `yaml:"maxAttempts"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging for routed queries.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values, or an error when the merged result is invalid.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the router cannot run with.
func (c *Config) Validate() error {
	var problems []string
	switch c.Corpus.Source {
	case "file", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("corpus.source %q must be file or postgres", c.Corpus.Source))
	}
	switch c.Vector.Store {
	case "memory", "milvus":
	default:
		problems = append(problems, fmt.Sprintf("vector.store %q must be memory or milvus", c.Vector.Store))
	}
	switch c.Embedding.Provider {
	case "hash", "http":
	default:
		problems = append(problems, fmt.Sprintf("embedding.provider %q must be hash or http", c.Embedding.Provider))
	}
	if c.Classifier.Threshold <= 0 || c.Classifier.Threshold > 1 {
		problems = append(problems, "classifier.threshold must be in (0, 1]")
	}
	if c.Topic.MinScore < 0 || c.Topic.MinScore > 1 {
		problems = append(problems, "topic.minScore must be in [0, 1]")
	}
	if c.Embedding.Dimension <= 0 {
		problems = append(problems, "embedding.dimension must be positive")
	}
	if c.Live.Enabled && c.Live.FreshTTL > c.Live.Retention {
		problems = append(problems, "live.freshTTL must not exceed live.retention")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		RPC: RPCConfig{
			Enabled: false,
			Addr:    ":9100",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "campusrouter",
			User:            "campusrouter",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "campus-router",
			Topics: KafkaTopics{
				RouteEvents: "route-events",
				LiveControl: "live-cache-control",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
		},
		Corpus: CorpusConfig{
			Source: "file",
			Dir:    "data",
			Table:  "documents",
		},
		Router: RouterConfig{
			DefaultLimit:      10,
			CompleteListLimit: 50,
			EventBuffer:       10000,
		},
		Classifier: ClassifierConfig{
			Threshold:         0.7,
			ExemplarThreshold: 0.45,
		},
		Topic: TopicConfig{
			MinScore: 0.6,
			TopK:     3,
		},
		Vector: VectorConfig{
			Store:        "memory",
			TopK:         5,
			MinScore:     0.05,
			Timeout:      300 * time.Millisecond,
			BuildWorkers: 8,
			BatchSize:    32,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "text-embedding-3-small",
			Dimension: 256,
			Timeout:   2 * time.Second,
			CacheSize: 4096,
		},
		Milvus: MilvusConfig{
			Address:    "localhost:19530",
			Database:   "default",
			Collection: "campus_documents",
			Timeout:    5 * time.Second,
		},
		Live: LiveConfig{
			Enabled:       true,
			BaseURL:       "https://classes.ku.edu/Classes/CourseSearch.action",
			Semester:      "Spring 2026",
			Timeout:       1500 * time.Millisecond,
			ShortTTL:      30 * time.Second,
			ShortCapacity: 1024,
			FreshTTL:      10 * time.Minute,
			Retention:     120 * 24 * time.Hour,
			RatePerSecond: 2,
			Burst:         4,
			MaxAttempts:   2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			SampleRate: 0.1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CQR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CQR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CQR_RPC_ADDR"); v != "" {
		cfg.RPC.Addr = v
		cfg.RPC.Enabled = true
	}
	if v := os.Getenv("CQR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CQR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CQR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CQR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CQR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CQR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("CQR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CQR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CQR_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("CQR_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("CQR_VECTOR_STORE"); v != "" {
		cfg.Vector.Store = v
	}
	if v := os.Getenv("CQR_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("CQR_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("CQR_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("CQR_MILVUS_ADDRESS"); v != "" {
		cfg.Milvus.Address = v
	}
	if v := os.Getenv("CQR_LIVE_SEMESTER"); v != "" {
		cfg.Live.Semester = v
	}
	if v := os.Getenv("CQR_LIVE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Live.Enabled = enabled
		}
	}
	if v := os.Getenv("CQR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CQR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
