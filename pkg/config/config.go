// Package config loads and validates hunt configuration from a YAML file with
// environment-variable overrides. Every subsystem (index build, search,
// HTTP server, Redis, Kafka, PostgreSQL, logging, metrics) has its own
// typed section.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Build modes decide what a batch build does when one document cannot be read.
const (
	ModeAbort         = "abort"
	ModeSkipAndReport = "skip"
)

// Compression codecs accepted for the index file body.
const (
	CompressionNone = "none"
	CompressionLZ4  = "lz4"
	CompressionZSTD = "zstd"
)

// Config is the top-level configuration.
type Config struct {
	Index       IndexConfig       `yaml:"index"`
	Search      SearchConfig      `yaml:"search"`
	Server      ServerConfig      `yaml:"server"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	ObjectStore ObjectStoreConfig `yaml:"objectStore"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// IndexConfig controls how documents are discovered, indexed and persisted.
type IndexConfig struct {
	Path        string   `yaml:"path"`
	Language    string   `yaml:"language"`
	Mode        string   `yaml:"mode"`
	Workers     int      `yaml:"workers"`
	Compression string   `yaml:"compression"`
	Extensions  []string `yaml:"extensions"`
	SkipHidden  bool     `yaml:"skipHidden"`
	ExcludeDirs []string `yaml:"excludeDirs"`
	// Watch makes the searcher reload when the index file is replaced.
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watchDebounce"`
}

// SearchConfig bounds fuzzy distance and result counts.
type SearchConfig struct {
	DefaultDistance int `yaml:"defaultDistance"`
	MaxDistance     int `yaml:"maxDistance"`
	MaxResults      int `yaml:"maxResults"`
}

// ServerConfig holds HTTP server settings for the searcher service.
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig bounds search requests per client IP.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// RedisConfig holds the optional query cache connection.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds the optional build notification settings. The indexer
// publishes to Topics.IndexComplete and the searcher consumes it in
// ConsumerGroup to reload its index.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete string `yaml:"indexComplete"`
}

// PostgresConfig holds the optional build report store connection.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
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

// ObjectStoreConfig points at S3-compatible storage that built index files
// are uploaded to and that a searcher fetches a missing index from.
type ObjectStoreConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
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

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Path:          "index.bin",
			Language:      "en",
			Mode:          ModeAbort,
			Workers:       4,
			Compression:   CompressionZSTD,
			Extensions:    []string{"txt", "java", "csv", "md"},
			SkipHidden:    true,
			WatchDebounce: 250 * time.Millisecond,
		},
		Search: SearchConfig{
			DefaultDistance: 2,
			MaxDistance:     4,
			MaxResults:      100,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Requests: 600,
				Window:   time.Minute,
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "hunt-searcher",
			Topics: KafkaTopics{
				IndexComplete: "index.complete",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "hunt",
			User:            "hunt",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint: "localhost:9000",
			Bucket:   "hunt-indexes",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Index.Mode {
	case ModeAbort, ModeSkipAndReport:
	default:
		return fmt.Errorf("index.mode must be %q or %q, got %q", ModeAbort, ModeSkipAndReport, c.Index.Mode)
	}
	switch c.Index.Compression {
	case CompressionNone, CompressionLZ4, CompressionZSTD:
	default:
		return fmt.Errorf("index.compression must be none, lz4 or zstd, got %q", c.Index.Compression)
	}
	if c.Index.Workers < 1 {
		return fmt.Errorf("index.workers must be at least 1, got %d", c.Index.Workers)
	}
	if c.Index.Path == "" {
		return fmt.Errorf("index.path is required")
	}
	if c.ObjectStore.Enabled && (c.ObjectStore.Endpoint == "" || c.ObjectStore.Bucket == "") {
		return fmt.Errorf("objectStore.endpoint and objectStore.bucket are required when enabled")
	}
	if c.Search.MaxDistance < 0 || c.Search.DefaultDistance < 0 {
		return fmt.Errorf("search distances must not be negative")
	}
	if c.Search.DefaultDistance > c.Search.MaxDistance {
		return fmt.Errorf("search.defaultDistance %d exceeds search.maxDistance %d",
			c.Search.DefaultDistance, c.Search.MaxDistance)
	}
	return nil
}

// applyEnvOverrides reads HUNT_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HUNT_INDEX_PATH"); v != "" {
		cfg.Index.Path = v
	}
	if v := os.Getenv("HUNT_INDEX_LANGUAGE"); v != "" {
		cfg.Index.Language = v
	}
	if v := os.Getenv("HUNT_INDEX_MODE"); v != "" {
		cfg.Index.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("HUNT_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.Workers = n
		}
	}
	if v := os.Getenv("HUNT_INDEX_COMPRESSION"); v != "" {
		cfg.Index.Compression = strings.ToLower(v)
	}
	if v := os.Getenv("HUNT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HUNT_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("HUNT_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("HUNT_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("HUNT_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("HUNT_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("HUNT_OBJECTSTORE_ENDPOINT"); v != "" {
		cfg.ObjectStore.Endpoint = v
		cfg.ObjectStore.Enabled = true
	}
	if v := os.Getenv("HUNT_OBJECTSTORE_ACCESS_KEY"); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("HUNT_OBJECTSTORE_SECRET_KEY"); v != "" {
		cfg.ObjectStore.SecretKey = v
	}
	if v := os.Getenv("HUNT_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HUNT_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
