// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Postgres, Kafka, Redis, Minhash, Scan, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/dupscan/dupscan/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MaxShingleID is the largest value the corpus-wide shingle hash can
// produce (CRC32). The minhash modulus must exceed it.
const MaxShingleID = 1<<32 - 1

// DefaultModulus is the smallest prime greater than MaxShingleID.
const DefaultModulus uint64 = 4294967311

// Default minhash and scan parameters, shared by the config loader and the
// offline CLI.
const (
	DefaultShingleSize         = 3
	DefaultSignatureLength     = 256
	DefaultHashSeed            = 1
	DefaultSimilarityThreshold = 0.5
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Minhash  MinhashConfig  `yaml:"minhash"`
	Scan     ScanConfig     `yaml:"scan"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
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
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest string `yaml:"documentIngest"`
	MatchEvents    string `yaml:"matchEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// MinhashConfig fixes the shingling and signature parameters for a run.
// Every service in a deployment must use identical values, otherwise
// signatures are not comparable.
type MinhashConfig struct {
	ShingleSize     int    `yaml:"shingleSize"`
	SignatureLength int    `yaml:"signatureLength"`
	HashSeed        int64  `yaml:"hashSeed"`
	Modulus         uint64 `yaml:"modulus"`
}

// ScanConfig controls pair-scan execution and output.
type ScanConfig struct {
	SimilarityThreshold float64       `yaml:"similarityThreshold"`
	RankedOutput        bool          `yaml:"rankedOutput"`
	Workers             int           `yaml:"workers"`
	Timeout             time.Duration `yaml:"timeout"`
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
// overrides, and validates the minhash parameters. Invalid shingle or
// signature settings fail here, before any signature is built.
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

// Validate checks the minhash and scan parameters. It is called by Load but
// exported so tests and CLI flag handling can reuse it.
func (c *Config) Validate() error {
	if c.Minhash.ShingleSize < 1 {
		return fmt.Errorf("%w: shingleSize must be >= 1, got %d", apperrors.ErrInvalidConfig, c.Minhash.ShingleSize)
	}
	if c.Minhash.SignatureLength < 1 {
		return fmt.Errorf("%w: signatureLength must be >= 1, got %d", apperrors.ErrInvalidConfig, c.Minhash.SignatureLength)
	}
	if c.Minhash.Modulus <= MaxShingleID {
		return fmt.Errorf("%w: modulus %d must exceed the maximum shingle ID %d", apperrors.ErrInvalidConfig, c.Minhash.Modulus, uint64(MaxShingleID))
	}
	if c.Scan.SimilarityThreshold < 0 || c.Scan.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarityThreshold must be in [0,1], got %f", apperrors.ErrInvalidConfig, c.Scan.SimilarityThreshold)
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "dupscan",
			User:            "dupscan",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "dupscan-group",
			Topics: KafkaTopics{
				DocumentIngest: "document-ingest",
				MatchEvents:    "match-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Minhash: MinhashConfig{
			ShingleSize:     DefaultShingleSize,
			SignatureLength: DefaultSignatureLength,
			HashSeed:        DefaultHashSeed,
			Modulus:         DefaultModulus,
		},
		Scan: ScanConfig{
			SimilarityThreshold: DefaultSimilarityThreshold,
			RankedOutput:        false,
			Workers:             0, // 0 = GOMAXPROCS
			Timeout:             30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_MINHASH_SHINGLE_SIZE"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Minhash.ShingleSize = k
		}
	}
	if v := os.Getenv("DS_MINHASH_SIGNATURE_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Minhash.SignatureLength = n
		}
	}
	if v := os.Getenv("DS_MINHASH_HASH_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Minhash.HashSeed = seed
		}
	}
	if v := os.Getenv("DS_SCAN_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scan.SimilarityThreshold = t
		}
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
