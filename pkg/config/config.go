// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Scoring, Evaluation, RankLib, Postgres, Kafka, Redis, etc.).
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
	Scoring    ScoringConfig    `yaml:"scoring"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	RankLib    RankLibConfig    `yaml:"ranklib"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ScoringConfig holds the tunable parameters of the scoring engines.
type ScoringConfig struct {
	BM25K float64 `yaml:"bm25K"`
	BM25B float64 `yaml:"bm25B"`
}

// EvaluationConfig controls how ranked lists are filtered before metrics are
// computed and how many queries are evaluated in parallel.
type EvaluationConfig struct {
	TopK      int     `yaml:"topK"`
	Threshold float64 `yaml:"threshold"`
	Workers   int     `yaml:"workers"`
}

// RankLibConfig locates the learning-to-rank trainer and its defaults.
type RankLibConfig struct {
	Java        string `yaml:"java"`
	JarPath     string `yaml:"jarPath"`
	Ranker      int    `yaml:"ranker"`
	TrainMetric string `yaml:"trainMetric"`
	TestMetric  string `yaml:"testMetric"`
	ModelDir    string `yaml:"modelDir"`
	// Timeout bounds a single trainer invocation; 0 means no limit.
	Timeout time.Duration `yaml:"timeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ExperimentRequests string `yaml:"experimentRequests"`
	ExperimentResults  string `yaml:"experimentResults"`
}

// RedisConfig holds Redis connection and score caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
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

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
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

// Validate rejects settings no component can run with. BM25 parameters are
// not range-checked: out-of-range values only change scoring behaviour.
func (c *Config) Validate() error {
	if c.Evaluation.Workers < 1 {
		return fmt.Errorf("evaluation.workers must be at least 1, got %d", c.Evaluation.Workers)
	}
	if c.Redis.Enabled && c.Redis.CacheTTL <= 0 {
		return fmt.Errorf("redis.cacheTTL must be positive when redis is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must not be empty when kafka is enabled")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			BM25K: 1.2,
			BM25B: 0.75,
		},
		Evaluation: EvaluationConfig{
			TopK:      -1,
			Threshold: 0,
			Workers:   4,
		},
		RankLib: RankLibConfig{
			Java:        "java",
			JarPath:     "RankLib-2.1-patched.jar",
			Ranker:      4,
			TrainMetric: "MAP@10",
			TestMetric:  "MAP@10",
			ModelDir:    "models",
			Timeout:     2 * time.Hour,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "rankeval",
			User:            "rankeval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "rankeval-group",
			Topics: KafkaTopics{
				ExperimentRequests: "experiment-requests",
				ExperimentResults:  "experiment-results",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads RE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RE_BM25_K"); v != "" {
		if k, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.BM25K = k
		}
	}
	if v := os.Getenv("RE_BM25_B"); v != "" {
		if b, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Scoring.BM25B = b
		}
	}
	if v := os.Getenv("RE_EVAL_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Evaluation.TopK = k
		}
	}
	if v := os.Getenv("RE_EVAL_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Evaluation.Threshold = t
		}
	}
	if v := os.Getenv("RE_EVAL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Evaluation.Workers = n
		}
	}
	if v := os.Getenv("RE_RANKLIB_JAR"); v != "" {
		cfg.RankLib.JarPath = v
	}
	if v := os.Getenv("RE_RANKLIB_JAVA"); v != "" {
		cfg.RankLib.Java = v
	}
	if v := os.Getenv("RE_RANKLIB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RankLib.Timeout = d
		}
	}
	if v := os.Getenv("RE_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = parseBool(v, cfg.Postgres.Enabled)
	}
	if v := os.Getenv("RE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("RE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("RE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("RE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("RE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("RE_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = parseBool(v, cfg.Kafka.Enabled)
	}
	if v := os.Getenv("RE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("RE_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v, cfg.Redis.Enabled)
	}
	if v := os.Getenv("RE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("RE_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
