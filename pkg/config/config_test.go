package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1.2, cfg.Scoring.BM25K)
	assert.Equal(t, 0.75, cfg.Scoring.BM25B)
	assert.Equal(t, -1, cfg.Evaluation.TopK)
	assert.Equal(t, 0.0, cfg.Evaluation.Threshold)
	assert.Equal(t, 4, cfg.Evaluation.Workers)
	assert.Equal(t, "java", cfg.RankLib.Java)
	assert.False(t, cfg.Postgres.Enabled)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	content := `
scoring:
  bm25K: 1.6
  bm25B: 0.5
evaluation:
  topK: 10
  workers: 2
redis:
  enabled: true
  cacheTTL: 1m
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1.6, cfg.Scoring.BM25K)
	assert.Equal(t, 0.5, cfg.Scoring.BM25B)
	assert.Equal(t, 10, cfg.Evaluation.TopK)
	assert.Equal(t, 2, cfg.Evaluation.Workers)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	// untouched sections keep their defaults
	assert.Equal(t, "MAP@10", cfg.RankLib.TrainMetric)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RE_BM25_K", "2.0")
	t.Setenv("RE_EVAL_TOP_K", "5")
	t.Setenv("RE_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("RE_POSTGRES_ENABLED", "true")
	t.Setenv("RE_RANKLIB_TIMEOUT", "90s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2.0, cfg.Scoring.BM25K)
	assert.Equal(t, 5, cfg.Evaluation.TopK)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Postgres.Enabled)
	assert.Equal(t, 90*time.Second, cfg.RankLib.Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsZeroWorkers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Evaluation.Workers = 0
	assert.Error(t, cfg.Validate())
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", p.DSN())
}
