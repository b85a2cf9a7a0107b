package main

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/experiment"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/scoring/bm25"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/redis"
)

// deps are the optional backing services enabled in the configuration.
type deps struct {
	metrics  *metrics.Metrics
	checker  *health.Checker
	redis    *pkgredis.Client
	postgres *postgres.Client
	producer *kafka.Producer
}

// connect opens every enabled service. A service that is enabled but
// unreachable is an error; the caller closes whatever was opened.
func (a *app) connect(ctx context.Context) (*deps, error) {
	d := &deps{
		metrics: metrics.New(nil),
		checker: health.NewChecker(),
	}
	if a.cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(a.cfg.Redis)
		if err != nil {
			return d, err
		}
		d.redis = client
		d.checker.Register("redis", health.PingCheck(client, true))
		slog.Info("score cache enabled", "addr", a.cfg.Redis.Addr, "ttl", a.cfg.Redis.CacheTTL)
	}
	if a.cfg.Postgres.Enabled {
		client, err := postgres.New(a.cfg.Postgres)
		if err != nil {
			return d, err
		}
		d.postgres = client
		if err := client.Migrate(ctx); err != nil {
			return d, err
		}
		d.checker.Register("postgres", health.PingCheck(client, false))
		slog.Info("result store enabled", "host", a.cfg.Postgres.Host, "database", a.cfg.Postgres.Database)
	}
	if a.cfg.Kafka.Enabled {
		d.producer = kafka.NewProducer(a.cfg.Kafka, a.cfg.Kafka.Topics.ExperimentResults)
		d.checker.Register("kafka", health.PingCheck(d.producer, false))
		slog.Info("result publishing enabled", "topic", a.cfg.Kafka.Topics.ExperimentResults)
	}
	return d, nil
}

func (d *deps) Close() {
	if d.producer != nil {
		if err := d.producer.Close(); err != nil {
			slog.Error("closing kafka producer", "error", err)
		}
	}
	if d.postgres != nil {
		d.postgres.Close()
	}
	if d.redis != nil {
		d.redis.Close()
	}
}

// runner wires the enabled services into an experiment runner.
func (a *app) runner(d *deps, opts evaluation.Options) *experiment.Runner {
	runnerOpts := []experiment.Option{
		experiment.WithMetrics(d.metrics),
		experiment.WithBM25Params(a.bm25Params()),
	}
	if d.redis != nil {
		runnerOpts = append(runnerOpts, experiment.WithCache(experiment.NewScoreCache(d.redis, a.cfg.Redis.CacheTTL)))
	}
	if d.postgres != nil {
		runnerOpts = append(runnerOpts, experiment.WithStore(experiment.NewPostgresStore(d.postgres)))
	}
	if d.producer != nil {
		runnerOpts = append(runnerOpts, experiment.WithPublisher(experiment.NewKafkaPublisher(d.producer)))
	}
	evaluator := evaluation.NewEvaluator(opts, a.cfg.Evaluation.Workers)
	return experiment.NewRunner(evaluator, a.cfg.Evaluation.Workers, runnerOpts...)
}

func (a *app) bm25Params() bm25.Params {
	return bm25.Params{K: a.cfg.Scoring.BM25K, B: a.cfg.Scoring.BM25B}
}
