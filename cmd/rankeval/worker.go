package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/experiment"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/metrics"
)

// workerCmd consumes experiment requests from Kafka, runs them and publishes
// the results. Graceful shutdown is triggered by SIGINT/SIGTERM.
func workerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run experiments requested over Kafka",
		Long: `Consumes experiment requests (JSON with name, corpus_path, queries_path,
qrels_path, engines and metrics) from kafka.topics.experimentRequests and
publishes each result to kafka.topics.experimentResults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Kafka.Enabled {
				return apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage, "kafka is not enabled in the configuration")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := a.connect(ctx)
			defer d.Close()
			if err != nil {
				return apperrors.Newf(apperrors.ErrInternal, apperrors.ExitExternal, "connecting services: %v", err)
			}

			opts := evaluation.Options{TopK: a.cfg.Evaluation.TopK, Threshold: a.cfg.Evaluation.Threshold}
			runner := a.runner(d, opts)
			consumer := kafka.NewConsumer(a.cfg.Kafka, a.cfg.Kafka.Topics.ExperimentRequests, experiment.HandleRequest(runner))
			d.checker.Register("kafka-consumer", health.PingCheck(consumer, false))

			if a.cfg.Metrics.Enabled {
				shutdown := metrics.StartServer(a.cfg.Metrics.Port, d.metrics, d.checker)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := shutdown(shutdownCtx); err != nil {
						slog.Error("metrics server shutdown error", "error", err)
					}
				}()
			}

			slog.Info("experiment worker started",
				"requests", a.cfg.Kafka.Topics.ExperimentRequests,
				"results", a.cfg.Kafka.Topics.ExperimentResults,
				"workers", a.cfg.Evaluation.Workers,
			)
			if err := consumer.Start(ctx); err != nil {
				return err
			}
			slog.Info("experiment worker stopped")
			return nil
		},
	}
}
