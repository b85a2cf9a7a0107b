package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/experiment"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/letor"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/metrics"
)

func featuresCmd(a *app) *cobra.Command {
	var (
		flags datasetFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Export one learning-to-rank feature row per judged document",
		Long: `Scores every query with each engine and writes a feature file where feature i
of a row is the document's score under the i-th engine:

	<label> qid:<qid> 1:<v1> ... N:<vN> # <docid>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := flags.request().Load()
			if err != nil {
				return err
			}
			runner := a.runner(&deps{metrics: metrics.New(nil)}, flags.options(cmd, a))
			scored, err := runner.ScoreAll(cmd.Context(), exp)
			if err != nil {
				return err
			}
			for i, engine := range scored.Engines {
				slog.Info("feature", "index", i+1, "engine", engine.Name())
			}
			rows := letor.BuildFeatureRows(dataset.QueryIDs(exp.Queries), exp.Truth, scored.Predictions)

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating feature file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := letor.WriteFeatures(w, rows); err != nil {
				return err
			}
			slog.Info("feature file written", "rows", len(rows), "path", out)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

// trainer builds the RankLib wrapper. With metrics.enabled every RankLib
// invocation is recorded and /metrics is served until stop is called.
func (a *app) trainer() (trainer *letor.RankLib, stop func()) {
	if !a.cfg.Metrics.Enabled {
		return letor.NewRankLib(a.cfg.RankLib), func() {}
	}
	m := metrics.New(nil)
	shutdown := metrics.StartServer(a.cfg.Metrics.Port, m, nil)
	stop = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}
	return letor.NewRankLib(a.cfg.RankLib, letor.WithObserver(m.ObserveTrainer)), stop
}

func trainCmd(a *app) *cobra.Command {
	var opts letor.TrainOptions
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a ranking model on a feature file with RankLib",
		RunE: func(cmd *cobra.Command, args []string) error {
			trainer, stop := a.trainer()
			defer stop()
			model, err := trainer.Train(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if opts.TestFile == "" {
				fmt.Fprintln(cmd.OutOrStdout(), model.Path)
				return nil
			}
			score, err := trainer.Evaluate(cmd.Context(), model, opts.TestFile, opts.TestMetric)
			if err != nil {
				return err
			}
			if a.format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"model": model.Path, "test_score": score})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\ttest %.4f\n", model.Path, score)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.TrainFile, "train", "", "training feature file")
	cmd.Flags().StringVar(&opts.TestFile, "test", "", "test feature file")
	cmd.Flags().StringVar(&opts.ValidateFile, "validate", "", "validation feature file")
	cmd.Flags().IntVar(&opts.Ranker, "ranker", 0, "RankLib ranker id (default ranklib.ranker)")
	cmd.Flags().StringVar(&opts.TrainMetric, "metric2t", "", "metric optimised during training (default ranklib.trainMetric)")
	cmd.Flags().StringVar(&opts.TestMetric, "metric2T", "", "metric reported on test data (default ranklib.testMetric)")
	cmd.Flags().StringVar(&opts.ModelPath, "model", "", "where to save the model (default <modelDir>/ranker<N>.txt)")
	cmd.MarkFlagRequired("train")
	return cmd
}

func rankCmd(a *app) *cobra.Command {
	var (
		modelPath   string
		featurePath string
		list        bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Re-rank a feature file with a trained model and evaluate the new order",
		RunE: func(cmd *cobra.Command, args []string) error {
			trainer, stop := a.trainer()
			defer stop()
			ranked, err := trainer.Rank(cmd.Context(), letor.Model{Path: modelPath}, featurePath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if list {
				if a.format == "json" {
					return writeJSON(w, ranked)
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "QID\tDOC\tLABEL\tSCORE")
				for _, row := range ranked {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%.6f\n", row.QID, row.DocID, row.Label, row.Score)
				}
				return tw.Flush()
			}

			f, err := os.Open(featurePath)
			if err != nil {
				return fmt.Errorf("opening feature file: %w", err)
			}
			rows, err := letor.ReadFeatures(f)
			f.Close()
			if err != nil {
				return err
			}
			// Model scores can be negative, so every re-ranked document is
			// retrieved.
			opts := evaluation.Options{TopK: len(rows)}
			evaluator := evaluation.NewEvaluator(opts, a.cfg.Evaluation.Workers)
			report, err := evaluator.Evaluate(cmd.Context(), modelPath,
				letor.QueryIDs(rows), letor.Judgments(rows), letor.ToPredictions(ranked))
			if err != nil {
				return err
			}
			return a.printResult(w, &experiment.Result{
				RunID:      "-",
				Experiment: "rerank",
				CorpusHash: featurePath,
				Queries:    report.Evaluated,
				Reports:    []*evaluation.Report{report},
			})
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "trained model file")
	cmd.Flags().StringVar(&featurePath, "features", "", "feature file to re-rank")
	cmd.Flags().BoolVar(&list, "list", false, "print the re-ranked rows instead of metrics")
	cmd.MarkFlagRequired("model")
	cmd.MarkFlagRequired("features")
	return cmd
}

func crossValidateCmd(a *app) *cobra.Command {
	var (
		trainPath string
		folds     int
		modelDir  string
		modelName string
	)
	cmd := &cobra.Command{
		Use:   "cross-validate",
		Short: "Run k-fold cross validation with RankLib",
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelDir == "" {
				modelDir = a.cfg.RankLib.ModelDir
			}
			trainer, stop := a.trainer()
			defer stop()
			return trainer.CrossValidate(cmd.Context(), trainPath, folds, modelDir, modelName)
		},
	}
	cmd.Flags().StringVar(&trainPath, "train", "", "feature file to split into folds")
	cmd.Flags().IntVar(&folds, "folds", 5, "number of folds")
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "directory for fold models (default ranklib.modelDir)")
	cmd.Flags().StringVar(&modelName, "model-name", "fold", "model file name prefix")
	cmd.MarkFlagRequired("train")
	return cmd
}
