// Command rankeval scores queries against a bag-of-words corpus with BM25 and
// TF-IDF, evaluates the rankings against relevance judgments, exports
// learning-to-rank features and drives an external ranking-model trainer.
//
// Usage:
//
//	rankeval evaluate --corpus corpus.json --queries queries.tsv --qrels qrels.txt --engine bm25 --engine tfidf
//	RE_KAFKA_ENABLED=true rankeval worker
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
)

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	configPath string
	logLevel   string
	format     string
	cfg        *config.Config
}

func main() {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "rankeval",
		Short: "Score, evaluate and learn rankings over a judged corpus",
		Long: `rankeval scores every document of a corpus against each query with BM25
or TF-IDF, then measures the rankings with MAP, MRR, R-Precision and precision at R.

Run 'rankeval evaluate --help' to get started.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&a.format, "format", "text", "output format (text, json)")

	rootCmd.AddCommand(
		scoreCmd(a),
		evaluateCmd(a),
		featuresCmd(a),
		trainCmd(a),
		rankCmd(a),
		crossValidateCmd(a),
		historyCmd(a),
		workerCmd(a),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rankeval: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "failed to load config: %v", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.format != "text" && a.format != "json" {
		return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "unknown output format %q", a.format)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	a.cfg = cfg
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rankeval %s (commit %s)\n", version, commit)
		},
	}
}
