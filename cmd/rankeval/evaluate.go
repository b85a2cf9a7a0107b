package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/experiment"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

// datasetFlags are shared by every command that reads an experiment from
// disk.
type datasetFlags struct {
	name      string
	corpus    string
	queries   string
	qrels     string
	engines   []string
	metrics   []string
	topK      int
	threshold float64
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "adhoc", "experiment name")
	cmd.Flags().StringVar(&f.corpus, "corpus", "", "JSON corpus {docid: {term: count}}")
	cmd.Flags().StringVar(&f.queries, "queries", "", "query file, one qid<TAB>text per line")
	cmd.Flags().StringVar(&f.qrels, "qrels", "", "TREC qrels file (qid iter docid rel)")
	cmd.Flags().StringSliceVarP(&f.engines, "engine", "e", []string{"bm25"}, "engines to run (bm25, tfidf, bm25:k=1.5,b=0.6)")
	cmd.Flags().StringSliceVarP(&f.metrics, "metric", "m", nil, "metrics to compute (map, mrr, r-prec, p@r); default all")
	cmd.Flags().IntVar(&f.topK, "top-k", 0, "keep only the top k documents per query (overrides evaluation.topK)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "keep documents scoring strictly above this value when top-k is off")
	cmd.MarkFlagRequired("corpus")
	cmd.MarkFlagRequired("queries")
	cmd.MarkFlagRequired("qrels")
}

func (f *datasetFlags) request() experiment.Request {
	return experiment.Request{
		Name:        f.name,
		CorpusPath:  f.corpus,
		QueriesPath: f.queries,
		QrelsPath:   f.qrels,
		Engines:     f.engines,
		Metrics:     f.metrics,
	}
}

func (f *datasetFlags) options(cmd *cobra.Command, a *app) evaluation.Options {
	opts := evaluation.Options{TopK: a.cfg.Evaluation.TopK, Threshold: a.cfg.Evaluation.Threshold}
	if cmd.Flags().Changed("top-k") {
		opts.TopK = f.topK
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = f.threshold
	}
	return opts
}

func evaluateCmd(a *app) *cobra.Command {
	var flags datasetFlags
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score all queries with each engine and report MAP, MRR, R-Precision and precision at R",
		Long: `Loads a corpus, queries and judgments, scores every query with each engine
and prints one row per engine. When postgres, redis or kafka are enabled in
the configuration the run is cached, stored and published as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			exp, err := flags.request().Load()
			if err != nil {
				return err
			}
			d, err := a.connect(ctx)
			defer d.Close()
			if err != nil {
				return apperrors.Newf(apperrors.ErrInternal, apperrors.ExitExternal, "connecting services: %v", err)
			}

			result, err := a.runner(d, flags.options(cmd, a)).Run(ctx, exp)
			if result != nil {
				if perr := a.printResult(cmd.OutOrStdout(), result); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func scoreCmd(a *app) *cobra.Command {
	var (
		corpusPath string
		engineSpec string
		topK       int
	)
	cmd := &cobra.Command{
		Use:   "score [query]",
		Short: "Rank the corpus for one query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := dataset.LoadCorpus(corpusPath)
			if err != nil {
				return err
			}
			stats, err := corpus.NewStats(c)
			if err != nil {
				return err
			}
			spec, err := experiment.ParseEngineSpec(engineSpec)
			if err != nil {
				return err
			}
			engine, err := experiment.BuildEngine(stats, spec, a.bm25Params())
			if err != nil {
				return err
			}
			scores, err := engine.ComputeRelevanceOnCorpus(args[0])
			if err != nil {
				return err
			}
			ranked := ranking.TopK(scores, topK)
			if a.format == "json" {
				return writeJSON(cmd.OutOrStdout(), ranked)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "RANK\tDOC\tSCORE\t(%s)\n", engine.Name())
			for i, doc := range ranked {
				fmt.Fprintf(tw, "%d\t%s\t%.6f\t\n", i+1, doc.DocID, doc.Score)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "JSON corpus {docid: {term: count}}")
	cmd.Flags().StringVarP(&engineSpec, "engine", "e", "bm25", "engine (bm25, tfidf, bm25:k=1.5,b=0.6)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", ranking.DefaultTopK, "number of documents to print")
	cmd.MarkFlagRequired("corpus")
	return cmd
}

func historyCmd(a *app) *cobra.Command {
	var (
		name  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored experiment runs (requires postgres)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.Postgres.Enabled {
				return apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage, "postgres is not enabled in the configuration")
			}
			d, err := a.connect(cmd.Context())
			defer d.Close()
			if err != nil {
				return apperrors.Newf(apperrors.ErrInternal, apperrors.ExitExternal, "connecting services: %v", err)
			}
			results, err := experiment.NewPostgresStore(d.postgres).List(cmd.Context(), name, limit)
			if err != nil {
				return err
			}
			if a.format == "json" {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			for i := range results {
				if err := a.printResult(cmd.OutOrStdout(), &results[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "only runs of this experiment")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of runs")
	return cmd
}

func (a *app) printResult(w io.Writer, result *experiment.Result) error {
	if a.format == "json" {
		return writeJSON(w, result)
	}
	fmt.Fprintf(w, "experiment %s  run %s  corpus %s  (%d docs, %d queries)\n",
		result.Experiment, result.RunID, result.CorpusHash, result.Documents, result.Queries)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "ENGINE\tEVALUATED\tSKIPPED")
	metrics := evaluation.AllMetrics()
	for _, m := range metrics {
		fmt.Fprintf(tw, "\t%s", m)
	}
	fmt.Fprintln(tw)
	for _, report := range result.Reports {
		fmt.Fprintf(tw, "%s\t%d\t%d", report.Name, report.Evaluated, len(report.Skipped))
		for _, m := range metrics {
			if v, ok := report.Means[m]; ok {
				fmt.Fprintf(tw, "\t%.4f", v)
			} else {
				fmt.Fprint(tw, "\t-")
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
