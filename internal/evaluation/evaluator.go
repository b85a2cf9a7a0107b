package evaluation

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

// Predictions maps a query identifier to the scores an engine produced for
// it.
type Predictions map[string]ranking.ScoreMap

// Report is the outcome of one batch evaluation.
type Report struct {
	Name      string                        `json:"name"`
	Options   Options                       `json:"options"`
	Means     map[Metric]float64            `json:"means"`
	PerQuery  map[Metric]map[string]float64 `json:"per_query"`
	Evaluated int                           `json:"evaluated"`
	Skipped   []string                      `json:"skipped,omitempty"`
}

// Evaluator scores queries in parallel and reduces the per-query values
// into one Accumulator per metric.
type Evaluator struct {
	opts    Options
	workers int
	logger  *slog.Logger
}

func NewEvaluator(opts Options, workers int) *Evaluator {
	if workers <= 0 {
		workers = 1
	}
	return &Evaluator{
		opts:    opts,
		workers: workers,
		logger:  slog.Default().With("component", "evaluator"),
	}
}

func (e *Evaluator) Options() Options {
	return e.opts
}

// Evaluate computes the requested metrics (all of them when none is given)
// for every query in queries. Queries without predictions are skipped;
// queries without judgments score 0. It fails with ErrNoQueries when no
// query could be evaluated.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	name string,
	queries []string,
	truth GroundTruth,
	preds Predictions,
	metrics ...Metric,
) (*Report, error) {
	if len(metrics) == 0 {
		metrics = AllMetrics()
	}
	for _, m := range metrics {
		if !m.IsValid() {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "unknown metric %q", m)
		}
	}

	report := &Report{
		Name:     name,
		Options:  e.opts,
		Means:    make(map[Metric]float64, len(metrics)),
		PerQuery: make(map[Metric]map[string]float64, len(metrics)),
	}
	evaluated := make([]string, 0, len(queries))
	for _, qid := range queries {
		if _, ok := preds[qid]; !ok {
			report.Skipped = append(report.Skipped, qid)
			continue
		}
		evaluated = append(evaluated, qid)
	}

	// Each worker owns one row; rows are merged after Wait.
	rows := make([][]float64, len(evaluated))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, qid := range evaluated {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			row := make([]float64, len(metrics))
			for j, m := range metrics {
				row[j] = Score(m, preds[qid], truth[qid], e.opts)
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", name, err)
	}

	for j, m := range metrics {
		acc := NewAccumulator(m)
		for i, qid := range evaluated {
			acc.Add(qid, rows[i][j])
		}
		mean, err := acc.Mean()
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", name, err)
		}
		report.Means[m] = mean
		report.PerQuery[m] = acc.Scores()
		e.logger.Info("metric computed",
			"experiment", name,
			"metric", string(m),
			"score", mean,
			"queries", acc.Len(),
		)
	}
	report.Evaluated = len(evaluated)
	if len(report.Skipped) > 0 {
		e.logger.Debug("queries without predictions skipped",
			"experiment", name,
			"skipped", len(report.Skipped),
		)
	}
	return report, nil
}

// MeanAveragePrecision evaluates MAP only.
func (e *Evaluator) MeanAveragePrecision(ctx context.Context, name string, queries []string, truth GroundTruth, preds Predictions) (float64, error) {
	return e.single(ctx, name, MetricMAP, queries, truth, preds)
}

// MeanReciprocalRank evaluates MRR only.
func (e *Evaluator) MeanReciprocalRank(ctx context.Context, name string, queries []string, truth GroundTruth, preds Predictions) (float64, error) {
	return e.single(ctx, name, MetricMRR, queries, truth, preds)
}

// MeanRPrecision evaluates R-Precision only.
func (e *Evaluator) MeanRPrecision(ctx context.Context, name string, queries []string, truth GroundTruth, preds Predictions) (float64, error) {
	return e.single(ctx, name, MetricRPrecision, queries, truth, preds)
}

func (e *Evaluator) single(ctx context.Context, name string, m Metric, queries []string, truth GroundTruth, preds Predictions) (float64, error) {
	report, err := e.Evaluate(ctx, name, queries, truth, preds, m)
	if err != nil {
		return 0, err
	}
	return report.Means[m], nil
}
