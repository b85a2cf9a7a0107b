package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/scoring/bm25"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/tracing"
)

const (
	cacheHit      = "hit"
	cacheMiss     = "miss"
	cacheDisabled = "uncached"
)

// Runner scores every query with every engine of an experiment, evaluates
// the resulting rankings and hands the result to the optional store and
// publisher.
type Runner struct {
	evaluator *evaluation.Evaluator
	workers   int
	params    bm25.Params
	cache     *ScoreCache
	store     Store
	publisher Publisher
	metrics   *metrics.Metrics
	retry     resilience.RetryConfig
	now       func() time.Time
	newRunID  func() string
	logger    *slog.Logger
}

type Option func(*Runner)

func WithCache(c *ScoreCache) Option { return func(r *Runner) { r.cache = c } }

func WithStore(s Store) Option { return func(r *Runner) { r.store = s } }

func WithPublisher(p Publisher) Option { return func(r *Runner) { r.publisher = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(r *Runner) { r.metrics = m } }

func WithRetry(cfg resilience.RetryConfig) Option { return func(r *Runner) { r.retry = cfg } }

// WithBM25Params sets the parameters used when an engine spec leaves k or b
// unset.
func WithBM25Params(p bm25.Params) Option { return func(r *Runner) { r.params = p } }

func NewRunner(evaluator *evaluation.Evaluator, workers int, opts ...Option) *Runner {
	if workers <= 0 {
		workers = 1
	}
	r := &Runner{
		evaluator: evaluator,
		workers:   workers,
		params:    bm25.DefaultParams(),
		now:       time.Now,
		newRunID:  func() string { return uuid.NewString() },
		logger:    slog.Default().With("component", "runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metrics.New(nil)
	}
	return r
}

// Scored holds the predictions of every engine of an experiment, aligned
// with Engines.
type Scored struct {
	Stats       *corpus.Stats
	Engines     []scoring.Scorer
	Predictions []evaluation.Predictions
}

// ScoreAll builds the corpus statistics and every engine of exp and scores
// all queries with each.
func (r *Runner) ScoreAll(ctx context.Context, exp Experiment) (*Scored, error) {
	if len(exp.Engines) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage, "no engines configured")
	}
	stats, err := corpus.NewStats(exp.Corpus)
	if err != nil {
		return nil, err
	}
	scored := &Scored{Stats: stats}
	for _, spec := range exp.Engines {
		engine, err := BuildEngine(stats, spec, r.params)
		if err != nil {
			return nil, fmt.Errorf("building %s engine: %w", spec.Kind, err)
		}
		spanCtx, span := tracing.StartChild(ctx, "score")
		span.SetAttr("engine", engine.Name())
		span.SetAttr("queries", len(exp.Queries))
		preds, err := r.Score(spanCtx, engine, stats.Fingerprint(), exp.Queries)
		span.End()
		if err != nil {
			return nil, err
		}
		scored.Engines = append(scored.Engines, engine)
		scored.Predictions = append(scored.Predictions, preds)
	}
	return scored, nil
}

// Score runs engine on every query with at most the runner's worker count in
// flight. Each query gets its own ScoreMap.
func (r *Runner) Score(ctx context.Context, engine scoring.Scorer, corpusHash string, queries []dataset.Query) (evaluation.Predictions, error) {
	name := engine.Name()
	results := make([]ranking.ScoreMap, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			compute := func() (ranking.ScoreMap, error) {
				return engine.ComputeRelevanceOnCorpus(q.Text)
			}
			var (
				scores ranking.ScoreMap
				status = cacheDisabled
				err    error
			)
			if r.cache != nil {
				var hit bool
				scores, hit, err = r.cache.GetOrCompute(gctx, name, corpusHash, q.Text, compute)
				status = cacheMiss
				if hit {
					status = cacheHit
					r.metrics.CacheHitsTotal.Inc()
				} else {
					r.metrics.CacheMissesTotal.Inc()
				}
			} else {
				scores, err = compute()
			}
			if err != nil {
				return fmt.Errorf("scoring query %s with %s: %w", q.ID, name, err)
			}
			r.metrics.QueriesScoredTotal.WithLabelValues(name, status).Inc()
			r.metrics.ScoringLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
			results[i] = scores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	preds := make(evaluation.Predictions, len(queries))
	for i, q := range queries {
		preds[q.ID] = results[i]
	}
	return preds, nil
}

// Run executes exp end to end. When persisting or publishing fails the
// completed result is still returned alongside the error.
func (r *Runner) Run(ctx context.Context, exp Experiment) (*Result, error) {
	runID := r.newRunID()
	ctx = logger.WithExperiment(ctx, runID)
	log := logger.FromContext(ctx).With("component", "runner", "experiment", exp.Name)
	start := r.now()
	ctx, span := tracing.StartSpan(ctx, "experiment", runID)
	defer func() {
		span.End()
		span.Log(ctx, log)
	}()

	result, err := r.run(ctx, exp, runID, start)
	r.metrics.ExperimentDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		r.metrics.ExperimentsTotal.WithLabelValues(metrics.Status(err)).Inc()
		log.Error("experiment failed", "error", err)
		return nil, err
	}

	err = r.persist(ctx, result)
	r.metrics.ExperimentsTotal.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		log.Error("experiment finished but result delivery failed", "error", err)
		return result, err
	}
	log.Info("experiment completed",
		"engines", len(result.Reports),
		"queries", result.Queries,
		"duration", result.CompletedAt.Sub(result.StartedAt),
	)
	return result, nil
}

func (r *Runner) run(ctx context.Context, exp Experiment, runID string, start time.Time) (*Result, error) {
	scored, err := r.ScoreAll(ctx, exp)
	if err != nil {
		return nil, err
	}
	queryIDs := dataset.QueryIDs(exp.Queries)
	result := &Result{
		RunID:      runID,
		Experiment: exp.Name,
		CorpusHash: scored.Stats.Fingerprint(),
		Documents:  scored.Stats.DocumentCount(),
		Queries:    len(queryIDs),
		StartedAt:  start.UTC(),
	}
	for i, engine := range scored.Engines {
		spanCtx, span := tracing.StartChild(ctx, "evaluate")
		span.SetAttr("engine", engine.Name())
		report, err := r.evaluator.Evaluate(spanCtx, engine.Name(), queryIDs, exp.Truth, scored.Predictions[i], exp.Metrics...)
		span.End()
		if err != nil {
			return nil, err
		}
		for m, mean := range report.Means {
			r.metrics.EvaluationsTotal.WithLabelValues(string(m)).Inc()
			r.metrics.MetricValue.WithLabelValues(exp.Name+"/"+engine.Name(), string(m)).Set(mean)
		}
		result.Reports = append(result.Reports, report)
	}
	result.CompletedAt = r.now().UTC()
	return result, nil
}

func (r *Runner) persist(ctx context.Context, result *Result) error {
	ctx, span := tracing.StartChild(ctx, "persist")
	defer span.End()
	var errs []error
	if r.store != nil {
		err := resilience.Retry(ctx, "save-result", r.retry, func(ctx context.Context) error {
			return r.store.Save(ctx, result)
		})
		r.metrics.ReportsStored.WithLabelValues(metrics.Status(err)).Inc()
		if err != nil {
			errs = append(errs, fmt.Errorf("storing result: %w", err))
		}
	}
	if r.publisher != nil {
		err := resilience.Retry(ctx, "publish-result", r.retry, func(ctx context.Context) error {
			return r.publisher.Publish(ctx, result)
		})
		r.metrics.ReportsPublished.WithLabelValues(metrics.Status(err)).Inc()
		if err != nil {
			errs = append(errs, fmt.Errorf("publishing result: %w", err))
		}
	}
	return errors.Join(errs...)
}
