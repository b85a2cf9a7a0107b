package evaluation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

func TestAccumulator_Mean(t *testing.T) {
	acc := NewAccumulator(MetricMAP)
	acc.Add("q1", 1.0)
	acc.Add("q2", 0.5)
	acc.Add("q3", 0.0)

	mean, err := acc.Mean()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mean, floatTolerance)
	assert.Equal(t, 3, acc.Len())
}

func TestAccumulator_AddReplaces(t *testing.T) {
	acc := NewAccumulator(MetricMRR)
	acc.Add("q1", 1.0)
	acc.Add("q1", 0.0)
	mean, err := acc.Mean()
	require.NoError(t, err)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, map[string]float64{"q1": 0.0}, acc.Scores())
}

func TestAccumulator_EmptyMeanFails(t *testing.T) {
	_, err := NewAccumulator(MetricRPrecision).Mean()
	assert.ErrorIs(t, err, apperrors.ErrNoQueries)
}

func batchFixture() ([]string, GroundTruth, Predictions) {
	queries := []string{"q1", "q2", "q3", "q4"}
	truth := GroundTruth{
		"q1": {DocIDs: []string{"d1", "d2", "d3"}, Labels: []int{1, 0, 1}},
		"q2": {DocIDs: []string{"d1", "d2"}, Labels: []int{0, 1}},
		// q3 has predictions but no judgments
		"q4": {DocIDs: []string{"d1"}, Labels: []int{1}},
	}
	preds := Predictions{
		"q1": {"d1": 0.9, "d2": 0.5, "d3": 0.1},
		"q2": {"d1": 0.9, "d2": 0.5},
		"q3": {"d1": 0.3},
		// q4 has no predictions and is skipped
	}
	return queries, truth, preds
}

func TestEvaluate_Batch(t *testing.T) {
	queries, truth, preds := batchFixture()
	e := NewEvaluator(DefaultOptions(), 3)

	report, err := e.Evaluate(context.Background(), "bm25", queries, truth, preds)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Evaluated)
	assert.Equal(t, []string{"q4"}, report.Skipped)

	// q1 = 5/6, q2 = 1/2, q3 = 0
	assert.InDelta(t, (5.0/6.0+0.5+0)/3, report.Means[MetricMAP], floatTolerance)
	// q1 = 1, q2 = 1/2, q3 = 0
	assert.InDelta(t, 0.5, report.Means[MetricMRR], floatTolerance)
	// q1 = 2/2, q2 = 1/1, q3 = 0
	assert.InDelta(t, 2.0/3.0, report.Means[MetricRPrecision], floatTolerance)
	// q1 = 1/2, q2 = 0 (top-1 is d1, non relevant), q3 = 0
	assert.InDelta(t, 0.5/3, report.Means[MetricPrecisionAtR], floatTolerance)

	assert.Len(t, report.PerQuery[MetricMAP], 3)
	assert.Equal(t, 0.0, report.PerQuery[MetricMAP]["q3"])
}

func TestEvaluate_SelectedMetricsOnly(t *testing.T) {
	queries, truth, preds := batchFixture()
	report, err := NewEvaluator(DefaultOptions(), 1).Evaluate(context.Background(), "x", queries, truth, preds, MetricMRR)
	require.NoError(t, err)
	assert.Len(t, report.Means, 1)
	assert.Contains(t, report.Means, MetricMRR)
}

func TestEvaluate_ParallelMatchesSequential(t *testing.T) {
	queries := make([]string, 0, 200)
	truth := make(GroundTruth)
	preds := make(Predictions)
	for i := 0; i < 200; i++ {
		qid := fmt.Sprintf("q%03d", i)
		queries = append(queries, qid)
		scores := make(ranking.ScoreMap)
		var j Judgment
		for d := 0; d < 15; d++ {
			docID := fmt.Sprintf("d%02d", d)
			scores[docID] = float64((i*7+d*13)%17) / 17
			j.Add(docID, (i+d)%3%2)
		}
		preds[qid] = scores
		truth[qid] = j
	}

	seq, err := NewEvaluator(Options{TopK: 10}, 1).Evaluate(context.Background(), "seq", queries, truth, preds)
	require.NoError(t, err)
	par, err := NewEvaluator(Options{TopK: 10}, 8).Evaluate(context.Background(), "par", queries, truth, preds)
	require.NoError(t, err)

	assert.Equal(t, seq.Means, par.Means)
	assert.Equal(t, seq.PerQuery, par.PerQuery)
}

func TestEvaluate_NoQueriesFails(t *testing.T) {
	_, err := NewEvaluator(DefaultOptions(), 2).Evaluate(context.Background(), "empty",
		[]string{"q1"}, GroundTruth{}, Predictions{})
	assert.ErrorIs(t, err, apperrors.ErrNoQueries)
}

func TestEvaluate_UnknownMetric(t *testing.T) {
	queries, truth, preds := batchFixture()
	_, err := NewEvaluator(DefaultOptions(), 1).Evaluate(context.Background(), "x", queries, truth, preds, Metric("ndcg"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEvaluate_CancelledContext(t *testing.T) {
	queries, truth, preds := batchFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEvaluator(DefaultOptions(), 1).Evaluate(ctx, "x", queries, truth, preds)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSingleMetricHelpers(t *testing.T) {
	queries, truth, preds := batchFixture()
	e := NewEvaluator(DefaultOptions(), 2)
	ctx := context.Background()

	mapScore, err := e.MeanAveragePrecision(ctx, "x", queries, truth, preds)
	require.NoError(t, err)
	assert.InDelta(t, (5.0/6.0+0.5)/3, mapScore, floatTolerance)

	mrr, err := e.MeanReciprocalRank(ctx, "x", queries, truth, preds)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mrr, floatTolerance)

	rprec, err := e.MeanRPrecision(ctx, "x", queries, truth, preds)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, rprec, floatTolerance)
}
