package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
)

const floatTolerance = 1e-9

func mustJudgment(t *testing.T, docIDs []string, labels []int) Judgment {
	t.Helper()
	j, err := NewJudgment(docIDs, labels)
	require.NoError(t, err)
	return j
}

// --- worked example: d1 relevant, d2 not, d3 relevant ---

func workedExample(t *testing.T) (ranking.ScoreMap, Judgment) {
	return ranking.ScoreMap{"d1": 0.9, "d2": 0.5, "d3": 0.1},
		mustJudgment(t, []string{"d1", "d2", "d3"}, []int{1, 0, 1})
}

func TestWorkedExample_AveragePrecision(t *testing.T) {
	pred, truth := workedExample(t)
	got := AveragePrecision(pred, truth, DefaultOptions())
	assert.InDelta(t, (1.0/1.0+2.0/3.0)/2, got, floatTolerance)
	assert.InDelta(t, 0.8333333333, got, 1e-9)
}

func TestWorkedExample_ReciprocalRank(t *testing.T) {
	pred, truth := workedExample(t)
	assert.InDelta(t, 1.0, ReciprocalRank(pred, truth, DefaultOptions()), floatTolerance)
}

func TestWorkedExample_RPrecision(t *testing.T) {
	pred, truth := workedExample(t)
	// both relevant documents (d1, d3) are in the retrieved set
	assert.InDelta(t, 1.0, RPrecision(pred, truth, DefaultOptions()), floatTolerance)
	assert.InDelta(t, 1.0, RPrecision(pred, truth, Options{TopK: 20}), floatTolerance)
}

func TestWorkedExample_Recall(t *testing.T) {
	pred, truth := workedExample(t)
	assert.InDelta(t, 1.0, Recall(pred, truth, DefaultOptions()), floatTolerance)
}

func TestWorkedExample_PrecisionAtR(t *testing.T) {
	pred, truth := workedExample(t)
	// R = 2; the first two retrieved are d1 (relevant) and d2 (not)
	assert.InDelta(t, 0.5, PrecisionAtR(pred, truth, DefaultOptions()), floatTolerance)
}

// --- AveragePrecision ---

func TestAveragePrecision_PerfectRanking(t *testing.T) {
	pred := ranking.ScoreMap{"r1": 0.9, "r2": 0.8, "r3": 0.7, "n1": 0.2, "n2": 0.1}
	truth := mustJudgment(t, []string{"r1", "r2", "r3", "n1", "n2"}, []int{1, 2, 1, 0, 0})
	assert.InDelta(t, 1.0, AveragePrecision(pred, truth, DefaultOptions()), floatTolerance)
}

func TestAveragePrecision_NoRelevantRetrieved(t *testing.T) {
	pred := ranking.ScoreMap{"a": 0.9, "b": 0.8}
	truth := mustJudgment(t, []string{"a", "b", "c"}, []int{0, 0, 1})
	assert.Equal(t, 0.0, AveragePrecision(pred, truth, DefaultOptions()))
}

func TestAveragePrecision_EmptyPrediction(t *testing.T) {
	truth := mustJudgment(t, []string{"a"}, []int{1})
	assert.Equal(t, 0.0, AveragePrecision(ranking.ScoreMap{}, truth, DefaultOptions()))
}

func TestAveragePrecision_UnjudgedDocumentsIgnored(t *testing.T) {
	// x is not in the judgment; it still occupies rank 1
	pred := ranking.ScoreMap{"x": 0.9, "a": 0.8}
	truth := mustJudgment(t, []string{"a"}, []int{1})
	assert.InDelta(t, 0.5, AveragePrecision(pred, truth, DefaultOptions()), floatTolerance)
}

func TestAveragePrecision_ThresholdDropsZeroScores(t *testing.T) {
	pred := ranking.ScoreMap{"a": 0.0, "b": 0.5}
	truth := mustJudgment(t, []string{"a", "b"}, []int{1, 0})
	assert.Equal(t, 0.0, AveragePrecision(pred, truth, DefaultOptions()))
}

func TestAveragePrecision_TopKIncludesZeroScores(t *testing.T) {
	pred := ranking.ScoreMap{"a": 0.0, "b": 0.5}
	truth := mustJudgment(t, []string{"a", "b"}, []int{1, 0})
	got := AveragePrecision(pred, truth, Options{TopK: 2, Threshold: 10})
	assert.InDelta(t, 0.5, got, floatTolerance)
}

// --- ReciprocalRank ---

func TestReciprocalRank_FirstRelevantAtRankN(t *testing.T) {
	pred := ranking.ScoreMap{"a": 0.9, "b": 0.8, "c": 0.7, "d": 0.6}
	for n, docID := range []string{"a", "b", "c", "d"} {
		truth := mustJudgment(t, []string{docID}, []int{1})
		assert.InDelta(t, 1.0/float64(n+1), ReciprocalRank(pred, truth, DefaultOptions()), floatTolerance, "rank %d", n+1)
	}
}

func TestReciprocalRank_NoneRetrieved(t *testing.T) {
	pred := ranking.ScoreMap{"a": 0.9, "b": 0.8}
	truth := mustJudgment(t, []string{"c"}, []int{1})
	assert.Equal(t, 0.0, ReciprocalRank(pred, truth, DefaultOptions()))
}

func TestReciprocalRank_OutsideTopK(t *testing.T) {
	pred := ranking.ScoreMap{"a": 0.9, "b": 0.8, "c": 0.7}
	truth := mustJudgment(t, []string{"c"}, []int{1})
	assert.Equal(t, 0.0, ReciprocalRank(pred, truth, Options{TopK: 2}))
}

func TestReciprocalRank_TiesBrokenByDocID(t *testing.T) {
	pred := ranking.ScoreMap{"b": 0.5, "a": 0.5}
	truth := mustJudgment(t, []string{"b"}, []int{1})
	assert.InDelta(t, 0.5, ReciprocalRank(pred, truth, DefaultOptions()), floatTolerance)
}

// --- RPrecision ---

func TestRPrecision_AllRelevantRetrievedFirst(t *testing.T) {
	pred := ranking.ScoreMap{"r1": 0.9, "r2": 0.8, "n1": 0.3}
	truth := mustJudgment(t, []string{"r1", "r2", "n1"}, []int{1, 1, 0})
	assert.InDelta(t, 1.0, RPrecision(pred, truth, DefaultOptions()), floatTolerance)
}

func TestRPrecision_NoRelevantJudgments(t *testing.T) {
	pred := ranking.ScoreMap{"a": 0.9}
	truth := mustJudgment(t, []string{"a"}, []int{0})
	assert.Equal(t, 0.0, RPrecision(pred, truth, DefaultOptions()))
	assert.Equal(t, 0.0, Recall(pred, truth, DefaultOptions()))
}

func TestRPrecision_FewerRetrievedThanRelevant(t *testing.T) {
	pred := ranking.ScoreMap{"r1": 0.9}
	truth := mustJudgment(t, []string{"r1", "r2", "r3"}, []int{1, 1, 1})
	assert.InDelta(t, 1.0/3.0, RPrecision(pred, truth, DefaultOptions()), floatTolerance)
}

func TestRPrecision_IgnoresRankInsideRetrievedSet(t *testing.T) {
	// the only relevant document is ranked last; it still counts
	pred := ranking.ScoreMap{"n1": 0.9, "n2": 0.8, "r1": 0.1}
	truth := mustJudgment(t, []string{"n1", "n2", "r1"}, []int{0, 0, 2})
	assert.InDelta(t, 1.0, RPrecision(pred, truth, DefaultOptions()), floatTolerance)
	assert.Equal(t, 0.0, RPrecision(pred, truth, Options{TopK: 2}))
	assert.Equal(t, 0.0, PrecisionAtR(pred, truth, DefaultOptions()))
}

func TestRPrecision_GradedLabelsCountOnce(t *testing.T) {
	pred := ranking.ScoreMap{"a": 0.9, "b": 0.8}
	truth := mustJudgment(t, []string{"a", "b", "c"}, []int{2, 1, 0})
	assert.Equal(t, 2, truth.RelevantCount())
	assert.InDelta(t, 1.0, RPrecision(pred, truth, DefaultOptions()), floatTolerance)
}

// --- PrecisionAtR ---

func TestPrecisionAtR_CutsAtRelevantCount(t *testing.T) {
	pred := ranking.ScoreMap{"r1": 0.9, "n1": 0.8, "r2": 0.7, "r3": 0.6}
	truth := mustJudgment(t, []string{"r1", "r2", "r3", "n1"}, []int{1, 1, 1, 0})
	// first three are r1, n1, r2
	assert.InDelta(t, 2.0/3.0, PrecisionAtR(pred, truth, DefaultOptions()), floatTolerance)
	assert.InDelta(t, 1.0, RPrecision(pred, truth, DefaultOptions()), floatTolerance)
}

func TestPrecisionAtR_NoRelevantJudgments(t *testing.T) {
	pred := ranking.ScoreMap{"a": 0.9}
	truth := mustJudgment(t, []string{"a"}, []int{0})
	assert.Equal(t, 0.0, PrecisionAtR(pred, truth, DefaultOptions()))
}

// --- confusion counts ---

func TestTruePositivesAndFalseNegatives(t *testing.T) {
	pred := ranking.ScoreMap{"a": 0.9, "b": 0.0, "c": 0.4, "d": 0.0, "x": 0.2}
	truth := mustJudgment(t, []string{"a", "b", "c", "d"}, []int{1, 2, 0, 0})

	retrieved := ranking.FilterByThreshold(pred, 0)
	assert.Equal(t, 1, TruePositives(retrieved, truth))
	assert.Equal(t, 1, FalseNegatives(ranking.FilterPredictedNegative(pred), truth))
}

func TestF1Score(t *testing.T) {
	assert.Equal(t, 0.0, F1Score(0, 0))
	assert.InDelta(t, 0.5, F1Score(0.5, 0.5), floatTolerance)
	assert.InDelta(t, 2*0.25*1/(1.25), F1Score(0.25, 1), floatTolerance)
}

// --- judgments ---

func TestNewJudgment_MismatchedColumns(t *testing.T) {
	_, err := NewJudgment([]string{"a", "b"}, []int{1})
	assert.Error(t, err)
}

func TestJudgment_LabelUsesFirstOccurrence(t *testing.T) {
	j := mustJudgment(t, []string{"a", "b", "a"}, []int{0, 2, 1})
	label, ok := j.Label("a")
	assert.True(t, ok)
	assert.Equal(t, 0, label)
	assert.False(t, j.IsRelevant("a"))
	assert.True(t, j.IsRelevant("b"))
	_, ok = j.Label("zzz")
	assert.False(t, ok)
	assert.Equal(t, 2, j.RelevantCount())
}

func TestScore_DispatchesByMetric(t *testing.T) {
	pred, truth := workedExample(t)
	opts := DefaultOptions()
	assert.Equal(t, AveragePrecision(pred, truth, opts), Score(MetricMAP, pred, truth, opts))
	assert.Equal(t, ReciprocalRank(pred, truth, opts), Score(MetricMRR, pred, truth, opts))
	assert.Equal(t, RPrecision(pred, truth, opts), Score(MetricRPrecision, pred, truth, opts))
	assert.Equal(t, PrecisionAtR(pred, truth, opts), Score(MetricPrecisionAtR, pred, truth, opts))
	assert.Equal(t, 0.0, Score(Metric("recall"), pred, truth, opts))
}
