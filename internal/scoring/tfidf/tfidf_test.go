package tfidf

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

const tolerance = 1e-9

func threeDocStats(t *testing.T) *corpus.Stats {
	t.Helper()
	stats, err := corpus.NewStats(corpus.Corpus{
		"d1": {"apple": 4, "pie": 1},
		"d2": {"apple": 1, "tart": 2},
		"d3": {"cherry": 10, "pie": 10},
	})
	require.NoError(t, err)
	return stats
}

func TestNew_RejectsEmptyCorpus(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCorpus)

	empty, err := corpus.NewStats(corpus.Corpus{})
	require.NoError(t, err)
	_, err = New(empty)
	assert.ErrorIs(t, err, apperrors.ErrEmptyCorpus)
}

func TestBuildIDFVector(t *testing.T) {
	idf := BuildIDFVector(threeDocStats(t))

	assert.Len(t, idf, 4)
	assert.InDelta(t, math.Log10(3.0/2.0), idf["apple"], tolerance)
	assert.InDelta(t, math.Log10(3.0/2.0), idf["pie"], tolerance)
	assert.InDelta(t, math.Log10(3.0), idf["tart"], tolerance)
	assert.InDelta(t, math.Log10(3.0), idf["cherry"], tolerance)
}

func TestBuildTFMatrix(t *testing.T) {
	tf := BuildTFMatrix(threeDocStats(t))

	// the most frequent term of each document normalises to 1
	assert.InDelta(t, 1.0, tf.Get("d1", "apple"), tolerance)
	assert.InDelta(t, 1.0/(1+math.Log10(4)), tf.Get("d1", "pie"), tolerance)
	assert.InDelta(t, 1.0/(1+math.Log10(2)), tf.Get("d2", "apple"), tolerance)
	assert.InDelta(t, 1.0, tf.Get("d3", "cherry"), tolerance)
	assert.InDelta(t, 1.0, tf.Get("d3", "pie"), tolerance)
}

func TestBuildTFMatrix_IsSparse(t *testing.T) {
	tf := BuildTFMatrix(threeDocStats(t))
	for docID, row := range tf {
		for term := range row {
			assert.NotZero(t, row[term], "%s/%s", docID, term)
		}
	}
	_, present := tf["d1"]["tart"]
	assert.False(t, present)
	assert.Len(t, tf["d2"], 2)
}

func TestTFIDFMatrix(t *testing.T) {
	e, err := New(threeDocStats(t))
	require.NoError(t, err)

	m := e.Matrix()
	assert.InDelta(t, math.Log10(1.5), m.Get("d1", "apple"), tolerance)
	assert.InDelta(t, math.Log10(3), m.Get("d2", "tart"), tolerance)
	assert.Equal(t, 0.0, m.Get("d1", "cherry"))
	_, present := m["d1"]["cherry"]
	assert.False(t, present)
}

func TestQueryVector_WeightsByCountAndDropsUnknown(t *testing.T) {
	e, err := New(threeDocStats(t))
	require.NoError(t, err)

	qv := e.QueryVector("apple tart apple banana")
	assert.Len(t, qv, 2)
	assert.InDelta(t, 2*math.Log10(1.5), qv["apple"], tolerance)
	assert.InDelta(t, math.Log10(3), qv["tart"], tolerance)
	_, hasBanana := qv["banana"]
	assert.False(t, hasBanana)
}

func TestQueryVector_OnlyUnknownTerms(t *testing.T) {
	e, err := New(threeDocStats(t))
	require.NoError(t, err)
	assert.Empty(t, e.QueryVector("banana kiwi"))
}

func TestComputeRelevanceOnCorpus(t *testing.T) {
	e, err := New(threeDocStats(t))
	require.NoError(t, err)

	scores, err := e.ComputeRelevanceOnCorpus("tart")
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.Equal(t, 0.0, scores["d1"])
	assert.Equal(t, 0.0, scores["d3"])
	assert.Greater(t, scores["d2"], 0.0)
	assert.LessOrEqual(t, scores["d2"], 1.0+tolerance)

	unknown, err := e.ComputeRelevanceOnCorpus("banana")
	require.NoError(t, err)
	for docID, s := range unknown {
		assert.Equal(t, 0.0, s, docID)
	}
}

func TestComputeRelevanceOnCorpus_IdenticalVectorScoresOne(t *testing.T) {
	stats, err := corpus.NewStats(corpus.Corpus{
		"d1": {"x": 1},
		"d2": {"y": 1},
	})
	require.NoError(t, err)
	e, err := New(stats)
	require.NoError(t, err)

	got, err := e.Similarity("d1", "x")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, tolerance)

	_, err = e.Similarity("d9", "x")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestTermInEveryDocumentHasNoWeight(t *testing.T) {
	stats, err := corpus.NewStats(corpus.Corpus{
		"d1": {"common": 3},
		"d2": {"common": 1},
	})
	require.NoError(t, err)
	e, err := New(stats)
	require.NoError(t, err)

	scores, err := e.ComputeRelevanceOnCorpus("common")
	require.NoError(t, err)
	assert.Equal(t, 0.0, scores["d1"])
	assert.Equal(t, 0.0, scores["d2"])
}

func BenchmarkComputeRelevanceOnCorpus(b *testing.B) {
	c := make(corpus.Corpus)
	for i := 0; i < 2000; i++ {
		c[fmt.Sprintf("doc-%d", i)] = corpus.TermCounts{
			"apple":                   1 + i%4,
			fmt.Sprintf("t%d", i%97):  2,
			fmt.Sprintf("u%d", i%211): 1,
		}
	}
	stats, err := corpus.NewStats(c)
	if err != nil {
		b.Fatal(err)
	}
	e, err := New(stats)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.ComputeRelevanceOnCorpus("apple t3 u7"); err != nil {
			b.Fatal(err)
		}
	}
}
