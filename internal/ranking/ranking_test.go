package ranking

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSorted_TiesByDocID(t *testing.T) {
	scores := ScoreMap{"c": 1.0, "a": 1.0, "b": 2.0, "d": 0.5}
	got := Sorted(scores)
	want := []ScoredDoc{
		{DocID: "b", Score: 2.0},
		{DocID: "a", Score: 1.0},
		{DocID: "c", Score: 1.0},
		{DocID: "d", Score: 0.5},
	}
	assert.Equal(t, want, got)
}

func TestFilterByThreshold_IsExclusive(t *testing.T) {
	scores := ScoreMap{"a": 0.0, "b": 0.5, "c": 1.0}
	assert.Equal(t, ScoreMap{"b": 0.5, "c": 1.0}, FilterByThreshold(scores, 0.0))
	assert.Equal(t, ScoreMap{"c": 1.0}, FilterByThreshold(scores, 0.5))
	assert.Empty(t, FilterByThreshold(scores, 1.0))
}

func TestFilterByTopK_Size(t *testing.T) {
	scores := ScoreMap{"a": 3, "b": 2, "c": 1}
	tests := []struct {
		k    int
		want int
	}{
		{-1, 0},
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 3},
		{20, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("k=%d", tt.k), func(t *testing.T) {
			assert.Len(t, FilterByTopK(scores, tt.k), tt.want)
		})
	}
}

func TestFilterByTopK_KeepsBestEntries(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	scores := make(ScoreMap)
	for i := 0; i < 200; i++ {
		// few distinct values to force plenty of ties
		scores[fmt.Sprintf("doc-%03d", i)] = float64(rng.Intn(10))
	}
	for _, k := range []int{1, 5, 37, 199, 200, 500} {
		kept := FilterByTopK(scores, k)
		require.Len(t, kept, min(k, len(scores)))

		minKept := 1e18
		for _, s := range kept {
			minKept = min(minKept, s)
		}
		for docID, s := range scores {
			if _, ok := kept[docID]; !ok {
				assert.LessOrEqual(t, s, minKept, "k=%d excluded %s", k, docID)
			}
		}
	}
}

func TestTopK_MatchesSortedPrefix(t *testing.T) {
	scores := ScoreMap{"e": 1, "d": 1, "c": 2, "b": 1, "a": 3}
	full := Sorted(scores)
	for k := 1; k <= len(scores); k++ {
		assert.Equal(t, full[:k], TopK(scores, k), "k=%d", k)
	}
}

func TestFilterRankedList_TopKIgnoresThreshold(t *testing.T) {
	scores := ScoreMap{"a": 0.9, "b": 0.8, "c": 0.7, "d": 0.6, "e": 0.5, "f": 0.4, "g": 0.3}
	got := FilterRankedList(scores, 5, 100.0)
	assert.Equal(t, ScoreMap{"a": 0.9, "b": 0.8, "c": 0.7, "d": 0.6, "e": 0.5}, got)
}

func TestFilterRankedList_ThresholdWhenTopKDisabled(t *testing.T) {
	scores := ScoreMap{"a": 0.9, "b": 0.0, "c": 0.2}
	assert.Equal(t, ScoreMap{"a": 0.9, "c": 0.2}, FilterRankedList(scores, 0, 0))
	assert.Equal(t, ScoreMap{"a": 0.9}, FilterRankedList(scores, -1, 0.5))
}

func TestFilterRankedList_DoesNotMutateInput(t *testing.T) {
	scores := ScoreMap{"a": 0.9, "b": 0.0}
	_ = FilterRankedList(scores, -1, 0.5)
	_ = FilterRankedList(scores, 1, 0)
	assert.Equal(t, ScoreMap{"a": 0.9, "b": 0.0}, scores)
}

func TestFilterPredictedNegative(t *testing.T) {
	scores := ScoreMap{"a": 0.9, "b": 0.0, "c": 0.0}
	assert.Equal(t, ScoreMap{"b": 0.0, "c": 0.0}, FilterPredictedNegative(scores))
}

func BenchmarkTopKVersusSorted(b *testing.B) {
	scores := make(ScoreMap, 10000)
	for i := 0; i < 10000; i++ {
		scores[fmt.Sprintf("doc-%05d", i)] = float64((i * 7919) % 1009)
	}
	b.Run("heap", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = TopK(scores, DefaultTopK)
		}
	})
	b.Run("sort", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = Sorted(scores)[:DefaultTopK]
		}
	})
}
