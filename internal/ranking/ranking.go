// Package ranking turns a per-query score map into the retrieved set every
// evaluation metric consumes: threshold filtering, top-k filtering and the
// ordering of a ranked list.
package ranking

import (
	"sort"
)

const (
	DefaultTopK      = 20
	DefaultThreshold = 0.0
)

// ScoreMap maps a document identifier to its relevance score for one query.
type ScoreMap map[string]float64

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// Sorted returns the entries of scores by descending score. Equal scores are
// ordered by ascending DocID so that rankings are reproducible.
func Sorted(scores ScoreMap) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		return ranksBefore(result[i], result[j])
	})
	return result
}

// ranksBefore reports whether a is ranked ahead of b.
func ranksBefore(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// FilterByThreshold keeps the entries scoring strictly above threshold.
func FilterByThreshold(scores ScoreMap, threshold float64) ScoreMap {
	filtered := make(ScoreMap)
	for docID, score := range scores {
		if score > threshold {
			filtered[docID] = score
		}
	}
	return filtered
}

// FilterByTopK keeps the min(topK, len(scores)) best entries. A topK of zero
// or less keeps nothing.
func FilterByTopK(scores ScoreMap, topK int) ScoreMap {
	filtered := make(ScoreMap)
	for _, doc := range TopK(scores, topK) {
		filtered[doc.DocID] = doc.Score
	}
	return filtered
}

// FilterRankedList builds the retrieved set for one query. When topK > 0 the
// top-k of the unfiltered scores is returned and threshold is ignored;
// otherwise only threshold filtering applies.
func FilterRankedList(scores ScoreMap, topK int, threshold float64) ScoreMap {
	if topK > 0 {
		return FilterByTopK(scores, topK)
	}
	return FilterByThreshold(scores, threshold)
}

// FilterPredictedNegative keeps the entries whose score is exactly zero.
func FilterPredictedNegative(scores ScoreMap) ScoreMap {
	filtered := make(ScoreMap)
	for docID, score := range scores {
		if score == 0 {
			filtered[docID] = score
		}
	}
	return filtered
}
