package ranking

import (
	"container/heap"
)

// TopK returns the k best entries of scores in ranked order without sorting
// the whole map. Ties are broken the same way as Sorted.
func TopK(scores ScoreMap, k int) []ScoredDoc {
	if k <= 0 || len(scores) == 0 {
		return []ScoredDoc{}
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for docID, score := range scores {
		heap.Push(h, ScoredDoc{DocID: docID, Score: score})
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ScoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap on rank: the root is the worst-ranked entry,
// so popping it when the heap overflows keeps the k best.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	return ranksBefore(h[j], h[i])
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
