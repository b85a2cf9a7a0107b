package evaluation

import (
	"fmt"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

// Accumulator collects per-query scores of one metric during a batch and
// reduces them to their mean. It is not safe for concurrent writers; the
// Evaluator merges worker results into it from a single goroutine.
type Accumulator struct {
	metric Metric
	scores map[string]float64
}

func NewAccumulator(metric Metric) *Accumulator {
	return &Accumulator{
		metric: metric,
		scores: make(map[string]float64),
	}
}

func (a *Accumulator) Metric() Metric {
	return a.metric
}

// Add records the score of query qid, replacing an earlier one.
func (a *Accumulator) Add(qid string, score float64) {
	a.scores[qid] = score
}

// Len is the number of queries that contributed a score.
func (a *Accumulator) Len() int {
	return len(a.scores)
}

// Scores returns a copy of the per-query scores.
func (a *Accumulator) Scores() map[string]float64 {
	out := make(map[string]float64, len(a.scores))
	for qid, s := range a.scores {
		out[qid] = s
	}
	return out
}

// Mean is the arithmetic mean of the recorded scores. With no recorded
// query it fails with ErrNoQueries instead of dividing by zero.
func (a *Accumulator) Mean() (float64, error) {
	if len(a.scores) == 0 {
		return 0, fmt.Errorf("%s mean: %w", a.metric, apperrors.ErrNoQueries)
	}
	qids := make([]string, 0, len(a.scores))
	for qid := range a.scores {
		qids = append(qids, qid)
	}
	// fixed summation order keeps the mean bit-for-bit reproducible
	sort.Strings(qids)
	var sum float64
	for _, qid := range qids {
		sum += a.scores[qid]
	}
	return sum / float64(len(qids)), nil
}
