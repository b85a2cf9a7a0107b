// Package evaluation computes rank-based retrieval metrics for predicted
// score maps against ground-truth judgments and aggregates them over a batch
// of queries.
//
// Every per-query metric first reduces the prediction to a retrieved set with
// ranking.FilterRankedList and walks it in ranked order. Documents missing
// from the judgment are never relevant and never an error.
package evaluation

import (
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
)

// Metric names a per-query metric and the mean reported over a batch.
type Metric string

const (
	MetricMAP        Metric = "map"
	MetricMRR        Metric = "mrr"
	MetricRPrecision   Metric = "r-prec"
	MetricPrecisionAtR Metric = "p@r"
)

// AllMetrics lists the metrics in report order.
func AllMetrics() []Metric {
	return []Metric{MetricMAP, MetricMRR, MetricRPrecision, MetricPrecisionAtR}
}

func (m Metric) IsValid() bool {
	switch m {
	case MetricMAP, MetricMRR, MetricRPrecision, MetricPrecisionAtR:
		return true
	}
	return false
}

// Options control the retrieved set. TopK > 0 takes precedence over
// Threshold.
type Options struct {
	TopK      int     `json:"top_k" yaml:"topK"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// DefaultOptions retrieves every document scoring above zero.
func DefaultOptions() Options {
	return Options{TopK: -1, Threshold: ranking.DefaultThreshold}
}

func (o Options) retrieve(predicted ranking.ScoreMap) []ranking.ScoredDoc {
	return ranking.Sorted(ranking.FilterRankedList(predicted, o.TopK, o.Threshold))
}

// AveragePrecision is the mean of the precision values taken at the rank of
// every relevant retrieved document, 0 when none is retrieved.
func AveragePrecision(predicted ranking.ScoreMap, actual Judgment, opts Options) float64 {
	labels := actual.index()
	relevant := 0
	var sum float64
	for i, doc := range opts.retrieve(predicted) {
		if labels[doc.DocID] > LabelNonRelevant {
			relevant++
			sum += float64(relevant) / float64(i+1)
		}
	}
	if relevant == 0 {
		return 0
	}
	return sum / float64(relevant)
}

// ReciprocalRank is 1/rank of the first relevant retrieved document, 0 when
// none is retrieved.
func ReciprocalRank(predicted ranking.ScoreMap, actual Judgment, opts Options) float64 {
	labels := actual.index()
	for i, doc := range opts.retrieve(predicted) {
		if labels[doc.DocID] > LabelNonRelevant {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// RPrecision is the number of relevant documents in the retrieved set divided
// by the number of relevant judgments, 0 when the judgment has no relevant
// document. Rank order inside the retrieved set does not matter.
func RPrecision(predicted ranking.ScoreMap, actual Judgment, opts Options) float64 {
	r := actual.RelevantCount()
	if r == 0 {
		return 0
	}
	retrieved := ranking.FilterRankedList(predicted, opts.TopK, opts.Threshold)
	return float64(TruePositives(retrieved, actual)) / float64(r)
}

// Recall is RPrecision under its set-retrieval name.
func Recall(predicted ranking.ScoreMap, actual Judgment, opts Options) float64 {
	return RPrecision(predicted, actual, opts)
}

// PrecisionAtR is the fraction of relevant documents among the first R
// retrieved, where R is the number of relevant judgments. It is 0 when the
// judgment has no relevant document.
func PrecisionAtR(predicted ranking.ScoreMap, actual Judgment, opts Options) float64 {
	r := actual.RelevantCount()
	if r == 0 {
		return 0
	}
	labels := actual.index()
	retrieved := opts.retrieve(predicted)
	if len(retrieved) > r {
		retrieved = retrieved[:r]
	}
	found := 0
	for _, doc := range retrieved {
		if labels[doc.DocID] > LabelNonRelevant {
			found++
		}
	}
	return float64(found) / float64(r)
}

// TruePositives counts retrieved documents judged relevant.
func TruePositives(retrieved ranking.ScoreMap, actual Judgment) int {
	labels := actual.index()
	n := 0
	for docID := range retrieved {
		if labels[docID] > LabelNonRelevant {
			n++
		}
	}
	return n
}

// FalseNegatives counts documents predicted negative that are judged
// relevant.
func FalseNegatives(predictedNegative ranking.ScoreMap, actual Judgment) int {
	return TruePositives(predictedNegative, actual)
}

// F1Score is the harmonic mean of precision and recall, 0 when both are 0.
func F1Score(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// Score computes metric m for one query.
func Score(m Metric, predicted ranking.ScoreMap, actual Judgment, opts Options) float64 {
	switch m {
	case MetricMAP:
		return AveragePrecision(predicted, actual, opts)
	case MetricMRR:
		return ReciprocalRank(predicted, actual, opts)
	case MetricRPrecision:
		return RPrecision(predicted, actual, opts)
	case MetricPrecisionAtR:
		return PrecisionAtR(predicted, actual, opts)
	default:
		return 0
	}
}
