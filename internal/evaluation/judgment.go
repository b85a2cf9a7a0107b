package evaluation

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

// Relevance labels used in judgments.
const (
	LabelNonRelevant      = 0
	LabelRelevant         = 1
	LabelStronglyRelevant = 2
)

// Judgment is the ground truth of one query: document identifiers and their
// relevance labels, aligned by position.
type Judgment struct {
	DocIDs []string `json:"doc_ids"`
	Labels []int    `json:"labels"`
}

// GroundTruth maps a query identifier to its judgment.
type GroundTruth map[string]Judgment

// NewJudgment checks that both columns have the same length.
func NewJudgment(docIDs []string, labels []int) (Judgment, error) {
	if len(docIDs) != len(labels) {
		return Judgment{}, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"judgment has %d documents but %d labels", len(docIDs), len(labels))
	}
	return Judgment{DocIDs: docIDs, Labels: labels}, nil
}

// Add appends one judged document.
func (j *Judgment) Add(docID string, label int) {
	j.DocIDs = append(j.DocIDs, docID)
	j.Labels = append(j.Labels, label)
}

// Len is the number of judged documents.
func (j Judgment) Len() int {
	return min(len(j.DocIDs), len(j.Labels))
}

// Label returns the label of the first occurrence of docID. Unjudged
// documents report ok = false.
func (j Judgment) Label(docID string) (label int, ok bool) {
	for i := 0; i < j.Len(); i++ {
		if j.DocIDs[i] == docID {
			return j.Labels[i], true
		}
	}
	return 0, false
}

// IsRelevant reports whether docID is judged with a positive label.
func (j Judgment) IsRelevant(docID string) bool {
	label, ok := j.Label(docID)
	return ok && label > LabelNonRelevant
}

// RelevantCount is the number of judged documents with a positive label.
// Graded labels count once each, whatever their grade, and the same label > 0
// rule decides hits in every metric.
func (j Judgment) RelevantCount() int {
	n := 0
	for i := 0; i < j.Len(); i++ {
		if j.Labels[i] > LabelNonRelevant {
			n++
		}
	}
	return n
}

// index builds a first-occurrence lookup so metrics walk a ranked list in
// linear time.
func (j Judgment) index() map[string]int {
	idx := make(map[string]int, j.Len())
	for i := 0; i < j.Len(); i++ {
		if _, seen := idx[j.DocIDs[i]]; !seen {
			idx[j.DocIDs[i]] = j.Labels[i]
		}
	}
	return idx
}
