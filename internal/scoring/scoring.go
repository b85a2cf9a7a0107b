// Package scoring defines the contract shared by the relevance engines and
// the whitespace query tokenisation they all apply.
package scoring

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
)

// Scorer produces a fresh score for every document of its corpus.
type Scorer interface {
	// Name identifies the engine and its parameters, e.g. "bm25(k=1.2,b=0.75)".
	Name() string
	ComputeRelevanceOnCorpus(query string) (ranking.ScoreMap, error)
}

// Tokenize splits a query on whitespace. Duplicates are kept in order.
func Tokenize(query string) []string {
	return strings.Fields(query)
}
