package bm25

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/scoring"
)

const (
	DefaultK = 1.2
	DefaultB = 0.75
)

// Params are the BM25 tuning knobs. Values outside the usual ranges
// (k in [1.2, 2.0], b in [0.5, 0.8]) are accepted as-is.
type Params struct {
	K float64 `json:"k" yaml:"k"`
	B float64 `json:"b" yaml:"b"`
}

func DefaultParams() Params {
	return Params{K: DefaultK, B: DefaultB}
}

type Engine struct {
	stats  *corpus.Stats
	params Params
}

var _ scoring.Scorer = (*Engine)(nil)

func New(stats *corpus.Stats, params Params) *Engine {
	return &Engine{stats: stats, params: params}
}

func (e *Engine) Name() string {
	return fmt.Sprintf("bm25(k=%g,b=%g)", e.params.K, e.params.B)
}

func (e *Engine) Params() Params {
	return e.params
}

// Relevance scores one document against a whitespace separated query. Every
// query token contributes separately, so a repeated term is counted once per
// occurrence.
func (e *Engine) Relevance(docID string, query string) (float64, error) {
	docLength, err := e.stats.DocumentLength(docID)
	if err != nil {
		return 0, fmt.Errorf("bm25 relevance: %w", err)
	}
	avgDocLength, err := e.stats.AverageDocumentLength()
	if err != nil {
		return 0, fmt.Errorf("bm25 relevance: %w", err)
	}
	var score float64
	for _, term := range scoring.Tokenize(query) {
		tf := float64(e.stats.TermFrequency(term, docID))
		idf := e.stats.IDF(term, corpus.IDFProbabilistic)
		score += idf * e.tfNorm(tf, docLength, avgDocLength)
	}
	return score, nil
}

// ComputeRelevanceOnCorpus scores every document of the corpus. The idf of
// each distinct query term is computed once per call.
func (e *Engine) ComputeRelevanceOnCorpus(query string) (ranking.ScoreMap, error) {
	avgDocLength, err := e.stats.AverageDocumentLength()
	if err != nil {
		return nil, fmt.Errorf("bm25 scoring: %w", err)
	}
	terms := scoring.Tokenize(query)
	idf := make(map[string]float64, len(terms))
	for _, term := range terms {
		if _, ok := idf[term]; !ok {
			idf[term] = e.stats.IDF(term, corpus.IDFProbabilistic)
		}
	}
	scores := make(ranking.ScoreMap, e.stats.DocumentCount())
	for _, docID := range e.stats.DocIDs() {
		docLength, err := e.stats.DocumentLength(docID)
		if err != nil {
			return nil, fmt.Errorf("bm25 scoring: %w", err)
		}
		var score float64
		for _, term := range terms {
			tf := float64(e.stats.TermFrequency(term, docID))
			score += idf[term] * e.tfNorm(tf, docLength, avgDocLength)
		}
		scores[docID] = score
	}
	return scores, nil
}

// tfNorm is the saturated, length-normalised term frequency. A zero tf
// yields exactly zero.
func (e *Engine) tfNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if termFreq == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + e.params.K*(1-e.params.B+e.params.B*lengthRatio)
	return (termFreq * (e.params.K + 1)) / denominator
}
