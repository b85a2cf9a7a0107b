// Package tfidf builds a sparse tf-idf weight matrix from corpus statistics
// and scores documents by cosine similarity with a weighted query vector.
//
// Term frequencies are normalised by the most frequent term of each document:
//
//	tf(t, d) = (1 + log10(count(t, d))) / (1 + log10(max count in d))
//
// and weighted by the classic idf log10(N / df).
package tfidf

import (
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/scoring"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

// IDFVector maps each vocabulary term to its classic idf weight.
type IDFVector map[string]float64

// Matrix is a sparse document × term weight matrix. Only terms present in a
// document have an entry; there are no explicit zeros for absent terms.
type Matrix map[string]map[string]float64

// Get returns the weight at (docID, term), 0 when absent.
func (m Matrix) Get(docID, term string) float64 {
	return m[docID][term]
}

type Engine struct {
	idf     IDFVector
	weights Matrix
	norms   map[string]float64
}

var _ scoring.Scorer = (*Engine)(nil)

// New builds the idf vector and the tf-idf matrix once. A nil or empty corpus
// is rejected.
func New(stats *corpus.Stats) (*Engine, error) {
	if stats == nil || stats.DocumentCount() == 0 {
		return nil, apperrors.New(apperrors.ErrEmptyCorpus, apperrors.ExitNoData,
			"tf-idf needs a corpus to initialise")
	}
	idf := BuildIDFVector(stats)
	weights := BuildTFIDFMatrix(BuildTFMatrix(stats), idf)
	norms := make(map[string]float64, len(weights))
	for docID, row := range weights {
		norms[docID] = l2Norm(row)
	}
	return &Engine{idf: idf, weights: weights, norms: norms}, nil
}

func (e *Engine) Name() string {
	return "tfidf"
}

// IDF returns the idf vector. It must not be modified.
func (e *Engine) IDF() IDFVector {
	return e.idf
}

// Matrix returns the tf-idf matrix. It must not be modified.
func (e *Engine) Matrix() Matrix {
	return e.weights
}

// BuildIDFVector computes the classic idf of every term in the vocabulary.
func BuildIDFVector(stats *corpus.Stats) IDFVector {
	docFreq := make(map[string]int)
	for _, docID := range stats.DocIDs() {
		terms, _ := stats.Terms(docID)
		for term := range terms {
			docFreq[term]++
		}
	}
	idf := make(IDFVector, len(docFreq))
	for term, df := range docFreq {
		idf[term] = corpus.ComputeIDF(corpus.IDFClassic, stats.DocumentCount(), df)
	}
	return idf
}

// BuildTFMatrix computes the max-normalised log term frequency of every
// present term of every document.
func BuildTFMatrix(stats *corpus.Stats) Matrix {
	tf := make(Matrix, stats.DocumentCount())
	for _, docID := range stats.DocIDs() {
		terms, _ := stats.Terms(docID)
		maxCount := 0
		for _, count := range terms {
			maxCount = max(maxCount, count)
		}
		denominator := 1 + math.Log10(float64(maxCount))
		row := make(map[string]float64, len(terms))
		for term, count := range terms {
			row[term] = (1 + math.Log10(float64(count))) / denominator
		}
		tf[docID] = row
	}
	return tf
}

// BuildTFIDFMatrix multiplies every tf entry by the idf of its term.
func BuildTFIDFMatrix(tf Matrix, idf IDFVector) Matrix {
	weights := make(Matrix, len(tf))
	for docID, row := range tf {
		weighted := make(map[string]float64, len(row))
		for term, value := range row {
			weighted[term] = value * idf[term]
		}
		weights[docID] = weighted
	}
	return weights
}

// QueryVector weights each distinct query term by idf × occurrences in the
// query. Terms outside the vocabulary are dropped.
func (e *Engine) QueryVector(query string) map[string]float64 {
	counts := make(map[string]int)
	for _, term := range scoring.Tokenize(query) {
		counts[term]++
	}
	vector := make(map[string]float64, len(counts))
	for term, count := range counts {
		idf, ok := e.idf[term]
		if !ok {
			continue
		}
		vector[term] = idf * float64(count)
	}
	return vector
}

// ComputeRelevanceOnCorpus scores every document by the cosine similarity of
// its tf-idf row and the query vector. Documents score 0 when either vector
// has zero length.
func (e *Engine) ComputeRelevanceOnCorpus(query string) (ranking.ScoreMap, error) {
	qv := e.QueryVector(query)
	qNorm := l2Norm(qv)
	scores := make(ranking.ScoreMap, len(e.weights))
	for docID := range e.weights {
		scores[docID] = e.cosine(docID, qv, qNorm)
	}
	return scores, nil
}

// Similarity is the cosine similarity of one document and the query.
func (e *Engine) Similarity(docID, query string) (float64, error) {
	if _, ok := e.weights[docID]; !ok {
		return 0, fmt.Errorf("tf-idf similarity: %w",
			apperrors.Newf(apperrors.ErrDocumentNotFound, apperrors.ExitNoData, "%q", docID))
	}
	qv := e.QueryVector(query)
	return e.cosine(docID, qv, l2Norm(qv)), nil
}

func (e *Engine) cosine(docID string, qv map[string]float64, qNorm float64) float64 {
	dNorm := e.norms[docID]
	if qNorm == 0 || dNorm == 0 {
		return 0
	}
	row := e.weights[docID]
	var dot float64
	for term, qw := range qv {
		dot += qw * row[term]
	}
	return dot / (qNorm * dNorm)
}

func l2Norm(v map[string]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
