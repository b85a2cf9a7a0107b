// Package corpus holds a pre-tokenised document collection and answers the
// term statistics both scoring engines are built on: document length,
// average document length, term frequency, document frequency and idf.
package corpus

import (
	"crypto/sha256"
	"fmt"
	"math"
	"sort"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

// TermCounts maps a term to its number of occurrences in one document.
type TermCounts map[string]int

// Corpus maps a document identifier to its term counts.
type Corpus map[string]TermCounts

// IDFKind selects one of the two supported idf formulas.
type IDFKind int

const (
	// IDFClassic is log10(N/df), 0 when df = 0. Used by TF-IDF.
	IDFClassic IDFKind = iota
	// IDFProbabilistic is ln(1 + (N-df+0.5)/(df+0.5)). Used by BM25.
	IDFProbabilistic
)

func (k IDFKind) String() string {
	switch k {
	case IDFClassic:
		return "classic"
	case IDFProbabilistic:
		return "probabilistic"
	default:
		return "unknown"
	}
}

// Stats owns an immutable copy of a Corpus. It is safe for concurrent use
// because nothing mutates it after construction.
type Stats struct {
	docs        Corpus
	docIDs      []string
	docLengths  map[string]int
	totalLength int64

	fingerprintOnce sync.Once
	fingerprint     string
}

// NewStats validates and copies c. Negative counts and documents without a
// single positive count are rejected with ErrInvalidCorpus. Zero counts are
// dropped so that absent and zero-count terms look the same to every caller.
// An empty corpus is accepted; operations that need documents report
// ErrEmptyCorpus.
func NewStats(c Corpus) (*Stats, error) {
	s := &Stats{
		docs:       make(Corpus, len(c)),
		docIDs:     make([]string, 0, len(c)),
		docLengths: make(map[string]int, len(c)),
	}
	for docID, counts := range c {
		copied := make(TermCounts, len(counts))
		length := 0
		for term, count := range counts {
			if count < 0 {
				return nil, apperrors.Newf(apperrors.ErrInvalidCorpus, apperrors.ExitUsage,
					"document %q has negative count %d for term %q", docID, count, term)
			}
			if count == 0 {
				continue
			}
			copied[term] = count
			length += count
		}
		if length == 0 {
			return nil, apperrors.Newf(apperrors.ErrInvalidCorpus, apperrors.ExitUsage,
				"document %q has no terms", docID)
		}
		s.docs[docID] = copied
		s.docIDs = append(s.docIDs, docID)
		s.docLengths[docID] = length
		s.totalLength += int64(length)
	}
	sort.Strings(s.docIDs)
	return s, nil
}

// DocumentCount returns N, the number of documents.
func (s *Stats) DocumentCount() int {
	return len(s.docIDs)
}

// DocIDs returns the document identifiers in ascending order.
func (s *Stats) DocIDs() []string {
	out := make([]string, len(s.docIDs))
	copy(out, s.docIDs)
	return out
}

// Terms returns the counts of one document. The returned map must not be
// modified.
func (s *Stats) Terms(docID string) (TermCounts, bool) {
	counts, ok := s.docs[docID]
	return counts, ok
}

// Vocabulary returns the union of all document term sets in ascending order.
func (s *Stats) Vocabulary() []string {
	seen := make(map[string]struct{})
	for _, counts := range s.docs {
		for term := range counts {
			seen[term] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(seen))
	for term := range seen {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)
	return vocab
}

// AverageDocumentLength is the sum of all term counts divided by the number
// of documents.
func (s *Stats) AverageDocumentLength() (float64, error) {
	if len(s.docIDs) == 0 {
		return 0, fmt.Errorf("average document length: %w", apperrors.ErrEmptyCorpus)
	}
	return float64(s.totalLength) / float64(len(s.docIDs)), nil
}

// DocumentLength is the sum of term counts of docID.
func (s *Stats) DocumentLength(docID string) (float64, error) {
	length, ok := s.docLengths[docID]
	if !ok {
		return 0, apperrors.Newf(apperrors.ErrDocumentNotFound, apperrors.ExitNoData, "%q", docID)
	}
	return float64(length), nil
}

// TermFrequency returns the count of term in docID, 0 when either is absent.
func (s *Stats) TermFrequency(term, docID string) int {
	return s.docs[docID][term]
}

// DocumentFrequency counts the documents containing term by scanning the
// whole corpus.
func (s *Stats) DocumentFrequency(term string) int {
	df := 0
	for _, counts := range s.docs {
		if counts[term] > 0 {
			df++
		}
	}
	return df
}

// IDF computes the idf of term with the selected formula.
func (s *Stats) IDF(term string, kind IDFKind) float64 {
	return ComputeIDF(kind, s.DocumentCount(), s.DocumentFrequency(term))
}

// ComputeIDF applies an idf formula to a document count and a document
// frequency.
func ComputeIDF(kind IDFKind, totalDocs, docFreq int) float64 {
	n := float64(totalDocs)
	df := float64(docFreq)
	switch kind {
	case IDFProbabilistic:
		return math.Log1p((n - df + 0.5) / (df + 0.5))
	default:
		if docFreq == 0 {
			return 0
		}
		return math.Log10(n / df)
	}
}

// Fingerprint is a content hash of the corpus, stable across runs and map
// iteration order. Cached score maps are keyed by it.
func (s *Stats) Fingerprint() string {
	s.fingerprintOnce.Do(func() {
		h := sha256.New()
		for _, docID := range s.docIDs {
			counts := s.docs[docID]
			terms := make([]string, 0, len(counts))
			for term := range counts {
				terms = append(terms, term)
			}
			sort.Strings(terms)
			fmt.Fprintf(h, "%q\n", docID)
			for _, term := range terms {
				fmt.Fprintf(h, "%q=%d\n", term, counts[term])
			}
		}
		s.fingerprint = fmt.Sprintf("%x", h.Sum(nil)[:16])
	})
	return s.fingerprint
}
