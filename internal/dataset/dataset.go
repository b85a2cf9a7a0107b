// Package dataset reads the on-disk inputs of an experiment: a bag-of-words
// corpus, a query file and TREC style relevance judgments.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/evaluation"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

// Query is one line of a query file.
type Query struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ReadCorpus decodes a JSON object of the form {"docid": {"term": count}}.
func ReadCorpus(r io.Reader) (corpus.Corpus, error) {
	var c corpus.Corpus
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidCorpus, apperrors.ExitUsage, "decoding corpus: %v", err)
	}
	if c == nil {
		c = corpus.Corpus{}
	}
	return c, nil
}

// ReadQueries parses "qid<TAB>text" lines. Blank lines and lines starting
// with '#' are ignored; a repeated qid is rejected.
func ReadQueries(r io.Reader) ([]Query, error) {
	var queries []Query
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, text, ok := strings.Cut(line, "\t")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
				"queries line %d: expected qid<TAB>text", lineNo)
		}
		if _, dup := seen[id]; dup {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
				"queries line %d: duplicate qid %q", lineNo, id)
		}
		seen[id] = struct{}{}
		queries = append(queries, Query{ID: id, Text: strings.TrimSpace(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return queries, nil
}

// ReadQrels parses "qid iter docid rel" lines into per-query judgments in
// file order. The iteration column is ignored.
func ReadQrels(r io.Reader) (evaluation.GroundTruth, error) {
	truth := make(evaluation.GroundTruth)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) != 4 {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
				"qrels line %d: expected 4 fields, got %d", lineNo, len(fields))
		}
		label, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage,
				"qrels line %d: relevance %q", lineNo, fields[3])
		}
		// Negative grades (e.g. -1 for spam) count as non-relevant.
		if label < 0 {
			label = evaluation.LabelNonRelevant
		}
		j := truth[fields[0]]
		j.Add(fields[2], label)
		truth[fields[0]] = j
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading qrels: %w", err)
	}
	return truth, nil
}

// QueryIDs returns the identifiers of queries in file order.
func QueryIDs(queries []Query) []string {
	ids := make([]string, len(queries))
	for i, q := range queries {
		ids[i] = q.ID
	}
	return ids
}

func LoadCorpus(path string) (corpus.Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()
	return ReadCorpus(f)
}

func LoadQueries(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries: %w", err)
	}
	defer f.Close()
	return ReadQueries(f)
}

func LoadQrels(path string) (evaluation.GroundTruth, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening qrels: %w", err)
	}
	defer f.Close()
	return ReadQrels(f)
}
