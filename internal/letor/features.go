// Package letor exports engine scores as learning-to-rank feature files and
// drives an external ranking-model trainer over them.
//
// A feature file has one row per judged (query, document) pair:
//
//	<label> qid:<qid> 1:<v1> 2:<v2> ... N:<vN> # <docid>
//
// where feature i is the document's score under the i-th engine.
package letor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/evaluation"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

// FeatureRow is one line of a feature file.
type FeatureRow struct {
	Label    int
	QID      string
	Features []float64
	DocID    string
}

// BuildFeatureRows emits one row per judged document of every query in
// queries, in query order then judgment order. Feature i is the score of the
// document in features[i]; missing scores are 0.
func BuildFeatureRows(queries []string, truth evaluation.GroundTruth, features []evaluation.Predictions) []FeatureRow {
	rows := make([]FeatureRow, 0)
	for _, qid := range queries {
		judgment, ok := truth[qid]
		if !ok {
			continue
		}
		for i := 0; i < judgment.Len(); i++ {
			docID := judgment.DocIDs[i]
			values := make([]float64, len(features))
			for f, preds := range features {
				values[f] = preds[qid][docID]
			}
			rows = append(rows, FeatureRow{
				Label:    judgment.Labels[i],
				QID:      qid,
				Features: values,
				DocID:    docID,
			})
		}
	}
	return rows
}

// WriteFeatures writes rows in feature-file format.
func WriteFeatures(w io.Writer, rows []FeatureRow) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		if strings.ContainsAny(row.QID, " \t") {
			return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "qid %q contains whitespace", row.QID)
		}
		var sb strings.Builder
		sb.WriteString(strconv.Itoa(row.Label))
		sb.WriteString(" qid:")
		sb.WriteString(row.QID)
		for i, v := range row.Features {
			fmt.Fprintf(&sb, " %d:%s", i+1, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if row.DocID != "" {
			sb.WriteString(" # ")
			sb.WriteString(row.DocID)
		}
		sb.WriteByte('\n')
		if _, err := bw.WriteString(sb.String()); err != nil {
			return fmt.Errorf("writing feature row: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing feature file: %w", err)
	}
	return nil
}

// ReadFeatures parses a feature file. Feature indices may be sparse; absent
// indices read as 0 and every row is padded to the largest index seen.
func ReadFeatures(r io.Reader) ([]FeatureRow, error) {
	var rows []FeatureRow
	maxIndex := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		row, n, err := parseFeatureLine(line)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "line %d: %v", lineNo, err)
		}
		maxIndex = max(maxIndex, n)
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading feature file: %w", err)
	}
	for i := range rows {
		if len(rows[i].Features) < maxIndex {
			padded := make([]float64, maxIndex)
			copy(padded, rows[i].Features)
			rows[i].Features = padded
		}
	}
	return rows, nil
}

func parseFeatureLine(line string) (FeatureRow, int, error) {
	var row FeatureRow
	body := line
	if idx := strings.Index(line, "#"); idx >= 0 {
		row.DocID = strings.TrimSpace(line[idx+1:])
		body = line[:idx]
	}
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return row, 0, fmt.Errorf("expected label and qid, got %q", body)
	}
	label, err := strconv.Atoi(fields[0])
	if err != nil {
		return row, 0, fmt.Errorf("label %q: %w", fields[0], err)
	}
	row.Label = label
	qid, ok := strings.CutPrefix(fields[1], "qid:")
	if !ok || qid == "" {
		return row, 0, fmt.Errorf("expected qid:<id>, got %q", fields[1])
	}
	row.QID = qid

	values := make(map[int]float64, len(fields)-2)
	maxIndex := 0
	for _, field := range fields[2:] {
		key, val, ok := strings.Cut(field, ":")
		if !ok {
			return row, 0, fmt.Errorf("feature %q is not index:value", field)
		}
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 1 {
			return row, 0, fmt.Errorf("feature index %q must be a positive integer", key)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return row, 0, fmt.Errorf("feature value %q: %w", val, err)
		}
		values[idx] = v
		maxIndex = max(maxIndex, idx)
	}
	row.Features = make([]float64, maxIndex)
	for idx, v := range values {
		row.Features[idx-1] = v
	}
	return row, maxIndex, nil
}

// QueryIDs returns the distinct qids of rows in order of first appearance.
func QueryIDs(rows []FeatureRow) []string {
	seen := make(map[string]struct{})
	var qids []string
	for _, row := range rows {
		if _, ok := seen[row.QID]; ok {
			continue
		}
		seen[row.QID] = struct{}{}
		qids = append(qids, row.QID)
	}
	return qids
}

// GroupByQuery maps every qid to the indices of its rows in file order.
func GroupByQuery(rows []FeatureRow) map[string][]int {
	groups := make(map[string][]int)
	for i, row := range rows {
		groups[row.QID] = append(groups[row.QID], i)
	}
	return groups
}

// Judgments rebuilds the ground truth carried by the labels of rows. Rows
// without a document id are named by their index within the query, as
// ApplyScores does.
func Judgments(rows []FeatureRow) evaluation.GroundTruth {
	truth := make(evaluation.GroundTruth)
	seen := make(map[string]int)
	for _, row := range rows {
		docID := row.DocID
		if docID == "" {
			docID = strconv.Itoa(seen[row.QID])
		}
		seen[row.QID]++
		j := truth[row.QID]
		j.Add(docID, row.Label)
		truth[row.QID] = j
	}
	return truth
}
