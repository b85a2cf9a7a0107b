// Package experiment runs scoring engines over a judged query set and turns
// the results into stored, published reports.
package experiment

import (
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/scoring/bm25"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/scoring/tfidf"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
)

const (
	EngineBM25  = "bm25"
	EngineTFIDF = "tfidf"
)

// EngineSpec selects an engine. K and B apply to BM25 only; zero values take
// the defaults.
type EngineSpec struct {
	Kind string  `json:"kind"`
	K    float64 `json:"k,omitempty"`
	B    float64 `json:"b,omitempty"`
}

// ParseEngineSpec reads "bm25", "tfidf" or "bm25:k=1.5,b=0.6".
func ParseEngineSpec(s string) (EngineSpec, error) {
	kind, params, _ := strings.Cut(strings.TrimSpace(s), ":")
	spec := EngineSpec{Kind: strings.ToLower(kind)}
	if spec.Kind != EngineBM25 && spec.Kind != EngineTFIDF {
		return spec, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "unknown engine %q", kind)
	}
	if params == "" {
		return spec, nil
	}
	if spec.Kind != EngineBM25 {
		return spec, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "engine %s takes no parameters", spec.Kind)
	}
	for _, kv := range strings.Split(params, ",") {
		key, val, ok := strings.Cut(kv, "=")
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if !ok || err != nil {
			return spec, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "engine parameter %q", kv)
		}
		switch strings.TrimSpace(key) {
		case "k":
			spec.K = v
		case "b":
			spec.B = v
		default:
			return spec, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "unknown bm25 parameter %q", key)
		}
	}
	return spec, nil
}

// BuildEngine instantiates spec over stats. defaults fill unset BM25
// parameters.
func BuildEngine(stats *corpus.Stats, spec EngineSpec, defaults bm25.Params) (scoring.Scorer, error) {
	switch spec.Kind {
	case EngineBM25:
		params := defaults
		if spec.K != 0 {
			params.K = spec.K
		}
		if spec.B != 0 {
			params.B = spec.B
		}
		return bm25.New(stats, params), nil
	case EngineTFIDF:
		return tfidf.New(stats)
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "unknown engine %q", spec.Kind)
	}
}

// Experiment is everything needed to evaluate a set of engines.
type Experiment struct {
	Name    string
	Corpus  corpus.Corpus
	Queries []dataset.Query
	Truth   evaluation.GroundTruth
	Engines []EngineSpec
	Metrics []evaluation.Metric
}

// Result is the outcome of one run: one report per engine, in the order the
// engines were given.
type Result struct {
	RunID       string               `json:"run_id"`
	Experiment  string               `json:"experiment"`
	CorpusHash  string               `json:"corpus_hash"`
	Documents   int                  `json:"documents"`
	Queries     int                  `json:"queries"`
	Reports     []*evaluation.Report `json:"reports"`
	StartedAt   time.Time            `json:"started_at"`
	CompletedAt time.Time            `json:"completed_at"`
}

// Best returns the report with the highest mean for metric, or nil.
func (r *Result) Best(metric evaluation.Metric) *evaluation.Report {
	var best *evaluation.Report
	for _, report := range r.Reports {
		v, ok := report.Means[metric]
		if !ok {
			continue
		}
		if best == nil || v > best.Means[metric] {
			best = report
		}
	}
	return best
}

// Request is the wire form of an experiment: dataset locations instead of
// loaded data.
type Request struct {
	Name        string   `json:"name"`
	CorpusPath  string   `json:"corpus_path"`
	QueriesPath string   `json:"queries_path"`
	QrelsPath   string   `json:"qrels_path"`
	Engines     []string `json:"engines"`
	Metrics     []string `json:"metrics,omitempty"`
}

// Load reads the datasets a request points at.
func (req Request) Load() (Experiment, error) {
	if req.Name == "" {
		return Experiment{}, apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage, "experiment name is required")
	}
	if len(req.Engines) == 0 {
		return Experiment{}, apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage, "at least one engine is required")
	}
	exp := Experiment{Name: req.Name}
	for _, e := range req.Engines {
		spec, err := ParseEngineSpec(e)
		if err != nil {
			return Experiment{}, err
		}
		exp.Engines = append(exp.Engines, spec)
	}
	for _, m := range req.Metrics {
		metric := evaluation.Metric(m)
		if !metric.IsValid() {
			return Experiment{}, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "unknown metric %q", m)
		}
		exp.Metrics = append(exp.Metrics, metric)
	}

	var err error
	if exp.Corpus, err = dataset.LoadCorpus(req.CorpusPath); err != nil {
		return Experiment{}, err
	}
	if exp.Queries, err = dataset.LoadQueries(req.QueriesPath); err != nil {
		return Experiment{}, err
	}
	if exp.Truth, err = dataset.LoadQrels(req.QrelsPath); err != nil {
		return Experiment{}, err
	}
	return exp, nil
}
