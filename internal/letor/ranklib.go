package letor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/resilience"
)

// Trainer is an external learning-to-rank tool. Only file paths and exit
// status cross the boundary.
type Trainer interface {
	Train(ctx context.Context, opts TrainOptions) (Model, error)
	Evaluate(ctx context.Context, model Model, testFile string, metric string) (float64, error)
	Rank(ctx context.Context, model Model, featureFile string) ([]RankedRow, error)
}

// Model is a trained model persisted by the trainer.
type Model struct {
	Path string `json:"path"`
}

// TrainOptions mirror the trainer's command-line switches. Empty fields are
// left to the trainer's defaults.
type TrainOptions struct {
	TrainFile    string
	TestFile     string
	ValidateFile string
	Ranker       int
	TrainMetric  string
	TestMetric   string
	ModelPath    string
}

// RankedRow is one document of a re-ranked feature file.
type RankedRow struct {
	QID   string  `json:"qid"`
	DocID string  `json:"doc_id"`
	Label int     `json:"label"`
	Score float64 `json:"score"`
}

// CommandRunner executes a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Observer is told about every trainer invocation.
type Observer func(operation string, elapsed time.Duration, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// RankLib drives the RankLib jar through `java -jar`.
type RankLib struct {
	java     string
	jar      string
	defaults config.RankLibConfig
	run      CommandRunner
	observe  Observer
	logger   *slog.Logger
}

var _ Trainer = (*RankLib)(nil)

type Option func(*RankLib)

func WithRunner(run CommandRunner) Option {
	return func(r *RankLib) { r.run = run }
}

func WithObserver(observe Observer) Option {
	return func(r *RankLib) { r.observe = observe }
}

func NewRankLib(cfg config.RankLibConfig, opts ...Option) *RankLib {
	r := &RankLib{
		java:     cfg.Java,
		jar:      cfg.JarPath,
		defaults: cfg,
		run:      execRunner,
		observe:  func(string, time.Duration, error) {},
		logger:   slog.Default().With("component", "ranklib"),
	}
	if r.java == "" {
		r.java = "java"
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Train fits a model on opts.TrainFile and saves it to opts.ModelPath,
// defaulting to <modelDir>/ranker<N>.txt.
func (r *RankLib) Train(ctx context.Context, opts TrainOptions) (Model, error) {
	if opts.TrainFile == "" {
		return Model{}, apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage, "train file is required")
	}
	if opts.Ranker == 0 {
		opts.Ranker = r.defaults.Ranker
	}
	if opts.TrainMetric == "" {
		opts.TrainMetric = r.defaults.TrainMetric
	}
	if opts.TestMetric == "" {
		opts.TestMetric = r.defaults.TestMetric
	}
	if opts.ModelPath == "" {
		opts.ModelPath = filepath.Join(r.defaults.ModelDir, fmt.Sprintf("ranker%d.txt", opts.Ranker))
	}
	if dir := filepath.Dir(opts.ModelPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Model{}, fmt.Errorf("creating model directory: %w", err)
		}
	}

	args := []string{"-train", opts.TrainFile}
	if opts.TestFile != "" {
		args = append(args, "-test", opts.TestFile)
	}
	if opts.ValidateFile != "" {
		args = append(args, "-validate", opts.ValidateFile)
	}
	args = append(args, "-ranker", strconv.Itoa(opts.Ranker))
	if opts.TrainMetric != "" {
		args = append(args, "-metric2t", opts.TrainMetric)
	}
	if opts.TestMetric != "" {
		args = append(args, "-metric2T", opts.TestMetric)
	}
	args = append(args, "-save", opts.ModelPath)

	if _, err := r.invoke(ctx, "train", args...); err != nil {
		return Model{}, err
	}
	r.logger.Info("model trained",
		"ranker", opts.Ranker,
		"train_file", opts.TrainFile,
		"model", opts.ModelPath,
	)
	return Model{Path: opts.ModelPath}, nil
}

// CrossValidate runs k-fold cross validation on trainFile, saving one model
// per fold under modelDir with the given name prefix.
func (r *RankLib) CrossValidate(ctx context.Context, trainFile string, folds int, modelDir, modelName string) error {
	if folds < 2 {
		return apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "cross validation needs at least 2 folds, got %d", folds)
	}
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}
	_, err := r.invoke(ctx, "cross-validate",
		"-train", trainFile,
		"-ranker", strconv.Itoa(r.defaults.Ranker),
		"-kcv", strconv.Itoa(folds),
		"-kcvmd", modelDir,
		"-kcvmn", modelName,
		"-metric2t", r.defaults.TrainMetric,
		"-metric2T", r.defaults.TestMetric,
	)
	return err
}

var testScorePattern = regexp.MustCompile(`on test data:\s*([-+0-9.eE]+|NaN)`)

// Evaluate scores a trained model on testFile with metric (e.g. "MAP@10").
func (r *RankLib) Evaluate(ctx context.Context, model Model, testFile string, metric string) (float64, error) {
	if metric == "" {
		metric = r.defaults.TestMetric
	}
	out, err := r.invoke(ctx, "evaluate", "-load", model.Path, "-test", testFile, "-metric2T", metric)
	if err != nil {
		return 0, err
	}
	return ParseTestScore(out)
}

// ParseTestScore extracts the last "<metric> on test data: <v>" value from
// trainer output.
func ParseTestScore(out []byte) (float64, error) {
	matches := testScorePattern.FindAllSubmatch(out, -1)
	if len(matches) == 0 {
		return 0, apperrors.New(apperrors.ErrTrainerFailed, apperrors.ExitExternal, "no test score in trainer output")
	}
	raw := string(matches[len(matches)-1][1])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrTrainerFailed, apperrors.ExitExternal, "unparsable test score %q", raw)
	}
	return v, nil
}

// Rank re-scores featureFile with model and returns its rows reordered by
// descending score within each query. Queries keep their file order.
func (r *RankLib) Rank(ctx context.Context, model Model, featureFile string) ([]RankedRow, error) {
	f, err := os.Open(featureFile)
	if err != nil {
		return nil, fmt.Errorf("opening feature file: %w", err)
	}
	rows, err := ReadFeatures(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("reading feature file %s: %w", featureFile, err)
	}

	scoreFile, err := os.CreateTemp("", "ranklib-scores-*.txt")
	if err != nil {
		return nil, fmt.Errorf("creating score file: %w", err)
	}
	scorePath := scoreFile.Name()
	scoreFile.Close()
	defer os.Remove(scorePath)

	if _, err := r.invoke(ctx, "rank", "-load", model.Path, "-rank", featureFile, "-score", scorePath); err != nil {
		return nil, err
	}
	sf, err := os.Open(scorePath)
	if err != nil {
		return nil, fmt.Errorf("opening score file: %w", err)
	}
	defer sf.Close()
	return ApplyScores(rows, sf)
}

// ApplyScores joins a trainer score file ("qid<TAB>index<TAB>score", index
// counted within the query) with the feature rows it was produced from.
func ApplyScores(rows []FeatureRow, scores io.Reader) ([]RankedRow, error) {
	groups := GroupByQuery(rows)
	ranked := make(map[string][]RankedRow, len(groups))
	order := make(map[string][]int, len(groups))

	scanner := bufio.NewScanner(scores)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, apperrors.Newf(apperrors.ErrTrainerFailed, apperrors.ExitExternal,
				"score line %d: expected 3 fields, got %d", lineNo, len(fields))
		}
		qid := fields[0]
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrTrainerFailed, apperrors.ExitExternal, "score line %d: index %q", lineNo, fields[1])
		}
		score, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrTrainerFailed, apperrors.ExitExternal, "score line %d: score %q", lineNo, fields[2])
		}
		members := groups[qid]
		if idx < 0 || idx >= len(members) {
			return nil, apperrors.Newf(apperrors.ErrTrainerFailed, apperrors.ExitExternal,
				"score line %d: no row %d for query %s", lineNo, idx, qid)
		}
		row := rows[members[idx]]
		docID := row.DocID
		if docID == "" {
			docID = strconv.Itoa(idx)
		}
		ranked[qid] = append(ranked[qid], RankedRow{QID: qid, DocID: docID, Label: row.Label, Score: score})
		order[qid] = append(order[qid], idx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading score file: %w", err)
	}

	out := make([]RankedRow, 0, len(rows))
	for _, qid := range QueryIDs(rows) {
		list := ranked[qid]
		positions := order[qid]
		perm := make([]int, len(list))
		for i := range perm {
			perm[i] = i
		}
		sort.SliceStable(perm, func(a, b int) bool {
			if list[perm[a]].Score != list[perm[b]].Score {
				return list[perm[a]].Score > list[perm[b]].Score
			}
			return positions[perm[a]] < positions[perm[b]]
		})
		for _, p := range perm {
			out = append(out, list[p])
		}
	}
	return out, nil
}

// ToPredictions turns re-ranked rows into per-query score maps so a trained
// model can be evaluated like any other engine.
func ToPredictions(rows []RankedRow) evaluation.Predictions {
	preds := make(evaluation.Predictions)
	for _, row := range rows {
		if preds[row.QID] == nil {
			preds[row.QID] = make(ranking.ScoreMap)
		}
		preds[row.QID][row.DocID] = row.Score
	}
	return preds
}

func (r *RankLib) invoke(ctx context.Context, operation string, args ...string) ([]byte, error) {
	full := append([]string{"-jar", r.jar}, args...)
	r.logger.Debug("invoking trainer", "operation", operation, "args", strings.Join(full, " "))
	start := time.Now()
	var out []byte
	err := resilience.WithTimeLimit(ctx, "ranklib "+operation, r.defaults.Timeout, func(ctx context.Context) error {
		var err error
		out, err = r.run(ctx, r.java, full...)
		return err
	})
	elapsed := time.Since(start)
	if err != nil {
		err = apperrors.Newf(apperrors.ErrTrainerFailed, apperrors.ExitExternal,
			"%s: %v: %s", operation, err, tail(out, 512))
	}
	r.observe(operation, elapsed, err)
	if err != nil {
		r.logger.Error("trainer failed", "operation", operation, "elapsed", elapsed, "error", err)
		return nil, err
	}
	r.logger.Debug("trainer finished", "operation", operation, "elapsed", elapsed)
	return out, nil
}

func tail(out []byte, n int) string {
	s := strings.TrimSpace(string(out))
	if len(s) > n {
		s = "..." + s[len(s)-n:]
	}
	return s
}
