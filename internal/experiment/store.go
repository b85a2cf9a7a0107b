package experiment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Ranking-Evaluation-Platform/pkg/postgres"
)

// Store persists experiment results.
type Store interface {
	Save(ctx context.Context, result *Result) error
}

// PostgresStore keeps results in the experiment_results table created by
// postgres.Client.Migrate. The full Result is stored as JSONB.
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "result-store"),
	}
}

// Save inserts result. Saving the same run twice is a no-op.
func (s *PostgresStore) Save(ctx context.Context, result *Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO experiment_results (run_id, experiment, corpus_hash, report, completed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id) DO NOTHING`,
		result.RunID, result.Experiment, result.CorpusHash, data, result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("saving experiment result: %w", err)
	}

	s.logger.Info("experiment result saved",
		"run_id", result.RunID,
		"experiment", result.Experiment,
		"engines", len(result.Reports),
	)
	return nil
}

// Latest loads the most recent run of experiment. Returns nil, nil if the
// experiment has never run.
func (s *PostgresStore) Latest(ctx context.Context, experiment string) (*Result, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT report FROM experiment_results WHERE experiment = $1 ORDER BY completed_at DESC LIMIT 1`,
		experiment,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest result: %w", err)
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshaling result: %w", err)
	}
	return &result, nil
}

// List returns the last limit runs of experiment, newest first. An empty
// experiment lists every run.
func (s *PostgresStore) List(ctx context.Context, experiment string, limit int) ([]Result, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT report FROM experiment_results
		 WHERE $1 = '' OR experiment = $1
		 ORDER BY completed_at DESC LIMIT $2`,
		experiment, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		var result Result
		if err := json.Unmarshal(data, &result); err != nil {
			s.logger.Warn("skipping corrupt result", "error", err)
			continue
		}
		results = append(results, result)
	}

	return results, rows.Err()
}
