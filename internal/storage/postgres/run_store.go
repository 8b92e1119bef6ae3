package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"trendchop/internal/domain"
	"trendchop/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a run record. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if err := storage.ValidateRun(r); err != nil {
		return err
	}

	query := `
		INSERT INTO trendchop_runs (
			run_id, date, outcome, source, source_path, symbols,
			symbols_used, rows_written, output_path, output_sha256, params_id,
			started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	symbols := r.Symbols
	if symbols == nil {
		symbols = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		r.RunID,
		r.Date,
		string(r.Outcome),
		string(r.Source),
		r.SourcePath,
		symbols,
		r.SymbolsUsed,
		r.RowsWritten,
		r.OutputPath,
		r.OutputSHA256,
		r.ParamsID,
		r.StartedAt,
		r.FinishedAt,
	)
	if err != nil {
		return ledgerError("insert run "+r.RunID, err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `
		SELECT run_id, date, outcome, source, source_path, symbols,
			symbols_used, rows_written, output_path, output_sha256, params_id,
			started_at, finished_at
		FROM trendchop_runs
		WHERE run_id = $1
	`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		return nil, ledgerError("get run "+runID, err)
	}
	return r, nil
}

// GetByDate retrieves all runs for a date, ordered by started_at ASC.
func (s *RunStore) GetByDate(ctx context.Context, date string) ([]*domain.RunRecord, error) {
	query := `
		SELECT run_id, date, outcome, source, source_path, symbols,
			symbols_used, rows_written, output_path, output_sha256, params_id,
			started_at, finished_at
		FROM trendchop_runs
		WHERE date = $1
		ORDER BY started_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query runs by date: %w", err)
	}
	defer rows.Close()

	var result []*domain.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}

// scanRun scans a single row into a RunRecord.
func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord
	var outcome, source string

	err := row.Scan(
		&r.RunID,
		&r.Date,
		&outcome,
		&source,
		&r.SourcePath,
		&r.Symbols,
		&r.SymbolsUsed,
		&r.RowsWritten,
		&r.OutputPath,
		&r.OutputSHA256,
		&r.ParamsID,
		&r.StartedAt,
		&r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Outcome = domain.RunOutcome(outcome)
	r.Source = domain.SourceKind(source)
	return &r, nil
}

const pgErrUniqueViolation = "23505"

// ledgerError maps a run_id collision to storage.ErrDuplicateKey and a
// missing run to storage.ErrNotFound. Other errors are wrapped with op.
func ledgerError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		return storage.ErrDuplicateKey
	}
	return fmt.Errorf("%s: %w", op, err)
}
