package storage

import (
	"context"

	"trendchop/internal/domain"
)

// FeatureRowStore provides access to trendchop_features storage.
// Rows are partitioned by run date; a date is always rewritten as a whole.
type FeatureRowStore interface {
	// ReplaceDate drops any rows stored for date and inserts rows.
	// Returns ErrInvalidInput if a row is nil or belongs to another date,
	// ErrDuplicateKey if (symbol, seq) repeats within rows. Repeated write_ts
	// values are allowed. The previous rows are kept when an error is
	// returned before any write.
	ReplaceDate(ctx context.Context, date string, rows []*domain.FeatureRow) error

	// GetByDate retrieves all rows of a date, ordered by (write_ts, symbol, seq).
	GetByDate(ctx context.Context, date string) ([]*domain.FeatureRow, error)

	// GetBySymbol retrieves one symbol's rows of a date, ordered by seq.
	GetBySymbol(ctx context.Context, date, symbol string) ([]*domain.FeatureRow, error)
}

// RunStore provides access to trendchop_runs storage.
type RunStore interface {
	// Insert adds a run record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByDate retrieves all runs for a date, ordered by started_at ASC.
	GetByDate(ctx context.Context, date string) ([]*domain.RunRecord, error)
}
