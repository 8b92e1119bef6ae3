package storage

import (
	"fmt"

	"trendchop/internal/domain"
)

// ValidateDateRows checks the ReplaceDate preconditions shared by every implementation.
func ValidateDateRows(date string, rows []*domain.FeatureRow) error {
	if date == "" {
		return fmt.Errorf("%w: empty date", ErrInvalidInput)
	}

	type key struct {
		symbol string
		seq    int
	}
	seen := make(map[key]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return ErrInvalidInput
		}
		if r.Date != date {
			return fmt.Errorf("%w: row %s/%s has date %q, want %q", ErrInvalidInput, r.Symbol, r.WriteTS, r.Date, date)
		}
		if r.Seq < 0 {
			return fmt.Errorf("%w: row %s/%s has negative seq", ErrInvalidInput, r.Symbol, r.WriteTS)
		}
		k := key{r.Symbol, r.Seq}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: %s seq %d", ErrDuplicateKey, r.Symbol, r.Seq)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// ValidateRun checks a run record before insert.
func ValidateRun(r *domain.RunRecord) error {
	if r == nil || r.RunID == "" || r.Date == "" {
		return ErrInvalidInput
	}
	return nil
}
