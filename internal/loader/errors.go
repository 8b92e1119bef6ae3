package loader

import "errors"

// Skip conditions. Both are clean "nothing to do" outcomes, not failures.
var (
	// ErrMissingSource is returned when none of the candidate files exist for the date.
	ErrMissingSource = errors.New("no price source for date")

	// ErrEmptySource is returned when the chosen file exists but yields no usable rows:
	// a required column is missing or no row matches a requested symbol.
	ErrEmptySource = errors.New("price source has no usable rows")
)
