package domain

import "time"

// RunOutcome classifies how a dated run ended.
type RunOutcome string

const (
	RunOutcomeOK            RunOutcome = "OK"
	RunOutcomeMissingSource RunOutcome = "MISSING_SOURCE" // no candidate file for the date
	RunOutcomeEmptySource   RunOutcome = "EMPTY_SOURCE"   // file found, no usable rows
	RunOutcomeNoRows        RunOutcome = "NO_ROWS"        // every requested symbol skipped
)

// IsSkip reports whether the outcome produced no output file.
func (o RunOutcome) IsSkip() bool {
	return o != RunOutcomeOK
}

// RunRecord is the ledger entry for one invocation.
// Corresponds to trendchop_runs table in PostgreSQL.
type RunRecord struct {
	RunID        string
	Date         string
	Outcome      RunOutcome
	Source       SourceKind // empty when no source was found
	SourcePath   string
	Symbols      []string // requested symbols
	SymbolsUsed  int      // symbols that produced rows
	RowsWritten  int
	OutputPath   string // empty on skip
	OutputSHA256 string // digest of the output file, empty on skip
	ParamsID     string // fingerprint of the engine parameters
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Clone returns a deep copy of the record.
func (r *RunRecord) Clone() *RunRecord {
	c := *r
	c.Symbols = append([]string(nil), r.Symbols...)
	return &c
}
