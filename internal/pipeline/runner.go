// Package pipeline runs one dated build: load, assemble, sort, write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trendchop/internal/domain"
	"trendchop/internal/features"
	"trendchop/internal/idhash"
	"trendchop/internal/loader"
	"trendchop/internal/observability"
	"trendchop/internal/reporting"
	"trendchop/internal/storage"
)

// SourceLoader loads the price series of the requested symbols for a date.
type SourceLoader interface {
	Load(date string, symbols []string) (*loader.Result, error)
}

// Options for creating Runner.
type Options struct {
	// Required
	Loader   SourceLoader
	Params   features.Params
	TickSize func(symbol string) float64
	OutDir   string

	// Optional sinks, skipped when nil
	FeatureStore storage.FeatureRowStore
	RunStore     storage.RunStore
	Metrics      *observability.Metrics

	Workers int // symbols assembled concurrently, default 1
	Verbose bool
	Logger  zerolog.Logger

	// Overridable for tests
	Clock    func() time.Time
	NewRunID func() string
}

// Runner coordinates a single build invocation.
type Runner struct {
	loader       SourceLoader
	params       features.Params
	tickSize     func(string) float64
	outDir       string
	featureStore storage.FeatureRowStore
	runStore     storage.RunStore
	metrics      *observability.Metrics
	workers      int
	verbose      bool
	log          zerolog.Logger
	clock        func() time.Time
	newRunID     func() string
}

// New creates a new Runner.
func New(opts Options) *Runner {
	r := &Runner{
		loader:       opts.Loader,
		params:       opts.Params,
		tickSize:     opts.TickSize,
		outDir:       opts.OutDir,
		featureStore: opts.FeatureStore,
		runStore:     opts.RunStore,
		metrics:      opts.Metrics,
		workers:      opts.Workers,
		verbose:      opts.Verbose,
		log:          opts.Logger,
		clock:        opts.Clock,
		newRunID:     opts.NewRunID,
	}
	if r.workers < 1 {
		r.workers = 1
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.newRunID == nil {
		r.newRunID = uuid.NewString
	}
	return r
}

// Result summarises a finished run. Skips are outcomes, not errors.
type Result struct {
	RunID          string
	Date           string
	Outcome        domain.RunOutcome
	Source         domain.SourceKind
	SourcePath     string
	OutputPath     string // empty unless Outcome is OK
	OutputSHA256   string
	ParamsID       string
	RowsWritten    int
	SymbolsUsed    []string
	SymbolsSkipped []string // requested symbols absent from the source
}

// Run builds the feature file for date. The output is sorted by
// (write_ts, symbol) whatever the number of workers.
//
// MissingSource, EmptySource and NoRows end the run cleanly with no output file.
// I/O and sink failures are returned as errors.
func (r *Runner) Run(ctx context.Context, date string, symbols []string) (*Result, error) {
	started := r.clock()
	res := &Result{RunID: r.newRunID(), Date: date, ParamsID: idhash.ComputeParamsID(r.params)}

	loadStart := time.Now()
	src, err := r.loader.Load(date, symbols)
	r.metrics.ObservePhase("load", time.Since(loadStart))
	if src != nil {
		res.Source = src.Kind
		res.SourcePath = src.Path
	}
	switch {
	case errors.Is(err, loader.ErrMissingSource):
		return r.skip(ctx, res, domain.RunOutcomeMissingSource, symbols, started)
	case errors.Is(err, loader.ErrEmptySource):
		return r.skip(ctx, res, domain.RunOutcomeEmptySource, symbols, started)
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", date, err)
	}

	r.log.Debug().
		Str("source", string(src.Kind)).
		Str("path", src.Path).
		Int("symbols", len(src.Series)).
		Msg("source loaded")

	computeStart := time.Now()
	rows := r.assemble(date, symbols, src.Series, res)
	r.metrics.ObservePhase("compute", time.Since(computeStart))

	if len(rows) == 0 {
		return r.skip(ctx, res, domain.RunOutcomeNoRows, symbols, started)
	}

	features.SortRows(rows)

	writeStart := time.Now()
	outPath := reporting.OutputPath(r.outDir, date)
	digest, err := reporting.WriteCSV(outPath, rows, r.params.SortedWindows(), r.params.ReferenceWindow())
	if err != nil {
		return nil, err
	}
	r.metrics.ObservePhase("write", time.Since(writeStart))
	r.metrics.RecordRowsWritten(len(rows))

	res.Outcome = domain.RunOutcomeOK
	res.OutputPath = outPath
	res.OutputSHA256 = digest
	res.RowsWritten = len(rows)

	if r.featureStore != nil {
		sinkStart := time.Now()
		err := r.featureStore.ReplaceDate(ctx, date, rows)
		r.metrics.RecordSinkWrite("features", time.Since(sinkStart), err)
		if err != nil {
			return nil, fmt.Errorf("store feature rows: %w", err)
		}
	}

	if err := r.finish(ctx, res, symbols, started); err != nil {
		return nil, err
	}
	return res, nil
}

// assemble computes the rows of every present symbol. Each symbol writes
// its own slot, so concatenation follows the request order.
func (r *Runner) assemble(date string, symbols []string, series map[string]*domain.PriceSeries, res *Result) []*domain.FeatureRow {
	slots := make([][]*domain.FeatureRow, len(symbols))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.workers)

	for i, sym := range symbols {
		s, ok := series[sym]
		if !ok || s.Len() == 0 {
			res.SymbolsSkipped = append(res.SymbolsSkipped, sym)
			r.metrics.RecordSymbol("skipped", 0)
			if r.verbose {
				r.log.Warn().Str("symbol", sym).Str("date", date).Msg("no rows for symbol, skipping")
			}
			continue
		}

		wg.Add(1)
		go func(i int, s *domain.PriceSeries) {
			defer wg.Done()

			// Acquire semaphore
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			slots[i] = features.ComputeSymbol(date, s, r.tickSize(s.Symbol), r.params)
		}(i, s)
	}
	wg.Wait()

	var rows []*domain.FeatureRow
	for i, sym := range symbols {
		if slots[i] == nil {
			continue
		}
		res.SymbolsUsed = append(res.SymbolsUsed, sym)
		r.metrics.RecordSymbol("used", len(slots[i]))
		r.log.Debug().Str("symbol", sym).Int("rows", len(slots[i])).Msg("symbol assembled")
		rows = append(rows, slots[i]...)
	}
	return rows
}

func (r *Runner) skip(ctx context.Context, res *Result, outcome domain.RunOutcome, symbols []string, started time.Time) (*Result, error) {
	res.Outcome = outcome

	ev := r.log.Warn().Str("skip", string(outcome)).Str("date", res.Date)
	if res.SourcePath != "" {
		ev = ev.Str("path", res.SourcePath)
	}
	ev.Msg("no output written")

	if err := r.finish(ctx, res, symbols, started); err != nil {
		return nil, err
	}
	return res, nil
}

// finish records the run in the ledger and metrics.
func (r *Runner) finish(ctx context.Context, res *Result, symbols []string, started time.Time) error {
	finished := r.clock()
	r.metrics.RecordRun(string(res.Outcome), finished)

	if r.runStore == nil {
		return nil
	}

	rec := &domain.RunRecord{
		RunID:        res.RunID,
		Date:         res.Date,
		Outcome:      res.Outcome,
		Source:       res.Source,
		SourcePath:   res.SourcePath,
		Symbols:      append([]string(nil), symbols...),
		SymbolsUsed:  len(res.SymbolsUsed),
		RowsWritten:  res.RowsWritten,
		OutputPath:   res.OutputPath,
		OutputSHA256: res.OutputSHA256,
		ParamsID:     res.ParamsID,
		StartedAt:    started,
		FinishedAt:   finished,
	}

	sinkStart := time.Now()
	err := r.runStore.Insert(ctx, rec)
	r.metrics.RecordSinkWrite("runs", time.Since(sinkStart), err)
	if err != nil {
		return fmt.Errorf("record run %s: %w", res.RunID, err)
	}
	return nil
}
