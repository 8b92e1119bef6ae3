// Package loader resolves and parses the per-date mid-price source.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"trendchop/internal/domain"
)

// Column resolution order.
var (
	timestampColumns = []string{"write_ts", "bar_ts"}
	priceColumns     = []string{"mid", "microprice", "last"}
)

const symbolColumn = "symbol"

// SourceSpec locates one candidate file: Dir joined with Template, where
// "{date}" in Template is replaced by the run date.
type SourceSpec struct {
	Kind     domain.SourceKind
	Dir      string
	Template string
}

// Path returns the candidate file path for date.
func (s SourceSpec) Path(date string) string {
	return filepath.Join(s.Dir, strings.ReplaceAll(s.Template, "{date}", date))
}

// Result is a loaded source.
type Result struct {
	Kind   domain.SourceKind
	Path   string
	Series map[string]*domain.PriceSeries // keyed by symbol, each ordered by WriteTS
}

// Loader picks the highest-priority existing source and parses it.
type Loader struct {
	sources []SourceSpec
}

// New creates a Loader. sources are tried in the order given.
func New(sources []SourceSpec) *Loader {
	return &Loader{sources: sources}
}

// Resolve returns the first source whose file exists for date.
// Returns ErrMissingSource if none exists.
func (l *Loader) Resolve(date string) (SourceSpec, string, error) {
	for _, src := range l.sources {
		path := src.Path(date)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return src, path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return SourceSpec{}, "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return SourceSpec{}, "", ErrMissingSource
}

// Load resolves the source for date and parses the rows of the requested symbols.
//
// Returns ErrMissingSource when no candidate exists, and ErrEmptySource (with
// Kind and Path set on the result) when the file yields nothing usable.
// Rows with an empty timestamp or an unparsable price are dropped silently.
func (l *Loader) Load(date string, symbols []string) (*Result, error) {
	src, path, err := l.Resolve(date)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", path, err)
	}
	defer f.Close()

	series, err := Parse(f, symbols)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", path, err)
	}

	res := &Result{Kind: src.Kind, Path: path, Series: series}
	if len(series) == 0 {
		return res, ErrEmptySource
	}
	return res, nil
}

// Parse reads a CSV price file and groups the requested symbols' rows.
// A header without a symbol, timestamp or price column yields an empty map.
func Parse(r io.Reader, symbols []string) (map[string]*domain.PriceSeries, error) {
	want := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s = strings.TrimSpace(s); s != "" {
			want[s] = struct{}{}
		}
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return map[string]*domain.PriceSeries{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	symIdx := indexOf(header, symbolColumn)
	tsIdx := resolveTimestampColumn(header)
	midIdx := resolvePriceColumn(header)
	if symIdx < 0 || tsIdx < 0 || midIdx < 0 {
		return map[string]*domain.PriceSeries{}, nil
	}

	out := make(map[string]*domain.PriceSeries)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, err
		}

		sym := field(rec, symIdx)
		if _, ok := want[sym]; !ok {
			continue
		}
		ts := field(rec, tsIdx)
		if ts == "" {
			continue
		}
		mid, ok := parsePrice(field(rec, midIdx))
		if !ok {
			continue
		}

		s, exists := out[sym]
		if !exists {
			s = &domain.PriceSeries{Symbol: sym}
			out[sym] = s
		}
		s.Points = append(s.Points, domain.PricePoint{WriteTS: ts, Mid: mid})
	}

	for _, s := range out {
		sort.SliceStable(s.Points, func(i, j int) bool {
			return s.Points[i].WriteTS < s.Points[j].WriteTS
		})
	}

	return out, nil
}

// resolveTimestampColumn tries the known names first, then the first header containing "ts".
func resolveTimestampColumn(header []string) int {
	for _, name := range timestampColumns {
		if i := indexOf(header, name); i >= 0 {
			return i
		}
	}
	for i, h := range header {
		if strings.Contains(strings.ToLower(h), "ts") {
			return i
		}
	}
	return -1
}

func resolvePriceColumn(header []string) int {
	for _, name := range priceColumns {
		if i := indexOf(header, name); i >= 0 {
			return i
		}
	}
	return -1
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parsePrice accepts finite decimal values; empty and "nan" cells are rejected.
func parsePrice(s string) (float64, bool) {
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
