// Package features assembles per-step trend/chop rows for one symbol.
package features

import (
	"math"
	"sort"

	"trendchop/internal/domain"
	"trendchop/internal/rolling"
	"trendchop/internal/segment"
)

// Windows with a fixed role in the composite scores.
const (
	WindowFast = 30
	WindowRef  = 120
	WindowSlow = 300
)

// Composite score weights and maturity flag thresholds.
const (
	weightERRef  = 0.5
	weightERSlow = 0.3
	weightTS     = 0.2

	MatureThreshold  = 0.8 // trend_mature_08: maturity >= 0.8
	OKEntryThreshold = 0.6 // trend_ok_entry_06: maturity < 0.6
)

// Params configures the engine for one run.
type Params struct {
	Windows    []int
	Thresholds segment.Thresholds
	TSRef      float64 // |TS_120| normalisation for the trend score
	EMAAlpha   float64 // smoothing of segment duration/move baselines
}

// SortedWindows returns the configured windows in ascending order.
func (p Params) SortedWindows() []int {
	w := make([]int, len(p.Windows))
	copy(w, p.Windows)
	sort.Ints(w)
	return w
}

// ReferenceWindow returns 120 when configured, else the smallest configured window.
// It drives both the segment state machine and the trend direction column.
func (p Params) ReferenceWindow() int {
	w := p.SortedWindows()
	if len(w) == 0 {
		return 0
	}
	for _, n := range w {
		if n == WindowRef {
			return WindowRef
		}
	}
	return w[0]
}

// ComputeSymbol walks a symbol's series in index order and returns one row per point.
// A fresh segment.State is created for every call, so symbols never share regime state.
func ComputeSymbol(date string, series *domain.PriceSeries, tickSize float64, params Params) []*domain.FeatureRow {
	if series == nil || series.Len() == 0 {
		return nil
	}

	windows := params.SortedWindows()
	refWindow := params.ReferenceWindow()
	ticks := series.Ticks(tickSize)
	seg := segment.New(params.EMAAlpha)

	rows := make([]*domain.FeatureRow, 0, len(ticks))
	for i, pt := range series.Points {
		stats := rolling.Compute(ticks, i, windows)

		row := &domain.FeatureRow{
			Date:           date,
			WriteTS:        pt.WriteTS,
			Symbol:         series.Symbol,
			Seq:            i,
			Mid:            pt.Mid,
			TickSize:       tickSize,
			MidTicks:       ticks[i],
			Windows:        stats,
			TrendDirWindow: refWindow,
		}

		if refWindow > 0 && i >= refWindow {
			row.TrendDir = rolling.Sign(ticks[i] - ticks[i-refWindow])
		}

		applyScores(row, params.TSRef)

		ref, _ := row.Stat(refWindow)
		seg.OnStep(i, ticks[i], ref.ER, ref.TS, params.Thresholds)
		applyMaturity(row, seg, i, ticks[i])

		rows = append(rows, row)
	}

	return rows
}

// applyScores fills trend/chop scores plus breakout and exhaustion.
//
// Formulas:
//   - trend_score = 0.5*ER_120 + 0.3*ER_300 + 0.2*min(1, |TS_120|/ts_ref)
//   - chop_score  = 1 - 0.5*ER_120 - 0.5*ER_300
//   - missing ER_120 falls back to the first defined ER; missing ER_300 falls back to ER_120
//   - breakout    = ER_30 - ER_300, exhaustion = ER_120 - ER_300, NULL unless both defined
func applyScores(row *domain.FeatureRow, tsRef float64) {
	erRef := erOf(row, WindowRef)
	erSlow := erOf(row, WindowSlow)
	erFast := erOf(row, WindowFast)

	if erRef != nil && erSlow != nil {
		v := *erRef - *erSlow
		row.Exhaustion = &v
	}
	if erFast != nil && erSlow != nil {
		v := *erFast - *erSlow
		row.Breakout = &v
	}

	tsNorm := 0.0
	if st, ok := row.Stat(WindowRef); ok && st.TS != nil && tsRef > 0 {
		tsNorm = math.Min(1.0, math.Abs(*st.TS)/tsRef)
	}

	if erRef == nil {
		for _, w := range row.Windows {
			if w.ER != nil {
				erRef = w.ER
				break
			}
		}
	}
	if erRef == nil {
		return
	}
	if erSlow == nil {
		erSlow = erRef
	}

	trend := weightERRef*(*erRef) + weightERSlow*(*erSlow) + weightTS*tsNorm
	chop := 1.0 - 0.5*(*erRef) - 0.5*(*erSlow)
	row.TrendScore = &trend
	row.ChopScore = &chop
}

func applyMaturity(row *domain.FeatureRow, seg *segment.State, idx int, price float64) {
	m := seg.Maturity(idx, price)

	row.TrendActive = seg.Active()
	row.TrendAgeS = m.Age
	row.EMATrendDurS = m.EMADur
	row.EMATrendMoveTicks = m.EMAMove
	row.AgeRatio = m.AgeRatio
	row.MoveRatio = m.MoveRatio
	row.Maturity = m.Value
	row.Mature, row.OKEntry = maturityFlags(m.Value)
}

// maturityFlags applies the two independent maturity thresholds.
// Values in [0.6, 0.8) set neither flag.
func maturityFlags(v float64) (mature, okEntry bool) {
	return v >= MatureThreshold, v < OKEntryThreshold
}

func erOf(row *domain.FeatureRow, n int) *float64 {
	st, ok := row.Stat(n)
	if !ok {
		return nil
	}
	return st.ER
}
