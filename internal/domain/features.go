package domain

// WindowStat holds the rolling statistics of one window at one index.
// Nil values mean the window has insufficient history.
type WindowStat struct {
	Window int
	ER     *float64 // efficiency ratio
	TS     *float64 // return t-statistic
}

// FeatureRow is the trend/chop record for one (symbol, index) step.
// Corresponds to trendchop_features table in ClickHouse and one line of the daily CSV.
type FeatureRow struct {
	Date     string // YYYYMMDD of the run
	WriteTS  string
	Symbol   string
	Seq      int // index in the symbol's series; write_ts may repeat, Seq does not
	Mid      float64
	TickSize float64
	MidTicks float64

	Windows []WindowStat // ascending by Window

	TrendDirWindow int // reference window used for TrendDir
	TrendDir       int // sign of the tick delta over TrendDirWindow, 0 without history

	TrendScore *float64 // NULL until any window has history
	ChopScore  *float64 // NULL until any window has history
	Breakout   *float64 // ER_30 - ER_300, NULL unless both defined
	Exhaustion *float64 // ER_120 - ER_300, NULL unless both defined

	TrendActive       bool
	TrendAgeS         float64
	EMATrendDurS      *float64 // NULL before the first segment close
	EMATrendMoveTicks *float64 // NULL before the first segment close
	AgeRatio          float64
	MoveRatio         float64
	Maturity          float64
	Mature            bool // Maturity >= 0.8
	OKEntry           bool // Maturity < 0.6
}

// Stat returns the statistics for window n, or false if n is not configured.
func (r *FeatureRow) Stat(n int) (WindowStat, bool) {
	for _, w := range r.Windows {
		if w.Window == n {
			return w, true
		}
	}
	return WindowStat{}, false
}

// Clone returns a deep copy of the row.
func (r *FeatureRow) Clone() *FeatureRow {
	c := *r
	c.Windows = make([]WindowStat, len(r.Windows))
	for i, w := range r.Windows {
		c.Windows[i] = WindowStat{Window: w.Window, ER: copyFloat(w.ER), TS: copyFloat(w.TS)}
	}
	c.TrendScore = copyFloat(r.TrendScore)
	c.ChopScore = copyFloat(r.ChopScore)
	c.Breakout = copyFloat(r.Breakout)
	c.Exhaustion = copyFloat(r.Exhaustion)
	c.EMATrendDurS = copyFloat(r.EMATrendDurS)
	c.EMATrendMoveTicks = copyFloat(r.EMATrendMoveTicks)
	return &c
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
