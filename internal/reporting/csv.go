package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"

	"trendchop/internal/domain"
	"trendchop/internal/idhash"
)

// trailingColumns follow the per-window er_/ts_ columns. The trend_dir column
// is prepended with the reference window in its name.
var trailingColumns = []string{
	"trend_score", "chop_score",
	"breakout_er30_er300", "exhaust_er120_er300",
	"trend_active", "trend_age_s",
	"ema_trend_dur_s", "ema_trend_move_ticks",
	"age_ratio", "move_ratio", "trend_maturity",
	"trend_mature_08", "trend_ok_entry_06",
}

// OutputPath returns the dated CSV path inside outDir.
func OutputPath(outDir, date string) string {
	return filepath.Join(outDir, date+"_trendchop.csv")
}

// Header returns the CSV header for the given ascending windows and reference window.
func Header(windows []int, refWindow int) []string {
	h := []string{"write_ts", "symbol", "mid", "tick_size", "mid_ticks"}
	for _, w := range windows {
		h = append(h, fmt.Sprintf("er_%d", w), fmt.Sprintf("ts_%d", w))
	}
	h = append(h, fmt.Sprintf("trend_dir_%d", refWindow))
	return append(h, trailingColumns...)
}

// RenderCSV renders feature rows as CSV bytes.
// Rows are written in the order given; NULL values become empty fields.
func RenderCSV(rows []*domain.FeatureRow, windows []int, refWindow int) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header(windows, refWindow)); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	record := make([]string, 0, 5+2*len(windows)+1+len(trailingColumns))
	for _, r := range rows {
		record = record[:0]
		record = append(record,
			r.WriteTS,
			r.Symbol,
			formatFloat(r.Mid),
			formatFloat(r.TickSize),
			formatFloat(r.MidTicks),
		)
		for _, n := range windows {
			st, _ := r.Stat(n)
			record = append(record, formatNullable(st.ER), formatNullable(st.TS))
		}
		record = append(record,
			strconv.Itoa(r.TrendDir),
			formatNullable(r.TrendScore),
			formatNullable(r.ChopScore),
			formatNullable(r.Breakout),
			formatNullable(r.Exhaustion),
			formatBool(r.TrendActive),
			formatFloat(r.TrendAgeS),
			formatNullable(r.EMATrendDurS),
			formatNullable(r.EMATrendMoveTicks),
			formatFloat(r.AgeRatio),
			formatFloat(r.MoveRatio),
			formatFloat(r.Maturity),
			formatBool(r.Mature),
			formatBool(r.OKEntry),
		)
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row %s/%s: %w", r.Symbol, r.WriteTS, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV renders rows, writes them atomically to path and returns the
// SHA256 digest of the written bytes.
func WriteCSV(path string, rows []*domain.FeatureRow, windows []int, refWindow int) (string, error) {
	data, err := RenderCSV(rows, windows, refWindow)
	if err != nil {
		return "", err
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return idhash.ComputeContentDigest(data), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
