package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"

	"trendchop/internal/domain"
	"trendchop/internal/storage"
)

// FeatureRowStore implements storage.FeatureRowStore using ClickHouse.
type FeatureRowStore struct {
	conn *Conn
}

// NewFeatureRowStore creates a new FeatureRowStore.
func NewFeatureRowStore(conn *Conn) *FeatureRowStore {
	return &FeatureRowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureRowStore = (*FeatureRowStore)(nil)

const featureColumns = `
	date, write_ts, symbol, seq,
	mid, tick_size, mid_ticks,
	windows, er, ts,
	trend_dir_window, trend_dir,
	trend_score, chop_score, breakout, exhaustion,
	trend_active, trend_age_s, ema_trend_dur_s, ema_trend_move_ticks,
	age_ratio, move_ratio, maturity, mature, ok_entry
`

// ReplaceDate deletes the date's rows synchronously, then batch-inserts rows.
func (s *FeatureRowStore) ReplaceDate(ctx context.Context, date string, rows []*domain.FeatureRow) error {
	if err := storage.ValidateDateRows(date, rows); err != nil {
		return err
	}

	// The mutation must finish before the insert, otherwise it would also drop the new rows.
	delCtx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 1,
	}))
	if err := s.conn.Exec(delCtx, `ALTER TABLE trendchop_features DELETE WHERE date = ?`, date); err != nil {
		return fmt.Errorf("delete date %s: %w", date, err)
	}

	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO trendchop_features (`+featureColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		windows := make([]uint32, len(r.Windows))
		ers := make([]*float64, len(r.Windows))
		tss := make([]*float64, len(r.Windows))
		for i, w := range r.Windows {
			windows[i] = uint32(w.Window)
			ers[i] = w.ER
			tss[i] = w.TS
		}

		// Pass nil values directly for Nullable columns
		err = batch.Append(
			r.Date, r.WriteTS, r.Symbol, uint32(r.Seq),
			r.Mid, r.TickSize, r.MidTicks,
			windows, ers, tss,
			uint32(r.TrendDirWindow), int8(r.TrendDir),
			r.TrendScore, r.ChopScore, r.Breakout, r.Exhaustion,
			r.TrendActive, r.TrendAgeS, r.EMATrendDurS, r.EMATrendMoveTicks,
			r.AgeRatio, r.MoveRatio, r.Maturity, r.Mature, r.OKEntry,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByDate retrieves all rows of a date, ordered by (write_ts, symbol, seq).
func (s *FeatureRowStore) GetByDate(ctx context.Context, date string) ([]*domain.FeatureRow, error) {
	query := `SELECT ` + featureColumns + `
		FROM trendchop_features
		WHERE date = ?
		ORDER BY write_ts ASC, symbol ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("query by date: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// GetBySymbol retrieves one symbol's rows of a date, ordered by seq.
func (s *FeatureRowStore) GetBySymbol(ctx context.Context, date, symbol string) ([]*domain.FeatureRow, error) {
	query := `SELECT ` + featureColumns + `
		FROM trendchop_features
		WHERE date = ? AND symbol = ?
		ORDER BY seq ASC
	`

	rows, err := s.conn.Query(ctx, query, date, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// scanFeatureRows scans multiple rows.
func scanFeatureRows(rows chRows) ([]*domain.FeatureRow, error) {
	var result []*domain.FeatureRow

	for rows.Next() {
		var r domain.FeatureRow
		var windows []uint32
		var ers, tss []*float64
		var seq, trendDirWindow uint32
		var trendDir int8

		err := rows.Scan(
			&r.Date, &r.WriteTS, &r.Symbol, &seq,
			&r.Mid, &r.TickSize, &r.MidTicks,
			&windows, &ers, &tss,
			&trendDirWindow, &trendDir,
			&r.TrendScore, &r.ChopScore, &r.Breakout, &r.Exhaustion,
			&r.TrendActive, &r.TrendAgeS, &r.EMATrendDurS, &r.EMATrendMoveTicks,
			&r.AgeRatio, &r.MoveRatio, &r.Maturity, &r.Mature, &r.OKEntry,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		if len(ers) != len(windows) || len(tss) != len(windows) {
			return nil, fmt.Errorf("feature row %s/%s: window arrays differ in length", r.Symbol, r.WriteTS)
		}

		r.Windows = make([]domain.WindowStat, len(windows))
		for i, w := range windows {
			r.Windows[i] = domain.WindowStat{Window: int(w), ER: ers[i], TS: tss[i]}
		}
		r.Seq = int(seq)
		r.TrendDirWindow = int(trendDirWindow)
		r.TrendDir = int(trendDir)

		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}

	return result, nil
}
