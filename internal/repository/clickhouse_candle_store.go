package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"StockResearch/internal/domain/models"
	domrepo "StockResearch/internal/domain/repository"
	pkgch "StockResearch/pkg/clickhouse"
	applogger "StockResearch/pkg/logger"
)

// MaxCandles caps one GetLatestNCandles read.
const MaxCandles = 5000

// CHCandleStore implements CandleStore backed by ClickHouse.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, l *applogger.Logger) *CHCandleStore {
	return newCHCandleStore(ch.DB(), ch.Database()+"."+pkgch.CandlesTable, l)
}

func newCHCandleStore(db *sql.DB, table string, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHCandleStore{db: db, table: table, l: l}
}

func (s *CHCandleStore) latestQuery() string {
	return fmt.Sprintf(`
        SELECT ts, open, high, low, close, volume
        FROM %s FINAL
        WHERE market = ? AND symbol = ? AND interval = ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.table)
}

// GetLatestNCandles returns up to n most recent candles in ascending time order.
func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, market, symbol string, interval domrepo.Interval, n int) ([]models.Candle, error) {
	if n <= 0 {
		return []models.Candle{}, nil
	}
	if n > MaxCandles {
		n = MaxCandles
	}
	start := time.Now()
	fields := []applogger.Field{
		applogger.String("table", s.table),
		applogger.String("market", market),
		applogger.String("symbol", symbol),
		applogger.String("interval", string(interval)),
		applogger.Int("limit", n),
	}

	rows, err := s.db.QueryContext(ctx, s.latestQuery(), market, symbol, string(interval), n)
	if err != nil {
		s.l.Error("clickhouse latest_candles query error", append(fields, applogger.Error(err))...)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.l.Error("clickhouse latest_candles scan error", append(fields, applogger.Error(err))...)
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse latest_candles rows error", append(fields, applogger.Error(err))...)
		return nil, fmt.Errorf("rows: %w", err)
	}

	reverse(out)
	s.l.Debug("clickhouse latest_candles ok", append(fields,
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))...)
	return out, nil
}

// reverse flips DESC query order to ASC.
func reverse(cs []models.Candle) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
