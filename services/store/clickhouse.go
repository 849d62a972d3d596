// Package store persists candles in ClickHouse. The table is a
// ReplacingMergeTree keyed on (symbol, interval, open_time_ms) so re-ingesting
// a range is idempotent: the newest version wins at merge time.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	chproto "github.com/ClickHouse/clickhouse-go/v2/lib/proto"
	"go.uber.org/zap"

	"futures-backtest/services/engine"
)

type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

type Store struct {
	conn     clickhouse.Conn
	database string
	table    string
	log      *zap.Logger
}

const candleTable = "candles"

func New(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %s", explainError(err))
	}
	return &Store{conn: conn, database: opts.Database, table: candleTable, log: log}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// EnsureSchema creates the database and candle table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			symbol String,
			interval LowCardinality(String),
			open_time_ms UInt64,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			ingested_at DateTime64(3),
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, interval, open_time_ms)
		SETTINGS index_granularity = 8192
	`, s.database, s.table)
	return s.conn.Exec(ctx, ddl)
}

// InsertBars writes the bars in one deduplicated batch. All rows in the batch
// share a version so a retried insert cannot interleave with itself.
func (s *Store) InsertBars(ctx context.Context, symbol, timeframe string, bars []engine.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO %s.%s SETTINGS insert_deduplicate=1", s.database, s.table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	now := time.Now().UTC()
	ver := uint64(now.UnixNano())
	for _, b := range bars {
		if err := batch.Append(
			symbol, timeframe,
			uint64(b.Time.UnixMilli()),
			b.Open, b.High, b.Low, b.Close,
			b.Volume,
			now,
			ver,
		); err != nil {
			return fmt.Errorf("batch append: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("batch send: %s", explainError(err))
	}
	s.log.Info("candles inserted",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("rows", len(bars)),
	)
	return nil
}

// LoadSeries reads the candle range back as a normalized series. FINAL
// collapses ReplacingMergeTree duplicates that have not merged yet. Zero
// start or end leaves that side unbounded.
func (s *Store) LoadSeries(ctx context.Context, symbol, timeframe string, start, end time.Time) (*engine.Series, error) {
	q := fmt.Sprintf(`
		SELECT open_time_ms, open, high, low, close, volume
		FROM %s.%s FINAL
		WHERE symbol = ? AND interval = ?
	`, s.database, s.table)
	args := []any{symbol, timeframe}
	if !start.IsZero() {
		q += " AND open_time_ms >= ?"
		args = append(args, uint64(start.UnixMilli()))
	}
	if !end.IsZero() {
		q += " AND open_time_ms <= ?"
		args = append(args, uint64(end.UnixMilli()))
	}
	q += " ORDER BY open_time_ms"

	rows, err := s.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query candles: %s", explainError(err))
	}
	defer rows.Close()

	series := &engine.Series{Symbol: symbol, Timeframe: timeframe}
	for rows.Next() {
		var (
			openMs uint64
			bar    engine.Bar
		)
		if err := rows.Scan(&openMs, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		bar.Time = time.UnixMilli(int64(openMs)).UTC()
		series.Bars = append(series.Bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read candles: %w", err)
	}
	if len(series.Bars) == 0 {
		return nil, fmt.Errorf("no candles for %s %s in range", symbol, timeframe)
	}
	series.Normalize()
	return series, nil
}

// CountBars returns how many candles exist for a symbol/timeframe.
func (s *Store) CountBars(ctx context.Context, symbol, timeframe string) (uint64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		fmt.Sprintf("SELECT count() FROM %s.%s WHERE symbol = ? AND interval = ?", s.database, s.table),
		symbol, timeframe,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count candles: %w", err)
	}
	return count, nil
}

func explainError(err error) string {
	var ex *chproto.Exception
	if errors.As(err, &ex) {
		return fmt.Sprintf("ClickHouse [%d] %s (%s)", ex.Code, ex.Message, ex.Name)
	}
	return err.Error()
}
