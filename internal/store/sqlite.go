package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"hindcast/internal/domain"
)

// Compile-time interface check.
var _ BarCache = (*SQLiteCache)(nil)

// SQLiteCache implements BarCache backed by a single SQLite database. It
// trades the Parquet layout's per-file organisation for range queries in
// one table, which suits intraday intervals with many small writes.
type SQLiteCache struct {
	db *sql.DB
}

const barsSchema = `
CREATE TABLE IF NOT EXISTS bars (
	venue    TEXT    NOT NULL,
	symbol   TEXT    NOT NULL,
	interval TEXT    NOT NULL,
	ts       INTEGER NOT NULL, -- Unix ms
	open     REAL    NOT NULL,
	high     REAL    NOT NULL,
	low      REAL    NOT NULL,
	close    REAL    NOT NULL,
	volume   REAL    NOT NULL,
	PRIMARY KEY (venue, symbol, interval, ts)
);`

// NewSQLiteCache opens (or creates) a SQLite database at dbPath, ensures
// the bars table exists, and returns a ready-to-use cache.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening sqlite cache %s: %w", dbPath, err)
	}
	if _, err := db.Exec(barsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bars table: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Close closes the underlying database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

// WriteBars upserts a batch of bars inside a single transaction.
func (c *SQLiteCache) WriteBars(ctx context.Context, venue string, interval domain.Interval, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars
			(venue, symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			venue, b.Symbol, string(interval), b.Timestamp.UnixMilli(),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		); err != nil {
			return fmt.Errorf("inserting bar %s@%s: %w", b.Symbol, b.Timestamp, err)
		}
	}

	return tx.Commit()
}

// ReadBars returns cached bars for the symbol within [start, end], ordered
// by timestamp.
func (c *SQLiteCache) ReadBars(ctx context.Context, venue, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT symbol, ts, open, high, low, close, volume
		FROM bars
		WHERE venue = ? AND symbol = ? AND interval = ? AND ts BETWEEN ? AND ?
		ORDER BY ts`,
		venue, symbol, string(interval), start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var ts int64
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Timestamp = time.UnixMilli(ts).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns the distinct symbols cached for the venue and
// interval, sorted.
func (c *SQLiteCache) ListSymbols(ctx context.Context, venue string, interval domain.Interval) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT symbol FROM bars
		WHERE venue = ? AND interval = ?
		ORDER BY symbol`,
		venue, string(interval))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}
