// Package store implements the local bar cache behind the data feeds: bars
// fetched from a venue are persisted once and replayed from disk on
// subsequent runs. Two backends are provided, Parquet files and SQLite.
package store

import (
	"context"
	"time"

	"hindcast/internal/domain"
)

// BarCache persists and retrieves OHLCV bars keyed by venue, symbol, and
// interval.
type BarCache interface {
	// WriteBars persists a batch of bars fetched from the named venue,
	// merging with any bars already cached for the same timestamps.
	WriteBars(ctx context.Context, venue string, interval domain.Interval, bars []domain.Bar) error

	// ReadBars returns cached bars for the symbol within [start, end],
	// sorted by timestamp.
	ReadBars(ctx context.Context, venue, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns the distinct symbols cached for the venue and
	// interval, sorted.
	ListSymbols(ctx context.Context, venue string, interval domain.Interval) ([]string, error)
}
