// Package feed retrieves OHLCV bar series from market data providers.
// Every source returns bars for one symbol in ascending timestamp order;
// CachedSource wraps any of them with read-through local caching.
package feed

import (
	"context"
	"time"

	"hindcast/internal/domain"
)

// Source fetches bars for one symbol over a closed time range.
type Source interface {
	// Name identifies the source in logs and cache paths.
	Name() string

	// Fetch returns the bars between start and end inclusive, oldest
	// first. A range with no data returns an empty slice, not an error.
	Fetch(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error)
}
