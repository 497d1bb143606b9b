package feed

import (
	"context"
	"log/slog"
	"time"

	"hindcast/internal/domain"
	"hindcast/internal/store"
)

var _ Source = (*CachedSource)(nil)

// CachedSource serves bars from the local cache and falls back to the
// wrapped source on a miss, writing what it fetched for next time. Cache
// failures degrade to a direct fetch instead of failing the caller.
type CachedSource struct {
	src   Source
	cache store.BarCache
	log   *slog.Logger

	// ForceRefresh skips the cache read so the next fetch goes to the
	// source and overwrites stale rows.
	ForceRefresh bool
}

func NewCachedSource(src Source, cache store.BarCache) *CachedSource {
	return &CachedSource{
		src:   src,
		cache: cache,
		log:   slog.Default().With("feed", src.Name(), "cached", true),
	}
}

func (s *CachedSource) Name() string { return s.src.Name() }

func (s *CachedSource) Fetch(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	if !s.ForceRefresh {
		cached, err := s.cache.ReadBars(ctx, s.src.Name(), symbol, interval, start, end)
		if err != nil {
			s.log.Warn("cache read failed, fetching from source", "symbol", symbol, "err", err)
		} else if len(cached) > 0 {
			s.log.Debug("cache hit", "symbol", symbol, "count", len(cached))
			return cached, nil
		}
	}

	bars, err := s.src.Fetch(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		if err := s.cache.WriteBars(ctx, s.src.Name(), interval, bars); err != nil {
			s.log.Warn("cache write failed", "symbol", symbol, "err", err)
		}
	}
	return bars, nil
}
