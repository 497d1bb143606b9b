package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"hindcast/internal/domain"
)

func sampleBars() []domain.Bar {
	return []domain.Bar{
		{
			Symbol:    "AAPL",
			Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:      185.0, High: 186.5, Low: 184.0, Close: 185.5,
			Volume: 50000000,
		},
		{
			Symbol:    "AAPL",
			Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			Open:      185.5, High: 187.0, Low: 185.0, Close: 186.0,
			Volume: 45000000,
		},
	}
}

func TestParquetCachePath(t *testing.T) {
	pc := NewParquetCache("/data")

	bp := pc.barPath("alpaca", "AAPL", domain.Interval1Day, 2024)
	want := filepath.Join("/data", "alpaca", "1d", "AAPL", "2024.parquet")
	if bp != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, want)
	}

	// Symbols are upper-cased in the layout.
	bp = pc.barPath("binance", "btcusdt", domain.Interval1Hour, 2023)
	want = filepath.Join("/data", "binance", "1h", "BTCUSDT", "2023.parquet")
	if bp != want {
		t.Errorf("barPath mismatch:\n  got  %s\n  want %s", bp, want)
	}
}

func TestParquetCacheWriteReadBars(t *testing.T) {
	pc := NewParquetCache(t.TempDir())
	ctx := context.Background()

	if err := pc.WriteBars(ctx, "alpaca", domain.Interval1Day, sampleBars()); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := pc.ReadBars(ctx, "alpaca", "AAPL", domain.Interval1Day, start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars, want 2", len(got))
	}
	if got[0].Close != 185.5 {
		t.Errorf("first bar Close = %v, want 185.5", got[0].Close)
	}
	if got[1].Close != 186.0 {
		t.Errorf("second bar Close = %v, want 186.0", got[1].Close)
	}

	// A range excluding both bars returns nothing.
	empty, err := pc.ReadBars(ctx, "alpaca", "AAPL", domain.Interval1Day,
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), end)
	if err != nil {
		t.Fatalf("ReadBars (empty range): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ReadBars outside range returned %d bars, want 0", len(empty))
	}
}

func TestParquetCacheMergeBars(t *testing.T) {
	pc := NewParquetCache(t.TempDir())
	ctx := context.Background()

	first := []domain.Bar{{
		Symbol:    "MSFT",
		Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Open:      400.0, High: 405.0, Low: 399.0, Close: 403.0, Volume: 30000000,
	}}
	if err := pc.WriteBars(ctx, "alpaca", domain.Interval1Day, first); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Second write: one new bar plus a revision of the existing one.
	second := []domain.Bar{
		{
			Symbol:    "MSFT",
			Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Open:      400.0, High: 405.0, Low: 399.0, Close: 404.0, Volume: 31000000,
		},
		{
			Symbol:    "MSFT",
			Timestamp: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			Open:      403.0, High: 410.0, Low: 402.0, Close: 408.0, Volume: 35000000,
		},
	}
	if err := pc.WriteBars(ctx, "alpaca", domain.Interval1Day, second); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	got, err := pc.ReadBars(ctx, "alpaca", "MSFT", domain.Interval1Day, start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadBars returned %d bars after merge, want 2", len(got))
	}
	// The revised bar replaced the original.
	if got[0].Close != 404.0 {
		t.Errorf("merged bar Close = %v, want 404.0 (incoming wins)", got[0].Close)
	}
}

func TestParquetCacheListSymbols(t *testing.T) {
	pc := NewParquetCache(t.TempDir())
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "AAPL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 185, High: 186, Low: 184, Close: 185.5, Volume: 50000000},
		{Symbol: "GOOGL", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 140, High: 141, Low: 139, Close: 140.5, Volume: 20000000},
	}
	if err := pc.WriteBars(ctx, "alpaca", domain.Interval1Day, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := pc.ListSymbols(ctx, "alpaca", domain.Interval1Day)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "GOOGL" {
		t.Errorf("ListSymbols = %v, want [AAPL GOOGL]", symbols)
	}

	// Unknown venue yields no symbols and no error.
	none, err := pc.ListSymbols(ctx, "binance", domain.Interval1Day)
	if err != nil {
		t.Fatalf("ListSymbols (unknown venue): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListSymbols for unknown venue = %v, want empty", none)
	}
}

func TestSQLiteCacheWriteReadBars(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bars.db")
	sc, err := NewSQLiteCache(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteCache(%q) returned error: %v", dbPath, err)
	}
	defer func() {
		if cerr := sc.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	}()
	ctx := context.Background()

	if err := sc.WriteBars(ctx, "alpaca", domain.Interval1Day, sampleBars()); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 23, 59, 59, 0, time.UTC)
	got, err := sc.ReadBars(ctx, "alpaca", "AAPL", domain.Interval1Day, start, end)
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	// Range ends before the second bar; only the first comes back.
	if len(got) != 1 {
		t.Fatalf("ReadBars returned %d bars, want 1", len(got))
	}
	if got[0].Close != 185.5 {
		t.Errorf("bar Close = %v, want 185.5", got[0].Close)
	}
	if !got[0].Timestamp.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("bar Timestamp = %v, want 2024-01-02", got[0].Timestamp)
	}
}

func TestSQLiteCacheUpsert(t *testing.T) {
	sc, err := NewSQLiteCache(filepath.Join(t.TempDir(), "bars.db"))
	if err != nil {
		t.Fatalf("NewSQLiteCache returned error: %v", err)
	}
	defer sc.Close()
	ctx := context.Background()

	bar := domain.Bar{
		Symbol:    "BTCUSDT",
		Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Open:      60000, High: 61000, Low: 59500, Close: 60500, Volume: 1234.5,
	}
	if err := sc.WriteBars(ctx, "binance", domain.Interval1Day, []domain.Bar{bar}); err != nil {
		t.Fatalf("WriteBars (first): %v", err)
	}

	// Rewriting the same timestamp replaces the row rather than duplicating.
	bar.Close = 60750
	if err := sc.WriteBars(ctx, "binance", domain.Interval1Day, []domain.Bar{bar}); err != nil {
		t.Fatalf("WriteBars (second): %v", err)
	}

	got, err := sc.ReadBars(ctx, "binance", "BTCUSDT", domain.Interval1Day,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadBars returned %d bars after upsert, want 1", len(got))
	}
	if got[0].Close != 60750 {
		t.Errorf("upserted bar Close = %v, want 60750", got[0].Close)
	}
}

func TestSQLiteCacheListSymbols(t *testing.T) {
	sc, err := NewSQLiteCache(filepath.Join(t.TempDir(), "bars.db"))
	if err != nil {
		t.Fatalf("NewSQLiteCache returned error: %v", err)
	}
	defer sc.Close()
	ctx := context.Background()

	bars := []domain.Bar{
		{Symbol: "ETHUSDT", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 2300, High: 2350, Low: 2280, Close: 2330, Volume: 999.25},
		{Symbol: "BTCUSDT", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 44000, High: 44500, Low: 43800, Close: 44200, Volume: 512.75},
	}
	if err := sc.WriteBars(ctx, "binance", domain.Interval1Day, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	symbols, err := sc.ListSymbols(ctx, "binance", domain.Interval1Day)
	if err != nil {
		t.Fatalf("ListSymbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "BTCUSDT" || symbols[1] != "ETHUSDT" {
		t.Errorf("ListSymbols = %v, want [BTCUSDT ETHUSDT]", symbols)
	}

	// Different interval has no entries.
	none, err := sc.ListSymbols(ctx, "binance", domain.Interval1Hour)
	if err != nil {
		t.Fatalf("ListSymbols (1h): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListSymbols for 1h = %v, want empty", none)
	}
}
