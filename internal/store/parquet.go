package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"hindcast/internal/domain"
)

// Compile-time interface check.
var _ BarCache = (*ParquetCache)(nil)

// ParquetCache implements BarCache using Parquet files on disk, one file
// per venue/interval/symbol/year.
type ParquetCache struct {
	DataDir string
}

// NewParquetCache creates a ParquetCache rooted at the given data directory.
func NewParquetCache(dataDir string) *ParquetCache {
	return &ParquetCache{DataDir: dataDir}
}

// BarRecord is the Parquet schema for cached bars.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// ---------------------------------------------------------------------------
// BarCache implementation
// ---------------------------------------------------------------------------

// WriteBars writes bars to Parquet files grouped by symbol and year:
//
//	<DataDir>/<venue>/<interval>/<SYMBOL>/<YYYY>.parquet
//
// Bars already cached for the same (symbol, timestamp) are replaced.
func (c *ParquetCache) WriteBars(_ context.Context, venue string, interval domain.Interval, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		k := key{symbol: b.Symbol, year: b.Timestamp.Year()}
		groups[k] = append(groups[k], BarRecord{
			Symbol:    b.Symbol,
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	for k, records := range groups {
		path := c.barPath(venue, k.symbol, interval, k.year)

		// Read existing records to merge; a missing file is an empty set.
		existing, _ := readParquetFile[BarRecord](path)
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// ReadBars reads cached bars for the given symbol and time range.
func (c *ParquetCache) ReadBars(_ context.Context, venue, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	for year := start.Year(); year <= end.Year(); year++ {
		path := c.barPath(venue, symbol, interval, year)

		records, err := readParquetFile[BarRecord](path)
		if err != nil {
			// No file cached for this year.
			continue
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			bars = append(bars, domain.Bar{
				Symbol:    r.Symbol,
				Timestamp: ts,
				Open:      r.Open,
				High:      r.High,
				Low:       r.Low,
				Close:     r.Close,
				Volume:    r.Volume,
			})
		}
	}
	return bars, nil
}

// ListSymbols lists all symbols cached for the venue and interval.
func (c *ParquetCache) ListSymbols(_ context.Context, venue string, interval domain.Interval) ([]string, error) {
	dir := filepath.Join(c.DataDir, venue, string(interval))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// barPath returns the filesystem path for one year of cached bars.
func (c *ParquetCache) barPath(venue, symbol string, interval domain.Interval, year int) string {
	return filepath.Join(c.DataDir, venue, string(interval), strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeBarRecords deduplicates bar records by (symbol, timestamp),
// preferring incoming records over existing ones. Results are sorted by
// timestamp.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].Symbol < merged[j].Symbol
	})
	return merged
}
