package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hindcast/internal/domain"
	"hindcast/internal/util"
)

var _ Source = (*BinanceSource)(nil)

// binanceMaxLimit is the largest kline page the exchange serves per call.
const binanceMaxLimit = 1000

// BinanceSource fetches crypto bars from the Binance spot klines endpoint.
// No credentials are needed; the endpoint is public.
type BinanceSource struct {
	baseURL    string
	client     *http.Client
	limiter    *util.RateLimiter
	retryDelay time.Duration
	log        *slog.Logger
}

// NewBinanceSource creates a BinanceSource against baseURL, or the public
// exchange endpoint when baseURL is empty. ratePerMin caps request
// frequency; zero disables the limiter.
func NewBinanceSource(baseURL string, ratePerMin int) *BinanceSource {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 15 * time.Second},
		limiter:    util.NewRateLimiter(ratePerMin),
		retryDelay: time.Second,
		log:        slog.Default().With("feed", "binance"),
	}
}

func (s *BinanceSource) Name() string { return "binance" }

// Fetch pages through the klines endpoint until the range is covered or a
// short page signals the end of available data.
func (s *BinanceSource) Fetch(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	pair := NormalizeSymbol(symbol)
	step := interval.Duration()

	var all []domain.Bar
	cursor := start
	for !cursor.After(end) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var page []domain.Bar
		err := util.Retry(ctx, 3, s.retryDelay, func() error {
			var err error
			page, err = s.fetchPage(ctx, pair, symbol, interval, cursor, end)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetching %s klines: %w", pair, err)
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)
		cursor = page[len(page)-1].Timestamp.Add(step)
		if len(page) < binanceMaxLimit {
			break
		}
	}

	s.log.Debug("fetched klines", "pair", pair, "interval", interval, "count", len(all))
	return all, nil
}

func (s *BinanceSource) fetchPage(ctx context.Context, pair, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	q := url.Values{}
	q.Set("symbol", pair)
	q.Set("interval", string(interval))
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(binanceMaxLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding klines: %w", err)
	}

	bars := make([]domain.Bar, 0, len(rows))
	for _, row := range rows {
		bar, err := parseKline(symbol, row)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// parseKline converts one kline row. Rows mix types: the open time is a
// millisecond number, the OHLCV fields are decimal strings.
func parseKline(symbol string, row []any) (domain.Bar, error) {
	if len(row) < 6 {
		return domain.Bar{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}
	openMillis, ok := row[0].(float64)
	if !ok {
		return domain.Bar{}, fmt.Errorf("kline open time is %T, want number", row[0])
	}
	var vals [5]float64
	for i := 1; i <= 5; i++ {
		str, ok := row[i].(string)
		if !ok {
			return domain.Bar{}, fmt.Errorf("kline field %d is %T, want string", i, row[i])
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("kline field %d: %w", i, err)
		}
		vals[i-1] = v
	}
	return domain.Bar{
		Symbol:    symbol,
		Timestamp: time.UnixMilli(int64(openMillis)).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

// NormalizeSymbol converts common pair spellings to the exchange format:
// BTC-USD, BTC/USD, and BTCUSD all become BTCUSDT, while pairs already
// quoted in USDT, BUSD, BTC, or ETH pass through unchanged.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.NewReplacer("-", "", "/", "").Replace(symbol))
	for _, quote := range []string{"USDT", "BUSD", "BTC", "ETH"} {
		if strings.HasSuffix(s, quote) {
			return s
		}
	}
	if strings.HasSuffix(s, "USD") {
		return s + "T"
	}
	return s + "USDT"
}
