package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"hindcast/internal/domain"
)

var _ Source = (*AlpacaSource)(nil)

// AlpacaSource fetches US equity bars from the Alpaca market-data API.
type AlpacaSource struct {
	client *marketdata.Client
	log    *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials.
// dataURL overrides the default API endpoint when non-empty.
func NewAlpacaSource(apiKey, apiSecret, dataURL string) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaSource{
		client: marketdata.NewClient(opts),
		log:    slog.Default().With("feed", "alpaca"),
	}
}

func (s *AlpacaSource) Name() string { return "alpaca" }

// Fetch retrieves bars for the symbol via GetBars.
func (s *AlpacaSource) Fetch(ctx context.Context, symbol string, interval domain.Interval, start, end time.Time) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	tf, err := alpacaTimeFrame(interval)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     start,
		End:       end,
		Feed:      "sip",
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, ab := range raw {
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: ab.Timestamp,
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    float64(ab.Volume),
		})
	}
	s.log.Debug("fetched bars", "symbol", symbol, "interval", interval, "count", len(bars))
	return bars, nil
}

func alpacaTimeFrame(interval domain.Interval) (marketdata.TimeFrame, error) {
	switch interval {
	case domain.Interval1Min:
		return marketdata.OneMin, nil
	case domain.Interval5Min:
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case domain.Interval15Min:
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case domain.Interval1Hour:
		return marketdata.OneHour, nil
	case domain.Interval1Day:
		return marketdata.OneDay, nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("unsupported interval %q", interval)
	}
}
