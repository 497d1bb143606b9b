// Package report renders completed runs for humans and for downstream
// tools: a sectioned text report, indented JSON, and a Parquet equity
// curve.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"hindcast/internal/engine"
)

// WriteJSON writes the full result as indented JSON.
func WriteJSON(w io.Writer, res *engine.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteSummariesJSON writes the flat digests of several runs as indented
// JSON, in the given order.
func WriteSummariesJSON(w io.Writer, summaries []engine.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}

// WriteText renders a sectioned human-readable report.
func WriteText(w io.Writer, res *engine.Result) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "==========================================================\n")
	fmt.Fprintf(bw, " Backtest: %s / %s\n", res.Symbol, res.Strategy)
	fmt.Fprintf(bw, "==========================================================\n")
	if res.BarCount > 0 {
		fmt.Fprintf(bw, "Period:           %s .. %s (%d bars)\n",
			res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"), res.BarCount)
	} else {
		fmt.Fprintf(bw, "Period:           empty\n")
	}
	fmt.Fprintf(bw, "Reference price:  %s\n", res.Config.RefPrice)
	fmt.Fprintf(bw, "Costs:            commission %.4f, slippage %.4f\n",
		res.Config.CommissionRate, res.Config.SlippageRate)

	m := res.Metrics
	fmt.Fprintf(bw, "\n--- Performance ---\n")
	fmt.Fprintf(bw, "Start value:      %.2f\n", res.StartValue)
	fmt.Fprintf(bw, "Final value:      %.2f\n", res.FinalValue)
	fmt.Fprintf(bw, "Total return:     %.2f%%\n", m.TotalReturn*100)
	fmt.Fprintf(bw, "Annualized:       %.2f%%\n", m.AnnualizedReturn*100)
	fmt.Fprintf(bw, "Sharpe ratio:     %.2f\n", m.SharpeRatio)
	fmt.Fprintf(bw, "Volatility:       %.2f%%\n", m.Volatility*100)

	fmt.Fprintf(bw, "\n--- Risk ---\n")
	fmt.Fprintf(bw, "Max drawdown:     %.2f%%\n", m.MaxDrawdown*100)
	if res.OpenPosition != nil {
		fmt.Fprintf(bw, "Open position:    %.4f @ %.2f\n",
			res.OpenPosition.Quantity, res.OpenPosition.AvgEntryPrice)
	}
	if n := len(res.Rejections); n > 0 {
		fmt.Fprintf(bw, "Rejections:       %d\n", n)
	}

	fmt.Fprintf(bw, "\n--- Trades ---\n")
	fmt.Fprintf(bw, "Total trades:     %d\n", m.TotalTrades)
	if m.TotalTrades > 0 {
		fmt.Fprintf(bw, "Win rate:         %.1f%%\n", m.WinRate*100)
		fmt.Fprintf(bw, "Profit factor:    %.2f\n", m.ProfitFactor)
		fmt.Fprintf(bw, "Avg win/loss:     %.2f / %.2f\n", m.AvgWin, m.AvgLoss)
		fmt.Fprintf(bw, "Largest win/loss: %.2f / %.2f\n", m.LargestWin, m.LargestLoss)

		fmt.Fprintf(bw, "\n%4s  %-5s  %-10s  %-10s  %10s  %12s\n",
			"#", "SIDE", "ENTRY", "EXIT", "QTY", "PNL")
		for i, tr := range res.Trades {
			fmt.Fprintf(bw, "%4d  %-5s  %-10s  %-10s  %10.4f  %12.2f\n",
				i+1, tr.Side,
				tr.EntryTime.Format("2006-01-02"), tr.ExitTime.Format("2006-01-02"),
				tr.Quantity, tr.RealizedPnL)
		}
	}

	return bw.Flush()
}

// equityRecord is the Parquet schema for one equity curve point.
type equityRecord struct {
	Timestamp   int64   `parquet:"timestamp,timestamp(millisecond)"`
	Cash        float64 `parquet:"cash"`
	PositionQty float64 `parquet:"position_qty"`
	MarketValue float64 `parquet:"market_value"`
	Equity      float64 `parquet:"equity"`
}

// WriteEquityParquet writes the equity curve to a Parquet file at path,
// creating parent directories as needed.
func WriteEquityParquet(path string, res *engine.Result) error {
	records := make([]equityRecord, len(res.EquityCurve))
	for i, s := range res.EquityCurve {
		records[i] = equityRecord{
			Timestamp:   s.Timestamp.UnixMilli(),
			Cash:        s.Cash,
			PositionQty: s.PositionQty,
			MarketValue: s.MarketValue,
			Equity:      s.Equity,
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing equity curve: %w", err)
	}
	return nil
}
