// Package marketdata adapts the Alpaca bars endpoint to the tabular shape the
// pipeline works on: one row per (symbol, timestamp).
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"quantviz/internal/frame"
	"quantviz/pkg/alpaca"
)

// BarsClient is the part of alpaca.RESTClient the adapter needs.
type BarsClient interface {
	GetBars(ctx context.Context, req alpaca.BarsRequest) (map[string][]alpaca.Bar, error)
}

type Adapter struct {
	client BarsClient
}

func NewAdapter(client BarsClient) *Adapter {
	return &Adapter{client: client}
}

// Fetch returns bars for symbols in [start, end] as a frame indexed by symbol and
// timestamp (zone-aware UTC), with columns open, high, low, close, volume,
// trade_count and vwap. Rows are ordered by symbol, then time.
// Errors from the client are returned unchanged apart from wrapping, so callers can
// match alpaca.ErrUnauthorized and alpaca.ErrTransient.
func (a *Adapter) Fetch(ctx context.Context, symbols []string, start, end time.Time, tf alpaca.Timeframe) (*frame.Frame, error) {
	bars, err := a.client.GetBars(ctx, alpaca.BarsRequest{
		Symbols:   symbols,
		Timeframe: tf,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	return BarsToFrame(bars)
}

// BarsToFrame converts per-symbol bars into an indexed frame.
func BarsToFrame(bars map[string][]alpaca.Bar) (*frame.Frame, error) {
	names := make([]string, 0, len(bars))
	total := 0
	for symbol, list := range bars {
		names = append(names, symbol)
		total += len(list)
	}
	sort.Strings(names)

	var (
		symbols    = make([]string, 0, total)
		timestamps = make([]time.Time, 0, total)
		open       = make([]float64, 0, total)
		high       = make([]float64, 0, total)
		low        = make([]float64, 0, total)
		closes     = make([]float64, 0, total)
		volume     = make([]float64, 0, total)
		tradeCount = make([]int64, 0, total)
		vwap       = make([]float64, 0, total)
	)

	for _, symbol := range names {
		list := append([]alpaca.Bar(nil), bars[symbol]...)
		sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
		for _, b := range list {
			symbols = append(symbols, symbol)
			timestamps = append(timestamps, b.Timestamp.UTC())
			open = append(open, b.Open)
			high = append(high, b.High)
			low = append(low, b.Low)
			closes = append(closes, b.Close)
			volume = append(volume, b.Volume)
			tradeCount = append(tradeCount, b.TradeCount)
			vwap = append(vwap, b.VWAP)
		}
	}

	f, err := frame.New(
		frame.StringColumn("symbol", symbols),
		frame.TimeTZColumn("timestamp", timestamps),
		frame.FloatColumn("open", open),
		frame.FloatColumn("high", high),
		frame.FloatColumn("low", low),
		frame.FloatColumn("close", closes),
		frame.FloatColumn("volume", volume),
		frame.IntColumn("trade_count", tradeCount),
		frame.FloatColumn("vwap", vwap),
	)
	if err != nil {
		return nil, err
	}
	if err := f.SetIndex("symbol", "timestamp"); err != nil {
		return nil, err
	}
	return f, nil
}
