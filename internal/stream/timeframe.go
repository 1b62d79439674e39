package stream

import (
	"fmt"

	"quantviz/pkg/alpaca"
)

// Timeframe is the granularity of the bars the websocket pushes.
const Timeframe = alpaca.Timeframe1Min

// CheckTimeframe refuses to stream into a table configured for another granularity.
// stock_bars keeps one timeframe, so minute bars would interleave with daily closes.
func CheckTimeframe(configured string) error {
	if alpaca.Timeframe(configured) != Timeframe {
		return fmt.Errorf("stream stores %s bars but ingest.timeframe is %q; set ingest.timeframe to %s", Timeframe, configured, Timeframe)
	}
	return nil
}
