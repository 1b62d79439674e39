// Package stream feeds live Alpaca bars through the ingest pipeline.
package stream

import (
	"encoding/json"

	"quantviz/internal/memorystore"
	"quantviz/pkg/alpaca"

	"go.uber.org/zap"
)

// MakeMessageHandler returns a function that parses websocket frames and buffers
// every bar message in store. Control messages are ignored.
func MakeMessageHandler(logger *zap.Logger, store *memorystore.BarStore) func(msg []byte) {
	return func(msg []byte) {
		// Alpaca always sends a JSON array of messages
		var batch []alpaca.StreamMessage
		if err := json.Unmarshal(msg, &batch); err != nil {
			logger.Warn("failed to parse stream message", zap.Error(err))
			return
		}

		for _, m := range batch {
			switch m.Type {
			case alpaca.MsgBar:
				if m.Symbol == "" || m.Timestamp.IsZero() {
					logger.Warn("dropping incomplete bar", zap.String("symbol", m.Symbol))
					continue
				}
				store.Add(m.Symbol, alpaca.Bar{
					Timestamp:  m.Timestamp,
					Open:       m.Open,
					High:       m.High,
					Low:        m.Low,
					Close:      m.Close,
					Volume:     m.Volume,
					TradeCount: m.TradeCount,
					VWAP:       m.VWAP,
				})
			case alpaca.MsgError:
				logger.Error("stream error", zap.Int("code", m.Code), zap.String("msg", m.Msg))
			}
		}
	}
}
