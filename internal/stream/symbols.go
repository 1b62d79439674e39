package stream

import (
	"context"

	"go.uber.org/zap"
)

// SymbolLister is satisfied by *barstore.Store.
type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// SymbolLoader produces the subscription list: configured symbols first, then any
// symbol already present in the store.
type SymbolLoader struct {
	Configured []string
	Store      SymbolLister
	Logger     *zap.Logger
}

// LoadSymbols streams symbols into ch and closes it when done.
// A failing store lookup is logged and only the configured symbols are sent.
func (l *SymbolLoader) LoadSymbols(ctx context.Context, ch chan<- string) error {
	defer close(ch)

	symbols := append([]string(nil), l.Configured...)
	if l.Store != nil {
		stored, err := l.Store.Symbols(ctx)
		if err != nil {
			l.Logger.Warn("failed to load stored symbols", zap.Error(err))
		} else {
			symbols = append(symbols, stored...)
		}
	}
	l.Logger.Info("loaded symbols", zap.Int("count", len(symbols)))

	for _, symbol := range symbols {
		select {
		case ch <- symbol:
		case <-ctx.Done():
			l.Logger.Warn("symbol streaming interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}
	return nil
}
