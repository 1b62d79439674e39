package cli

import (
	"context"
	"flag"

	"quantviz/internal/app"
	"quantviz/internal/memorystore"
	"quantviz/internal/stream"

	"github.com/google/subcommands"
)

type streamCmd struct{}

func (*streamCmd) Name() string     { return "stream" }
func (*streamCmd) Synopsis() string { return "ingests live bars from the Alpaca websocket" }
func (*streamCmd) Usage() string {
	return `quantviz stream

  Subscribes to minute bars for ingest.symbols and every symbol already stored,
  buffers them in memory and flushes them through the ingest pipeline every
  stream.flush_interval. Reconnects after read errors.

  Requires ingest.timeframe: 1Min, so minute bars never share stock_bars with
  daily bars.
`
}

func (*streamCmd) SetFlags(*flag.FlagSet) {}

func (*streamCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app.App) error {
		if err := stream.CheckTimeframe(a.Config.Ingest.Timeframe); err != nil {
			return err
		}
		bars := memorystore.NewBarStore()
		loader := &stream.SymbolLoader{
			Configured: a.Config.Ingest.Symbols,
			Store:      a.Store,
			Logger:     a.Log,
		}
		flusher := stream.NewFlusher(bars, a.Pipeline, a.Config.Stream.FlushInterval, a.Log)
		return stream.NewCollector(a.WS, loader, bars, flusher, a.Log).Run(ctx)
	})
}
