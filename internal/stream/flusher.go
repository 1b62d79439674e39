package stream

import (
	"context"
	"time"

	"quantviz/internal/frame"
	"quantviz/internal/ingest"
	"quantviz/internal/marketdata"
	"quantviz/internal/memorystore"

	"go.uber.org/zap"
)

// Ingester is satisfied by *ingest.Pipeline.
type Ingester interface {
	Ingest(ctx context.Context, f *frame.Frame) (ingest.Result, error)
}

// Flusher periodically moves buffered bars into the store through the pipeline.
type Flusher struct {
	store    *memorystore.BarStore
	ingester Ingester
	interval time.Duration
	log      *zap.Logger
}

func NewFlusher(store *memorystore.BarStore, ingester Ingester, interval time.Duration, log *zap.Logger) *Flusher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Flusher{store: store, ingester: ingester, interval: interval, log: log}
}

// Run flushes every interval until ctx is done, then flushes once more.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := f.Flush(finalCtx); err != nil {
				f.log.Error("Final flush failed", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
			if _, err := f.Flush(ctx); err != nil {
				f.log.Error("Flush failed", zap.Error(err))
			}
		}
	}
}

// Flush drains the buffer and ingests it. An empty buffer is a no-op.
func (f *Flusher) Flush(ctx context.Context) (ingest.Result, error) {
	bars := f.store.Drain()
	if len(bars) == 0 {
		return ingest.Result{}, nil
	}

	fr, err := marketdata.BarsToFrame(bars)
	if err != nil {
		return ingest.Result{}, err
	}
	f.log.Debug("Flushing streamed bars", zap.Int("rows", fr.Len()), zap.Int("symbols", len(bars)))
	return f.ingester.Ingest(ctx, fr)
}
