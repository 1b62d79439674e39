package stream

import (
	"context"
	"errors"
	"time"

	"quantviz/internal/memorystore"

	"go.uber.org/zap"
)

// Client is the part of alpaca.WSClient the collector drives.
type Client interface {
	SetMessageHandler(h func([]byte))
	Connect(ctx context.Context, symbols []string) error
	Listen(ctx context.Context) error
	Close() error
}

type Collector struct {
	client  Client
	loader  *SymbolLoader
	bars    *memorystore.BarStore
	flusher *Flusher
	log     *zap.Logger

	// how often the buffered bar count is logged
	statsEvery time.Duration
}

func NewCollector(client Client, loader *SymbolLoader, bars *memorystore.BarStore, flusher *Flusher, log *zap.Logger) *Collector {
	return &Collector{
		client:     client,
		loader:     loader,
		bars:       bars,
		flusher:    flusher,
		log:        log,
		statsEvery: 30 * time.Second,
	}
}

// Run subscribes to bars for every loaded symbol and keeps flushing them through the
// pipeline until ctx is done.
func (c *Collector) Run(ctx context.Context) error {
	symbolCh := make(chan string, 100)
	symbolStore := memorystore.NewSymbolStore()
	done := symbolStore.StartWorker(symbolCh)

	if err := c.loader.LoadSymbols(ctx, symbolCh); err != nil {
		return err
	}
	<-done

	symbols := symbolStore.GetAll()
	if len(symbols) == 0 {
		return errors.New("no symbols to subscribe")
	}

	c.client.SetMessageHandler(MakeMessageHandler(c.log, c.bars))
	if err := c.client.Connect(ctx, symbols); err != nil {
		return err
	}
	defer c.client.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		c.flusher.Run(ctx)
	}()

	go func() {
		ticker := time.NewTicker(c.statsEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				counts := c.bars.Counts()
				total := 0
				for _, n := range counts {
					total += n
				}
				c.log.Info("buffered bars", zap.Int("count", total), zap.Any("by_symbol", counts))
			}
		}
	}()

	err := c.client.Listen(ctx)
	cancel()
	<-flushDone
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
