//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"quantviz/config"
	"quantviz/internal/ingest"
	"quantviz/internal/marketdata"
	"quantviz/pkg/alpaca"
	"quantviz/pkg/storage/barstore"

	"github.com/google/wire"
	"go.uber.org/zap"
)

var storeSet = wire.NewSet(
	ProvideStorageConfig,
	ProvideStore,
)

// InitializeApp builds the ingest graph. Call the returned cleanup when done.
func InitializeApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, func(), error) {
	wire.Build(
		ProvideCredentials,
		storeSet,
		ProvideRESTClient,
		ProvideWSClient,
		ProvideIngestOptions,
		marketdata.NewAdapter,
		ingest.NewPipeline,
		wire.Bind(new(marketdata.BarsClient), new(*alpaca.RESTClient)),
		wire.Bind(new(ingest.Fetcher), new(*marketdata.Adapter)),
		wire.Bind(new(ingest.Store), new(*barstore.Store)),
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeReader builds the store-only graph. No API credentials are needed.
func InitializeReader(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Reader, func(), error) {
	wire.Build(
		storeSet,
		wire.Struct(new(Reader), "*"),
	)
	return nil, nil, nil
}
