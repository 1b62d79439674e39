// Package app builds the object graph shared by the commands.
package app

import (
	"context"
	"fmt"

	"quantviz/config"
	"quantviz/internal/ingest"
	"quantviz/internal/secrets"
	"quantviz/pkg/alpaca"
	"quantviz/pkg/storage/barstore"

	"go.uber.org/zap"
)

// App is everything the ingest commands need.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	WS       *alpaca.WSClient
	Store    *barstore.Store
	Pipeline *ingest.Pipeline
}

// Reader is the read-only graph for chart, report, export and migrate.
type Reader struct {
	Config *config.Config
	Log    *zap.Logger
	Store  *barstore.Store
}

// ProvideCredentials loads the Alpaca key pair from the configured secrets source.
func ProvideCredentials(ctx context.Context, cfg *config.Config) (alpaca.Credentials, error) {
	creds, err := secrets.Load(ctx, cfg.Secrets)
	if err != nil {
		return alpaca.Credentials{}, err
	}
	return alpaca.Credentials{KeyID: creds.APIKey, SecretKey: creds.APISecret}, nil
}

// ProvideStorageConfig returns the storage settings, with postgres host, user and
// password read from Parameter Store when running in prod.
func ProvideStorageConfig(ctx context.Context, cfg *config.Config) (config.StorageConfig, error) {
	storage := cfg.Storage
	if cfg.Env != "prod" || storage.Driver != "postgres" {
		return storage, nil
	}

	loader, err := secrets.NewSSMLoader(ctx, cfg.Secrets.SSM.Timeout)
	if err != nil {
		return storage, err
	}
	if err := loader.ResolvePostgres(ctx, &storage.Postgres); err != nil {
		return storage, fmt.Errorf("resolve postgres credentials: %w", err)
	}
	return storage, nil
}

// ProvideStore opens the store and makes sure stock_bars exists.
func ProvideStore(storage config.StorageConfig, log *zap.Logger) (*barstore.Store, func(), error) {
	store, err := barstore.OpenAndMigrate(storage, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}
	return store, cleanup, nil
}

func ProvideRESTClient(cfg *config.Config, creds alpaca.Credentials) *alpaca.RESTClient {
	return alpaca.NewRESTClient(cfg.Alpaca.REST.BaseURL, cfg.Alpaca.REST.Timeout, creds,
		alpaca.WithFeed(cfg.Alpaca.REST.Feed))
}

func ProvideWSClient(cfg *config.Config, creds alpaca.Credentials, log *zap.Logger) *alpaca.WSClient {
	return alpaca.NewWSClient(cfg.Alpaca.WS.URL, creds, cfg.Alpaca.WS.Timeout, log)
}

// ProvideIngestOptions maps the ingest section onto pipeline options.
func ProvideIngestOptions(cfg *config.Config) (ingest.Options, error) {
	tf, err := alpaca.ParseTimeframe(cfg.Ingest.Timeframe)
	if err != nil {
		return ingest.Options{}, err
	}
	policy, err := ingest.ParsePolicy(cfg.Ingest.Policy)
	if err != nil {
		return ingest.Options{}, err
	}
	return ingest.Options{
		Symbols:       cfg.Ingest.Symbols,
		LookbackDays:  cfg.Ingest.LookbackDays,
		Timeframe:     tf,
		Policy:        policy,
		QuarantineDir: cfg.Ingest.QuarantineDir,
	}, nil
}
