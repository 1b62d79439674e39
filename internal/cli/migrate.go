package cli

import (
	"context"
	"flag"

	"quantviz/internal/app"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "creates the stock_bars table if needed" }
func (*migrateCmd) Usage() string {
	return `quantviz migrate

  Creates or updates the stock_bars schema and logs the row count.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withReader(ctx, func(r *app.Reader) error {
		if err := r.Store.EnsureSchema(); err != nil {
			return err
		}
		n, err := r.Store.Count(ctx)
		if err != nil {
			return err
		}
		r.Log.Info("schema ready", zap.String("driver", r.Config.Storage.Driver), zap.Int64("rows", n))
		return nil
	})
}
