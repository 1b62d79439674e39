package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"quantviz/internal/app"

	"github.com/google/subcommands"
)

type fetchCmd struct {
	days int
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetches recent bars once and stores the new ones" }
func (*fetchCmd) Usage() string {
	return `quantviz fetch [-days N]

  Fetches bars for ingest.symbols over the trailing ingest.lookback_days
  (or -days), validates them and appends the rows not stored yet.
  Exits non-zero on any error.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 0, "lookback window in days, ingest.lookback_days by default")
}

func (c *fetchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app.App) error {
		days := c.days
		if days <= 0 {
			days = a.Config.Ingest.LookbackDays
		}
		res, err := a.Pipeline.RunWindow(ctx, days)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "run %s: fetched %d, inserted %d, duplicates %d, quarantined %d\n",
			res.RunID, res.Fetched, res.Append.Inserted, res.Append.Duplicates, res.Quarantined)
		return nil
	})
}
