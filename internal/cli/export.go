package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"quantviz/internal/app"
	"quantviz/internal/export"

	"github.com/google/subcommands"
)

type exportCmd struct {
	format string
	out    string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "dumps stock_bars to parquet, csv or json" }
func (*exportCmd) Usage() string {
	return `quantviz export [-format parquet] [-out data/stock_bars.parquet]

  Writes every stored bar ordered by symbol and timestamp.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "parquet", "output format: parquet, csv or json")
	f.StringVar(&c.out, "out", "", "output path, data/stock_bars.<ext> by default")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	saver, err := export.NewSaver(c.format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	return withReader(ctx, func(r *app.Reader) error {
		records, err := r.Store.All(ctx)
		if err != nil {
			return err
		}
		out := c.out
		if out == "" {
			out = "data/stock_bars." + saver.Extension()
		}
		if err := saver.Save(export.FromRecords(records), out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "exported %d rows to %s\n", len(records), out)
		return nil
	})
}
