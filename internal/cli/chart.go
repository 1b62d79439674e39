package cli

import (
	"context"
	"flag"

	"quantviz/internal/app"
	"quantviz/internal/chart"

	"github.com/google/subcommands"
)

type chartCmd struct {
	out string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "writes close prices and line charts to an xlsx workbook" }
func (*chartCmd) Usage() string {
	return `quantviz chart [-out data/stock_bars.xlsx]

  Writes one sheet per stored symbol with its (Timestamp, Close) series and a
  line chart of the close price.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.out, "out", "", "workbook path, chart.output by default")
}

func (c *chartCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withReader(ctx, func(r *app.Reader) error {
		out := c.out
		if out == "" {
			out = r.Config.Chart.Output
		}
		return chart.Write(ctx, r.Store, out, r.Log)
	})
}
