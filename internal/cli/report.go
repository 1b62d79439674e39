package cli

import (
	"context"
	"flag"
	"fmt"

	"quantviz/internal/app"
	"quantviz/internal/report"

	"github.com/google/subcommands"
)

type reportCmd struct {
	style  string
	width  int
	recent int
	raw    bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "prints a summary of the stored bars" }
func (*reportCmd) Usage() string {
	return `quantviz report [-style auto] [-width 100] [-recent 5] [-raw]

  Prints the row count, a per-symbol table (rows, first, last, last close,
  change %) and the newest bars.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.style, "style", "auto", "glamour style: auto, dark, light, ascii, notty")
	f.IntVar(&c.width, "width", 100, "word wrap width")
	f.IntVar(&c.recent, "recent", 5, "number of newest bars to list")
	f.BoolVar(&c.raw, "raw", false, "print markdown without rendering")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withReader(ctx, func(r *app.Reader) error {
		summary, err := report.Build(ctx, r.Store, c.recent)
		if err != nil {
			return err
		}
		md := summary.Markdown()
		if c.raw {
			fmt.Print(md)
			return nil
		}
		out, err := report.Render(md, c.style, c.width)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	})
}
