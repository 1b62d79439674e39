package cli

import (
	"context"
	"flag"

	"quantviz/internal/app"
	"quantviz/internal/service"

	"github.com/google/subcommands"
)

type serviceCmd struct {
	addr string
}

func (*serviceCmd) Name() string     { return "service" }
func (*serviceCmd) Synopsis() string { return "runs the ingest loop with an HTTP control API" }
func (*serviceCmd) Usage() string {
	return `quantviz service [-addr :8080]

  Ingests every schedule.interval, starting immediately, until SIGINT or SIGTERM.
  Control API:
    GET  /health   store connectivity
    GET  /status   loop state and last run
    POST /start    start the loop
    POST /stop     stop the loop
    POST /run      run one cycle now
`
}

func (c *serviceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address, service.addr by default")
}

func (c *serviceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app.App) error {
		addr := c.addr
		if addr == "" {
			addr = a.Config.Service.Addr
		}
		svc := service.New(a.Pipeline, a.Store, a.Config.Schedule.Interval, a.Config.Schedule.WindowDays, addr, a.Log)
		return svc.Serve(ctx)
	})
}
