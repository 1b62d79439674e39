package cli

import (
	"context"
	"errors"
	"flag"

	"quantviz/internal/app"
	"quantviz/internal/scheduler"

	"github.com/google/subcommands"
)

type scheduleCmd struct {
	now bool
}

func (*scheduleCmd) Name() string     { return "schedule" }
func (*scheduleCmd) Synopsis() string { return "ingests once a day at schedule.daily_at" }
func (*scheduleCmd) Usage() string {
	return `quantviz schedule [-now]

  Runs until interrupted, ingesting the last schedule.window_days every day at
  schedule.daily_at in schedule.timezone. Failed runs are logged and retried the
  next day.
`
}

func (c *scheduleCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.now, "now", false, "also run once at startup")
}

func (c *scheduleCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app.App) error {
		hour, minute, err := a.Config.Schedule.DailyClock()
		if err != nil {
			return err
		}
		loc, err := a.Config.Schedule.Location()
		if err != nil {
			return err
		}

		sched := scheduler.New(a.Log)
		err = sched.Add(scheduler.Task{
			Name:       "daily-ingest",
			Trigger:    scheduler.DailyAt{Hour: hour, Minute: minute, Location: loc},
			RunAtStart: c.now,
			Run: func(ctx context.Context) error {
				_, err := a.Pipeline.RunWindow(ctx, a.Config.Schedule.WindowDays)
				return err
			},
		})
		if err != nil {
			return err
		}

		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		a.Log.Info("scheduler stopped")
		return nil
	})
}
