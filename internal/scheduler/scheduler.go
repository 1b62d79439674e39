// Package scheduler runs named tasks on daily or fixed-interval triggers in a single
// goroutine. A failing or panicking task is logged and the loop goes on.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Task struct {
	Name       string
	Trigger    Trigger
	RunAtStart bool
	Run        func(ctx context.Context) error
}

type Scheduler struct {
	log   *zap.Logger
	tasks []Task
	now   func() time.Time
}

type Option func(*Scheduler)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(log *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a task. Tasks added after Run started are ignored until the next Run.
func (s *Scheduler) Add(t Task) error {
	if t.Name == "" || t.Trigger == nil || t.Run == nil {
		return fmt.Errorf("task %q needs a name, a trigger and a run function", t.Name)
	}
	s.tasks = append(s.tasks, t)
	return nil
}

func (s *Scheduler) Tasks() []Task {
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Run blocks until ctx is done, firing each task when its trigger comes due.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.tasks) == 0 {
		return errors.New("no tasks scheduled")
	}
	tasks := s.Tasks()

	next := make([]time.Time, len(tasks))
	for i, t := range tasks {
		if t.RunAtStart {
			s.runTask(ctx, t)
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		next[i] = t.Trigger.Next(s.now())
		s.log.Info("Task scheduled",
			zap.String("task", t.Name),
			zap.Stringer("trigger", t.Trigger),
			zap.Time("next_run", next[i]),
		)
	}

	for {
		i := earliest(next)
		timer := time.NewTimer(next[i].Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.runTask(ctx, tasks[i])
		next[i] = tasks[i].Trigger.Next(s.now())
		s.log.Debug("Task rescheduled", zap.String("task", tasks[i].Name), zap.Time("next_run", next[i]))
	}
}

func (s *Scheduler) runTask(ctx context.Context, t Task) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Task panicked", zap.String("task", t.Name), zap.Any("panic", r))
		}
	}()

	if err := t.Run(ctx); err != nil {
		s.log.Error("Task failed", zap.String("task", t.Name), zap.Error(err))
		return
	}
	s.log.Info("Task finished", zap.String("task", t.Name), zap.Duration("took", s.now().Sub(start)))
}

func earliest(ts []time.Time) int {
	idx := 0
	for i := range ts {
		if ts[i].Before(ts[idx]) {
			idx = i
		}
	}
	return idx
}
