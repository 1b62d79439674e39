package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -v --run TestDailyAtNext
func TestDailyAtNext(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	trigger := DailyAt{Hour: 18, Minute: 0, Location: ny}

	before := time.Date(2024, 1, 2, 9, 0, 0, 0, ny)
	assert.Equal(t, time.Date(2024, 1, 2, 18, 0, 0, 0, ny), trigger.Next(before))

	exactly := time.Date(2024, 1, 2, 18, 0, 0, 0, ny)
	assert.Equal(t, time.Date(2024, 1, 3, 18, 0, 0, 0, ny), trigger.Next(exactly))

	// 23:30 UTC is 18:30 in New York, so the next run is tomorrow
	utc := time.Date(2024, 1, 2, 23, 30, 0, 0, time.UTC)
	assert.True(t, trigger.Next(utc).Equal(time.Date(2024, 1, 3, 18, 0, 0, 0, ny)))

	assert.Equal(t, "18:00 America/New_York", trigger.String())
}

// go test -v --run TestEveryNext
func TestEveryNext(t *testing.T) {
	start := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, start.Add(time.Minute), Every{Interval: time.Minute}.Next(start))
}

// go test -v --run TestRunSurvivesFailingTasks
func TestRunSurvivesFailingTasks(t *testing.T) {
	var failing, panicking, healthy atomic.Int32
	s := New(zap.NewNop())

	require.NoError(t, s.Add(Task{
		Name:    "failing",
		Trigger: Every{Interval: 5 * time.Millisecond},
		Run: func(context.Context) error {
			failing.Add(1)
			return errors.New("remote down")
		},
	}))
	require.NoError(t, s.Add(Task{
		Name:    "panicking",
		Trigger: Every{Interval: 5 * time.Millisecond},
		Run: func(context.Context) error {
			panicking.Add(1)
			panic("boom")
		},
	}))
	require.NoError(t, s.Add(Task{
		Name:       "healthy",
		Trigger:    Every{Interval: 5 * time.Millisecond},
		RunAtStart: true,
		Run: func(context.Context) error {
			healthy.Add(1)
			return nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return failing.Load() >= 3 && panicking.Load() >= 3 && healthy.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

// go test -v --run TestRunAtStart
func TestRunAtStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	s := New(zap.NewNop())
	require.NoError(t, s.Add(Task{
		Name:       "daily",
		Trigger:    DailyAt{Hour: 18},
		RunAtStart: true,
		Run: func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task did not run at start")
	}
}

// go test -v --run TestAddAndRunValidation
func TestAddAndRunValidation(t *testing.T) {
	s := New(zap.NewNop())
	assert.Error(t, s.Add(Task{Name: "no trigger", Run: func(context.Context) error { return nil }}))
	assert.Error(t, s.Run(context.Background()))
}
