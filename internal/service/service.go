// Package service hosts the ingest loop as a long-running process with an HTTP control API.
package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"quantviz/internal/ingest"
	"quantviz/internal/scheduler"

	"go.uber.org/zap"
)

var (
	ErrAlreadyRunning = errors.New("ingest loop already running")
	ErrNotRunning     = errors.New("ingest loop not running")
)

// Runner ingests the trailing days up to now.
type Runner interface {
	RunWindow(ctx context.Context, days int) (ingest.Result, error)
}

// HealthChecker reports whether the store answers.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// RunSummary is the JSON view of the last ingest result.
type RunSummary struct {
	RunID       string `json:"run_id"`
	Fetched     int    `json:"fetched"`
	Inserted    int    `json:"inserted"`
	Duplicates  int    `json:"duplicates"`
	Quarantined int    `json:"quarantined"`
}

type Status struct {
	Running    bool        `json:"running"`
	Interval   string      `json:"interval"`
	WindowDays int         `json:"window_days"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	Runs       int64       `json:"runs"`
	Failures   int64       `json:"failures"`
	LastRunAt  *time.Time  `json:"last_run_at,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
	LastResult *RunSummary `json:"last_result,omitempty"`
}

type Service struct {
	runner   Runner
	health   HealthChecker
	interval time.Duration
	window   int
	addr     string
	log      *zap.Logger

	mu     sync.Mutex
	base   context.Context
	cancel context.CancelFunc
	done   chan struct{}
	status Status
}

// New builds a service whose cycles fetch the trailing windowDays every interval.
func New(runner Runner, health HealthChecker, interval time.Duration, windowDays int, addr string, log *zap.Logger) *Service {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if windowDays <= 0 {
		windowDays = 1
	}
	return &Service{
		runner:   runner,
		health:   health,
		interval: interval,
		window:   windowDays,
		addr:     addr,
		log:      log,
		base:     context.Background(),
		status:   Status{Interval: interval.String(), WindowDays: windowDays},
	}
}

// Start launches the interval loop. The first cycle runs immediately.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	sched := scheduler.New(s.log)
	if err := sched.Add(scheduler.Task{
		Name:       "ingest",
		Trigger:    scheduler.Every{Interval: s.interval},
		RunAtStart: true,
		Run: func(ctx context.Context) error {
			_, err := s.RunNow(ctx)
			return err
		},
	}); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(s.base)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	now := time.Now()
	s.status.Running = true
	s.status.StartedAt = &now

	go func() {
		defer close(done)
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("Ingest loop stopped", zap.Error(err))
		}
	}()

	s.log.Info("Ingest loop started", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels the loop and waits for the running cycle to return.
func (s *Service) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.status.Running = false
	s.status.StartedAt = nil
	s.mu.Unlock()

	if cancel == nil {
		return ErrNotRunning
	}
	cancel()
	<-done

	s.log.Info("Ingest loop stopped")
	return nil
}

// RunNow runs one cycle synchronously. The pipeline serializes it with the loop.
func (s *Service) RunNow(ctx context.Context) (ingest.Result, error) {
	res, err := s.runner.RunWindow(ctx, s.window)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.status.Runs++
	s.status.LastRunAt = &now
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
		return res, err
	}
	s.status.LastError = ""
	s.status.LastResult = &RunSummary{
		RunID:       res.RunID,
		Fetched:     res.Fetched,
		Inserted:    res.Append.Inserted,
		Duplicates:  res.Append.Duplicates,
		Quarantined: res.Quarantined,
	}
	return res, nil
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Serve starts the loop and the control API, and blocks until ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	if err := s.Start(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Control API listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("Control API shutdown", zap.Error(err))
	}
	if err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return serveErr
}
