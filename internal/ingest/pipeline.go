// Package ingest runs the fetch, normalize, validate and persist sequence.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"quantviz/internal/export"
	"quantviz/internal/frame"
	"quantviz/internal/validation"
	"quantviz/pkg/alpaca"
	"quantviz/pkg/storage/barstore"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrValueViolations aborts a run under the reject policy.
var ErrValueViolations = errors.New("value validation failed")

// Policy decides what happens to rows flagged by value validation.
type Policy string

const (
	PolicyWarn       Policy = "warn"
	PolicyReject     Policy = "reject"
	PolicyQuarantine Policy = "quarantine"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyWarn, PolicyReject, PolicyQuarantine:
		return p, nil
	case "":
		return PolicyWarn, nil
	default:
		return "", fmt.Errorf("invalid policy %q (use warn, reject or quarantine)", s)
	}
}

// Fetcher pulls bars as an indexed frame.
type Fetcher interface {
	Fetch(ctx context.Context, symbols []string, start, end time.Time, tf alpaca.Timeframe) (*frame.Frame, error)
}

// Store is the persistence side of the pipeline.
type Store interface {
	Append(ctx context.Context, f *frame.Frame) (barstore.AppendResult, error)
	Recent(ctx context.Context, n int) ([]barstore.BarRecord, error)
}

type Options struct {
	Symbols       []string
	LookbackDays  int
	Timeframe     alpaca.Timeframe
	Policy        Policy
	QuarantineDir string
}

// Result summarizes one run.
type Result struct {
	RunID          string
	Fetched        int
	Violations     validation.Violations
	Quarantined    int
	QuarantineFile string
	Append         barstore.AppendResult
}

type Pipeline struct {
	fetcher Fetcher
	store   Store
	opts    Options
	log     *zap.Logger
	now     func() time.Time

	// one run at a time, whoever triggers it
	mu sync.Mutex
}

func NewPipeline(fetcher Fetcher, store Store, opts Options, log *zap.Logger) (*Pipeline, error) {
	if len(opts.Symbols) == 0 {
		return nil, errors.New("no symbols configured")
	}
	if !opts.Timeframe.IsValid() {
		return nil, fmt.Errorf("invalid timeframe: %s", opts.Timeframe)
	}
	if opts.Policy == "" {
		opts.Policy = PolicyWarn
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 30
	}
	return &Pipeline{
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}, nil
}

// SetClock replaces the time source used for windows and future-timestamp checks.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// RunOnce ingests the trailing lookback window for the configured symbols.
func (p *Pipeline) RunOnce(ctx context.Context) (Result, error) {
	return p.RunWindow(ctx, p.opts.LookbackDays)
}

// RunWindow ingests the trailing days up to now.
func (p *Pipeline) RunWindow(ctx context.Context, days int) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	end := p.now()
	start := end.AddDate(0, 0, -days)

	p.log.Info("Fetching bars",
		zap.Strings("symbols", p.opts.Symbols),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.String("timeframe", string(p.opts.Timeframe)),
	)

	f, err := p.fetcher.Fetch(ctx, p.opts.Symbols, start, end, p.opts.Timeframe)
	if err != nil {
		p.log.Error("Failed to fetch bars", zap.Error(err))
		return Result{}, err
	}
	return p.ingest(ctx, f)
}

// Ingest validates and persists an already fetched frame.
func (p *Pipeline) Ingest(ctx context.Context, f *frame.Frame) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ingest(ctx, f)
}

func (p *Pipeline) ingest(ctx context.Context, f *frame.Frame) (Result, error) {
	res := Result{RunID: uuid.NewString(), Fetched: f.Len()}
	log := p.log.With(zap.String("run_id", res.RunID))

	bars, err := barstore.Normalize(f)
	if err != nil {
		log.Error("Failed to normalize bars", zap.Error(err))
		return res, err
	}

	if err := validation.ValidateStructure(bars); err != nil {
		log.Error("Structural validation failed", zap.Error(err))
		return res, fmt.Errorf("structural validation: %w", err)
	}

	res.Violations = validation.ValidateValues(bars, p.now().UTC())
	if !res.Violations.Empty() {
		bars, err = p.applyPolicy(log, bars, &res)
		if err != nil {
			return res, err
		}
	}

	res.Append, err = p.store.Append(ctx, bars)
	if err != nil {
		return res, err
	}

	recent, err := p.store.Recent(ctx, 5)
	if err != nil {
		log.Warn("Failed to read back stored bars", zap.Error(err))
	}
	for _, r := range recent {
		log.Debug("Stored bar",
			zap.String("symbol", r.Symbol),
			zap.Time("timestamp", r.Timestamp),
			zap.Float64("close", r.Close),
		)
	}

	log.Info("Ingest finished",
		zap.Int("fetched", res.Fetched),
		zap.Int("quarantined", res.Quarantined),
		zap.Int("inserted", res.Append.Inserted),
		zap.Int("duplicates", res.Append.Duplicates),
	)
	return res, nil
}

func (p *Pipeline) applyPolicy(log *zap.Logger, bars *frame.Frame, res *Result) (*frame.Frame, error) {
	for _, c := range res.Violations.Categories() {
		log.Warn("Value validation issue",
			zap.String("category", string(c)),
			zap.Int("rows", len(res.Violations[c])),
			zap.String("policy", string(p.opts.Policy)),
		)
	}

	switch p.opts.Policy {
	case PolicyReject:
		return nil, fmt.Errorf("%w: %d rows affected", ErrValueViolations, len(res.Violations.Rows()))

	case PolicyQuarantine:
		flagged := make(map[int]bool)
		for _, r := range res.Violations.Rows() {
			flagged[r] = true
		}
		bad := bars.Filter(func(row int) bool { return flagged[row] })
		good := bars.Filter(func(row int) bool { return !flagged[row] })

		path, err := p.quarantine(res.RunID, bad)
		if err != nil {
			log.Error("Failed to write quarantine file", zap.Error(err))
			return nil, err
		}
		res.Quarantined = bad.Len()
		res.QuarantineFile = path
		log.Warn("Quarantined rows", zap.Int("rows", bad.Len()), zap.String("file", path))
		return good, nil

	default:
		return bars, nil
	}
}

func (p *Pipeline) quarantine(runID string, bad *frame.Frame) (string, error) {
	records, err := barstore.Records(bad)
	if err != nil {
		return "", err
	}
	saver := export.ParquetSaver{}
	path := filepath.Join(p.opts.QuarantineDir, fmt.Sprintf("quarantine_%s.%s", runID, saver.Extension()))
	if err := saver.Save(export.FromRecords(records), path); err != nil {
		return "", fmt.Errorf("write quarantine file: %w", err)
	}
	return path, nil
}
