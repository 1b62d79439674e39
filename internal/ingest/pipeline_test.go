package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quantviz/config"
	"quantviz/internal/export"
	"quantviz/internal/frame"
	"quantviz/internal/marketdata"
	"quantviz/internal/validation"
	"quantviz/pkg/alpaca"
	"quantviz/pkg/storage/barstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var now = time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	bars       map[string][]alpaca.Bar
	err        error
	start, end time.Time
}

func (f *fakeFetcher) Fetch(_ context.Context, _ []string, start, end time.Time, _ alpaca.Timeframe) (*frame.Frame, error) {
	f.start, f.end = start, end
	if f.err != nil {
		return nil, f.err
	}
	return marketdata.BarsToFrame(f.bars)
}

func bar(day int, close, volume float64) alpaca.Bar {
	return alpaca.Bar{
		Timestamp: time.Date(2024, 1, day, 5, 0, 0, 0, time.UTC),
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    volume,
	}
}

func newPipeline(t *testing.T, fetcher Fetcher, policy Policy) (*Pipeline, *barstore.Store) {
	t.Helper()
	store, err := barstore.OpenAndMigrate(config.StorageConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "stocks.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p, err := NewPipeline(fetcher, store, Options{
		Symbols:       []string{"AAPL", "MSFT"},
		LookbackDays:  30,
		Timeframe:     alpaca.Timeframe1Day,
		Policy:        policy,
		QuarantineDir: filepath.Join(t.TempDir(), "quarantine"),
	}, zap.NewNop())
	require.NoError(t, err)
	p.SetClock(func() time.Time { return now })
	return p, store
}

// go test -v --run TestRunOnceSingleBar
func TestRunOnceSingleBar(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]alpaca.Bar{
		"AAPL": {{
			Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:      185.0, High: 186.0, Low: 184.0, Close: 185.5, Volume: 1000.0,
		}},
	}}
	p, store := newPipeline(t, fetcher, PolicyWarn)

	res, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.True(t, res.Violations.Empty())
	assert.Equal(t, 1, res.Append.Inserted)
	assert.Equal(t, now.AddDate(0, 0, -30), fetcher.start)
	assert.Equal(t, now, fetcher.end)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// go test -v --run TestRunOnceTwiceIsIdempotent
func TestRunOnceTwiceIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]alpaca.Bar{
		"AAPL": {bar(2, 185.5, 1000), bar(3, 184.2, 900)},
		"MSFT": {bar(2, 370.8, 500)},
	}}
	p, _ := newPipeline(t, fetcher, PolicyWarn)

	first, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Append.Inserted)

	second, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Append.Inserted)
	assert.Equal(t, 3, second.Append.Duplicates)
	assert.NotEqual(t, first.RunID, second.RunID)
}

// go test -v --run TestWarnPolicyPersistsFlaggedRows
func TestWarnPolicyPersistsFlaggedRows(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]alpaca.Bar{
		"AAPL": {bar(2, 185.5, 1000), bar(3, 184.2, 0)},
	}}
	p, _ := newPipeline(t, fetcher, PolicyWarn)

	res, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.Violations[validation.NonPositiveVolume])
	assert.Equal(t, 2, res.Append.Inserted)
}

// go test -v --run TestRejectPolicyPersistsNothing
func TestRejectPolicyPersistsNothing(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]alpaca.Bar{
		"AAPL": {bar(2, 185.5, 1000), bar(3, 20000, 900)},
	}}
	p, store := newPipeline(t, fetcher, PolicyReject)

	_, err := p.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrValueViolations)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// go test -v --run TestQuarantinePolicySplitsBatch
func TestQuarantinePolicySplitsBatch(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]alpaca.Bar{
		"AAPL": {bar(2, 185.5, 1000), bar(3, 0.001, 900), bar(4, 183.0, 800)},
	}}
	p, store := newPipeline(t, fetcher, PolicyQuarantine)

	res, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Quarantined)
	assert.Equal(t, 2, res.Append.Inserted)

	rows, err := export.ReadParquet(res.QuarantineFile)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.001, rows[0].Close)

	series, err := store.CloseSeries(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, 183.0, series[1].Close)
}

// go test -v --run TestStructuralFailurePersistsNothing
func TestStructuralFailurePersistsNothing(t *testing.T) {
	p, store := newPipeline(t, &fakeFetcher{}, PolicyWarn)

	f, err := frame.New(
		frame.StringColumn("symbol", []string{"AAPL"}),
		frame.TimeColumn("timestamp", []time.Time{now}),
		frame.FloatColumn("close", []float64{1}),
	)
	require.NoError(t, err)

	_, err = p.Ingest(context.Background(), f)
	var missing *validation.MissingColumnsError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, []string{"open", "high", "low", "volume"}, missing.Missing)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// go test -v --run TestOverlongSymbolPersistsNothing
func TestOverlongSymbolPersistsNothing(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]alpaca.Bar{
		"AAPL":           {bar(2, 185.5, 1000)},
		"TOOLONGSYMBOL1": {bar(2, 10, 1000)},
	}}
	p, store := newPipeline(t, fetcher, PolicyWarn)

	_, err := p.RunOnce(context.Background())
	var invalid *validation.InvalidSymbolsError
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Equal(t, []string{"TOOLONGSYMBOL1"}, invalid.Symbols)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

// go test -v --run TestFetchErrorPropagates
func TestFetchErrorPropagates(t *testing.T) {
	p, _ := newPipeline(t, &fakeFetcher{err: alpaca.ErrTransient}, PolicyWarn)
	_, err := p.RunOnce(context.Background())
	assert.ErrorIs(t, err, alpaca.ErrTransient)
}

type failingReadStore struct {
	*barstore.Store
}

func (failingReadStore) Recent(context.Context, int) ([]barstore.BarRecord, error) {
	return nil, errors.New("database is locked")
}

// go test -v --run TestVerificationReadFailureIsLogged
func TestVerificationReadFailureIsLogged(t *testing.T) {
	_, store := newPipeline(t, &fakeFetcher{}, PolicyWarn)
	core, logs := observer.New(zapcore.WarnLevel)

	fetcher := &fakeFetcher{bars: map[string][]alpaca.Bar{"AAPL": {bar(2, 185.5, 1000)}}}
	p, err := NewPipeline(fetcher, failingReadStore{store}, Options{
		Symbols:   []string{"AAPL"},
		Timeframe: alpaca.Timeframe1Day,
	}, zap.New(core))
	require.NoError(t, err)
	p.SetClock(func() time.Time { return now })

	res, err := p.RunOnce(context.Background())
	require.NoError(t, err, "a failed read-back does not fail the run")
	assert.Equal(t, 1, res.Append.Inserted)

	entries := logs.FilterMessage("Failed to read back stored bars").All()
	require.Len(t, entries, 1)
	assert.Equal(t, res.RunID, entries[0].ContextMap()["run_id"])
	assert.Equal(t, "database is locked", entries[0].ContextMap()["error"])
}

// go test -v --run TestParsePolicy
func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyWarn, p)

	_, err = ParsePolicy("drop")
	assert.Error(t, err)
}
