package validation

import (
	"errors"
	"testing"
	"time"

	"quantviz/internal/frame"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func barFrame(t *testing.T, ts []time.Time, open, high, low, close, volume []float64) *frame.Frame {
	t.Helper()
	symbols := make([]string, len(ts))
	for i := range symbols {
		symbols[i] = "AAPL"
	}
	f, err := frame.New(
		frame.StringColumn("symbol", symbols),
		frame.TimeColumn("timestamp", ts),
		frame.FloatColumn("open", open),
		frame.FloatColumn("high", high),
		frame.FloatColumn("low", low),
		frame.FloatColumn("close", close),
		frame.FloatColumn("volume", volume),
	)
	require.NoError(t, err)
	return f
}

// go test -v --run TestSingleValidBar
func TestSingleValidBar(t *testing.T) {
	f := barFrame(t, []time.Time{day},
		[]float64{185.0}, []float64{186.0}, []float64{184.0}, []float64{185.5}, []float64{1000.0})

	require.NoError(t, ValidateStructure(f))
	v := ValidateValues(f, day.Add(24*time.Hour))
	assert.True(t, v.Empty(), "unexpected violations: %v", v)
}

// go test -v --run TestValidateStructureMissing
func TestValidateStructureMissing(t *testing.T) {
	f, err := frame.New(
		frame.StringColumn("symbol", []string{"AAPL"}),
		frame.FloatColumn("open", []float64{1}),
		frame.FloatColumn("close", []float64{1}),
	)
	require.NoError(t, err)

	err = ValidateStructure(f)
	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, []string{"timestamp", "high", "low", "volume"}, missing.Missing)
}

// go test -v --run TestValidateStructureTypeMismatch
func TestValidateStructureTypeMismatch(t *testing.T) {
	f, err := frame.New(
		frame.StringColumn("symbol", []string{"AAPL"}),
		frame.TimeTZColumn("timestamp", []time.Time{day}),
		frame.FloatColumn("open", []float64{1}),
		frame.FloatColumn("high", []float64{1}),
		frame.FloatColumn("low", []float64{1}),
		frame.StringColumn("close", []string{"1"}),
		frame.IntColumn("volume", []int64{1}),
	)
	require.NoError(t, err)

	err = ValidateStructure(f)
	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, []Mismatch{
		{Column: "timestamp", Expected: frame.KindTime, Actual: frame.KindTimeTZ},
		{Column: "close", Expected: frame.KindFloat, Actual: frame.KindString},
		{Column: "volume", Expected: frame.KindFloat, Actual: frame.KindInt},
	}, mismatch.Mismatches)
	assert.Contains(t, err.Error(), "close (expected float64, got string)")
}

// go test -v --run TestValidateStructureInvalidSymbols
func TestValidateStructureInvalidSymbols(t *testing.T) {
	f := barFrame(t, []time.Time{day, day, day},
		[]float64{1, 1, 1}, []float64{1, 1, 1}, []float64{1, 1, 1}, []float64{1, 1, 1}, []float64{1, 1, 1})
	f.Column("symbol").Strings[1] = "ABCDEFGHIJK"
	f.Column("symbol").Strings[2] = "ABCDEFGHIJK"

	err := ValidateStructure(f)
	var invalid *InvalidSymbolsError
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Equal(t, []string{"ABCDEFGHIJK"}, invalid.Symbols)

	f.Column("symbol").Strings[1] = "ABCDEFGHIJ"
	f.Column("symbol").Strings[2] = ""
	err = ValidateStructure(f)
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Equal(t, []string{""}, invalid.Symbols)
}

// go test -v --run TestValidateValuesPriceBounds
func TestValidateValuesPriceBounds(t *testing.T) {
	prices := []float64{0.01, 0.0099, 9999.99, 10000, -1, 50}
	ts := make([]time.Time, len(prices))
	ok := make([]float64, len(prices))
	vol := make([]float64, len(prices))
	for i := range prices {
		ts[i] = day
		ok[i] = 100
		vol[i] = 10
	}

	f := barFrame(t, ts, prices, ok, ok, prices, vol)
	v := ValidateValues(f, day)

	assert.Equal(t, []int{1, 3, 4}, v[InvalidOpen])
	assert.Equal(t, []int{1, 3, 4}, v[InvalidClose])
	assert.NotContains(t, v, InvalidHigh)
	assert.NotContains(t, v, InvalidLow)
	assert.Equal(t, []int{1, 3, 4}, v.Rows())
}

// go test -v --run TestValidateValuesVolumeAndFuture
func TestValidateValuesVolumeAndFuture(t *testing.T) {
	now := day
	ts := []time.Time{day.Add(-time.Hour), day, day.Add(time.Minute)}
	p := []float64{10, 10, 10}

	f := barFrame(t, ts, p, p, p, p, []float64{0, -5, 1})
	v := ValidateValues(f, now)

	assert.Equal(t, []int{0, 1}, v[NonPositiveVolume])
	assert.Equal(t, []int{2}, v[FutureTimestamps])
	assert.Equal(t, []Category{FutureTimestamps, NonPositiveVolume}, v.Categories())
}

// go test -v --run TestValidateValuesNaiveAgainstZonedNow
func TestValidateValuesNaiveAgainstZonedNow(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)
	now := time.Date(2024, 1, 2, 18, 0, 0, 0, ny)
	p := []float64{10}

	// 20:00 wall clock is later than 18:00 in the caller's zone
	f := barFrame(t, []time.Time{time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)}, p, p, p, p, p)
	v := ValidateValues(f, now)
	assert.Equal(t, []int{0}, v[FutureTimestamps])
}
