package chart

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quantviz/pkg/storage/barstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeSource map[string][]float64

func (f fakeSource) Symbols(context.Context) ([]string, error) {
	var out []string
	for _, s := range []string{"AAPL", "MSFT", "NVDA"} {
		if _, ok := f[s]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f fakeSource) CloseSeries(_ context.Context, symbol string) ([]barstore.ClosePoint, error) {
	var out []barstore.ClosePoint
	for i, c := range f[symbol] {
		out = append(out, barstore.ClosePoint{Timestamp: time.Date(2024, 1, i+2, 0, 0, 0, 0, time.UTC), Close: c})
	}
	return out, nil
}

// go test -v --run TestWriteWorkbook
func TestWriteWorkbook(t *testing.T) {
	src := fakeSource{
		"AAPL": {185.6, 184.2, 181.9},
		"MSFT": {370.8},
	}
	path := filepath.Join(t.TempDir(), "out", "bars.xlsx")
	require.NoError(t, Write(context.Background(), src, path, zap.NewNop()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"AAPL", "MSFT"}, f.GetSheetList())

	rows, err := f.GetRows("AAPL")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Timestamp", "Close"}, rows[0][:2])
	assert.Equal(t, "185.6", rows[1][1])
	assert.Equal(t, "181.9", rows[3][1])

	rows, err = f.GetRows("MSFT")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

// go test -v --run TestBuildEmptyStore
func TestBuildEmptyStore(t *testing.T) {
	_, err := Build(context.Background(), fakeSource{})
	assert.True(t, errors.Is(err, ErrNoData))
}
