// Package export writes bar rows as parquet, csv or json files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quantviz/pkg/storage/barstore"
)

// Row is the flat, file-friendly form of a bar. Timestamp is unix milliseconds of the
// stored wall clock.
type Row struct {
	Symbol     string  `json:"symbol" parquet:"symbol"`
	Timestamp  int64   `json:"t" parquet:"t"`
	Open       float64 `json:"o" parquet:"o"`
	High       float64 `json:"h" parquet:"h"`
	Low        float64 `json:"l" parquet:"l"`
	Close      float64 `json:"c" parquet:"c"`
	Volume     float64 `json:"v" parquet:"v"`
	TradeCount int64   `json:"n,omitempty" parquet:"n,optional"`
	VWAP       float64 `json:"vw,omitempty" parquet:"vw,optional"`
}

// Time returns the row timestamp as a UTC wall clock.
func (r Row) Time() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

// Saver writes rows in one file format.
type Saver interface {
	Save(rows []Row, path string) error
	Extension() string
}

// NewSaver returns the saver for format: csv, parquet or json.
func NewSaver(format string) (Saver, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}, nil
	case "parquet":
		return ParquetSaver{}, nil
	case "json":
		return JSONSaver{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use csv, parquet or json)", format)
	}
}

// FromRecords converts stored records to rows.
func FromRecords(records []barstore.BarRecord) []Row {
	out := make([]Row, len(records))
	for i, r := range records {
		out[i] = Row{
			Symbol:     r.Symbol,
			Timestamp:  r.Timestamp.UnixMilli(),
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			Volume:     r.Volume,
			TradeCount: r.TradeCount,
			VWAP:       r.VWAP,
		}
	}
	return out
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}
