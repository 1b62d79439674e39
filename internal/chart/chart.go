// Package chart renders stored close prices into an Excel workbook, one sheet and
// one line chart per symbol.
package chart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"quantviz/pkg/storage/barstore"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrNoData is returned when the store holds no bars.
var ErrNoData = errors.New("no bars stored")

// Source is the read side of the store the chart needs.
type Source interface {
	Symbols(ctx context.Context) ([]string, error)
	CloseSeries(ctx context.Context, symbol string) ([]barstore.ClosePoint, error)
}

// Build creates a workbook with a sheet per symbol holding (Timestamp, Close) rows and
// a line chart of the close series.
func Build(ctx context.Context, src Source) (*excelize.File, error) {
	symbols, err := src.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, ErrNoData
	}

	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)

	for i, symbol := range symbols {
		series, err := src.CloseSeries(ctx, symbol)
		if err != nil {
			_ = f.Close()
			return nil, err
		}

		if i == 0 {
			err = f.SetSheetName(defaultSheet, symbol)
		} else {
			_, err = f.NewSheet(symbol)
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %s: %w", symbol, err)
		}

		if err := writeSeries(f, symbol, series); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %s: %w", symbol, err)
		}
	}
	return f, nil
}

func writeSeries(f *excelize.File, sheet string, series []barstore.ClosePoint) error {
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Timestamp", "Close"}); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return err
	}
	for i, p := range series {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{p.Timestamp, p.Close}); err != nil {
			return err
		}
	}
	if len(series) == 0 {
		return nil
	}

	last := len(series) + 1
	return f.AddChart(sheet, "D2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$1", sheet),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, last),
			Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheet, last),
		}},
		Title:     []excelize.RichTextRun{{Text: sheet + " close"}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 720, Height: 360},
	})
}

// Write builds the workbook and saves it at path, creating the directory.
func Write(ctx context.Context, src Source, path string, log *zap.Logger) error {
	f, err := Build(ctx, src)
	if err != nil {
		return err
	}
	defer f.Close()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create chart dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	log.Info("Chart written", zap.String("file", path), zap.Strings("sheets", f.GetSheetList()))
	return nil
}
