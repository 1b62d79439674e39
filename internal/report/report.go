// Package report summarizes the stored bars as a markdown table rendered for the terminal.
package report

import (
	"context"
	"fmt"
	"strings"

	"quantviz/pkg/storage/barstore"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04"

var hundred = decimal.NewFromInt(100)

// Source is the read side of the store the report needs.
type Source interface {
	Symbols(ctx context.Context) ([]string, error)
	CloseSeries(ctx context.Context, symbol string) ([]barstore.ClosePoint, error)
	Recent(ctx context.Context, n int) ([]barstore.BarRecord, error)
	Count(ctx context.Context) (int64, error)
}

// SymbolSummary is one line of the per-symbol table.
type SymbolSummary struct {
	Symbol    string
	Rows      int
	First     barstore.ClosePoint
	Last      barstore.ClosePoint
	LastClose decimal.Decimal
	// ChangePct is nil when the first close is zero.
	ChangePct *decimal.Decimal
}

type Summary struct {
	Total   int64
	Symbols []SymbolSummary
	Recent  []barstore.BarRecord
}

// Build reads the store. recent is how many of the newest bars to list.
func Build(ctx context.Context, src Source, recent int) (Summary, error) {
	var s Summary
	var err error

	if s.Total, err = src.Count(ctx); err != nil {
		return s, err
	}
	symbols, err := src.Symbols(ctx)
	if err != nil {
		return s, err
	}
	for _, sym := range symbols {
		series, err := src.CloseSeries(ctx, sym)
		if err != nil {
			return s, err
		}
		if len(series) == 0 {
			continue
		}
		s.Symbols = append(s.Symbols, summarize(sym, series))
	}
	if recent > 0 {
		if s.Recent, err = src.Recent(ctx, recent); err != nil {
			return s, err
		}
	}
	return s, nil
}

func summarize(symbol string, series []barstore.ClosePoint) SymbolSummary {
	first, last := series[0], series[len(series)-1]
	out := SymbolSummary{
		Symbol:    symbol,
		Rows:      len(series),
		First:     first,
		Last:      last,
		LastClose: decimal.NewFromFloat(last.Close),
	}
	if change, ok := ChangePct(first.Close, last.Close); ok {
		out.ChangePct = &change
	}
	return out
}

// ChangePct returns (last-first)/first in percent, rounded to two places.
func ChangePct(first, last float64) (decimal.Decimal, bool) {
	f := decimal.NewFromFloat(first)
	if f.IsZero() {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(last).Sub(f).Div(f).Mul(hundred).Round(2), true
}

// Markdown renders the summary as markdown tables.
func (s Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# stock_bars\n\n%d rows, %d symbols\n\n", s.Total, len(s.Symbols))

	if len(s.Symbols) > 0 {
		b.WriteString("| Symbol | Rows | First | Last | Last close | Change % |\n")
		b.WriteString("|---|---:|---|---|---:|---:|\n")
		for _, r := range s.Symbols {
			change := "n/a"
			if r.ChangePct != nil {
				change = r.ChangePct.StringFixed(2)
			}
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s |\n",
				r.Symbol, r.Rows,
				r.First.Timestamp.Format(timeLayout), r.Last.Timestamp.Format(timeLayout),
				r.LastClose.StringFixed(2), change)
		}
		b.WriteString("\n")
	}

	if len(s.Recent) > 0 {
		b.WriteString("## Latest bars\n\n")
		b.WriteString("| Symbol | Timestamp | Open | High | Low | Close | Volume |\n")
		b.WriteString("|---|---|---:|---:|---:|---:|---:|\n")
		for _, r := range s.Recent {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				r.Symbol, r.Timestamp.Format(timeLayout),
				price(r.Open), price(r.High), price(r.Low), price(r.Close),
				decimal.NewFromFloat(r.Volume).String())
		}
	}
	return b.String()
}

func price(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Render formats markdown for the terminal with a glamour style ("auto", "dark", "ascii", ...).
func Render(markdown, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}
