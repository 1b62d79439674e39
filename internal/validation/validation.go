// Package validation gates market data before it is trusted.
//
// Structural validation is a hard gate: required columns must exist with the expected
// kind. Value validation is a soft gate: it reports row positions per violation
// category and leaves the decision to the caller.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"quantviz/internal/frame"
)

const (
	MinPrice = 0.01  // inclusive
	MaxPrice = 10000 // exclusive

	// MaxSymbolLen matches the stock_bars.symbol column width.
	MaxSymbolLen = 10
)

// Category names a kind of value violation.
type Category string

const (
	InvalidOpen       Category = "invalid_open"
	InvalidHigh       Category = "invalid_high"
	InvalidLow        Category = "invalid_low"
	InvalidClose      Category = "invalid_close"
	NonPositiveVolume Category = "non_positive_volume"
	FutureTimestamps  Category = "future_timestamps"
)

type requiredColumn struct {
	name string
	kind frame.Kind
}

var requiredColumns = []requiredColumn{
	{"symbol", frame.KindString},
	{"timestamp", frame.KindTime},
	{"open", frame.KindFloat},
	{"high", frame.KindFloat},
	{"low", frame.KindFloat},
	{"close", frame.KindFloat},
	{"volume", frame.KindFloat},
}

var priceCategories = []struct {
	column   string
	category Category
}{
	{"open", InvalidOpen},
	{"high", InvalidHigh},
	{"low", InvalidLow},
	{"close", InvalidClose},
}

// MissingColumnsError lists required columns absent from the frame.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// Mismatch is one column whose kind differs from the expected one.
type Mismatch struct {
	Column   string
	Expected frame.Kind
	Actual   frame.Kind
}

// TypeMismatchError lists every mistyped required column.
type TypeMismatchError struct {
	Mismatches []Mismatch
}

func (e *TypeMismatchError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = fmt.Sprintf("%s (expected %s, got %s)", m.Column, m.Expected, m.Actual)
	}
	return "type mismatches: " + strings.Join(parts, ", ")
}

// InvalidSymbolsError lists the distinct symbols that are empty or longer than MaxSymbolLen.
type InvalidSymbolsError struct {
	Symbols []string
}

func (e *InvalidSymbolsError) Error() string {
	quoted := make([]string, len(e.Symbols))
	for i, s := range e.Symbols {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("invalid symbols (1 to %d characters): %s", MaxSymbolLen, strings.Join(quoted, ", "))
}

// ValidateStructure checks that every required column is present and correctly typed,
// and that every symbol fits the storage column.
// Missing columns are reported before type mismatches.
func ValidateStructure(f *frame.Frame) error {
	var missing []string
	for _, rc := range requiredColumns {
		if !f.Has(rc.name) {
			missing = append(missing, rc.name)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing}
	}

	var mismatches []Mismatch
	for _, rc := range requiredColumns {
		if got := f.Column(rc.name).Kind; got != rc.kind {
			mismatches = append(mismatches, Mismatch{Column: rc.name, Expected: rc.kind, Actual: got})
		}
	}
	if len(mismatches) > 0 {
		return &TypeMismatchError{Mismatches: mismatches}
	}

	var invalid []string
	seen := make(map[string]struct{})
	for _, sym := range f.Column("symbol").Strings {
		if sym != "" && len(sym) <= MaxSymbolLen {
			continue
		}
		if _, ok := seen[sym]; !ok {
			seen[sym] = struct{}{}
			invalid = append(invalid, sym)
		}
	}
	if len(invalid) > 0 {
		return &InvalidSymbolsError{Symbols: invalid}
	}
	return nil
}

// Violations maps a category to the affected row positions, in ascending order.
type Violations map[Category][]int

func (v Violations) Empty() bool { return len(v) == 0 }

// Rows returns the sorted union of all affected row positions.
func (v Violations) Rows() []int {
	seen := make(map[int]struct{})
	for _, rows := range v {
		for _, r := range rows {
			seen[r] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// Categories returns the categories present, sorted by name.
func (v Violations) Categories() []Category {
	out := make([]Category, 0, len(v))
	for c := range v {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ValidateValues scans a structurally valid frame for out-of-range prices,
// non-positive volume and timestamps after now. Columns missing or mistyped are skipped.
func ValidateValues(f *frame.Frame, now time.Time) Violations {
	v := Violations{}

	for _, pc := range priceCategories {
		col := f.Column(pc.column)
		if col == nil || col.Kind != frame.KindFloat {
			continue
		}
		for i, p := range col.Floats {
			if !(p >= MinPrice && p < MaxPrice) {
				v[pc.category] = append(v[pc.category], i)
			}
		}
	}

	if col := f.Column("volume"); col != nil && col.Kind == frame.KindFloat {
		for i, vol := range col.Floats {
			if !(vol > 0) {
				v[NonPositiveVolume] = append(v[NonPositiveVolume], i)
			}
		}
	}

	if col := f.Column("timestamp"); col != nil && (col.Kind == frame.KindTime || col.Kind == frame.KindTimeTZ) {
		// naive timestamps are wall clock; compare against now's wall clock
		limit := now
		if col.Kind == frame.KindTime {
			limit = frame.StripZone(now)
		}
		for i, ts := range col.Times {
			if ts.After(limit) {
				v[FutureTimestamps] = append(v[FutureTimestamps], i)
			}
		}
	}

	return v
}
