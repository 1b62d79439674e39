// Package frame is a minimal columnar table: typed, equally long columns with an
// optional multi-level row index. Market data arrives as a frame and is reshaped,
// coerced and validated before it is turned into storage records.
package frame

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the semantic type of a column.
type Kind int

const (
	KindString Kind = iota
	KindTime        // zone-less wall clock, stored as UTC
	KindTimeTZ      // zone-aware instant
	KindFloat
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindTime:
		return "datetime"
	case KindTimeTZ:
		return "datetime_tz"
	case KindFloat:
		return "float64"
	case KindInt:
		return "int64"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column holds the values of one column. Only the slice matching Kind is populated.
type Column struct {
	Name    string
	Kind    Kind
	Strings []string
	Times   []time.Time
	Floats  []float64
	Ints    []int64
}

func (c *Column) Len() int {
	switch c.Kind {
	case KindString:
		return len(c.Strings)
	case KindTime, KindTimeTZ:
		return len(c.Times)
	case KindFloat:
		return len(c.Floats)
	case KindInt:
		return len(c.Ints)
	}
	return 0
}

func StringColumn(name string, v []string) *Column {
	return &Column{Name: name, Kind: KindString, Strings: v}
}

func TimeColumn(name string, v []time.Time) *Column {
	return &Column{Name: name, Kind: KindTime, Times: v}
}

func TimeTZColumn(name string, v []time.Time) *Column {
	return &Column{Name: name, Kind: KindTimeTZ, Times: v}
}

func FloatColumn(name string, v []float64) *Column {
	return &Column{Name: name, Kind: KindFloat, Floats: v}
}

func IntColumn(name string, v []int64) *Column {
	return &Column{Name: name, Kind: KindInt, Ints: v}
}

// Frame is an ordered set of columns plus index levels. All columns and levels have the same length.
type Frame struct {
	index   []*Column
	columns []*Column
	rows    int
}

// New builds a frame from columns. It fails when lengths differ or names repeat.
func New(cols ...*Column) (*Frame, error) {
	f := &Frame{}
	for _, c := range cols {
		if err := f.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// AddColumn appends c as the last column.
func (f *Frame) AddColumn(c *Column) error {
	if f.Has(c.Name) {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if err := f.checkLen(c); err != nil {
		return err
	}
	f.columns = append(f.columns, c)
	return nil
}

// SetIndex moves the named columns, in order, into the row index.
func (f *Frame) SetIndex(names ...string) error {
	for _, name := range names {
		i := f.columnPos(name)
		if i < 0 {
			return fmt.Errorf("unknown column %q", name)
		}
		f.index = append(f.index, f.columns[i])
		f.columns = append(f.columns[:i], f.columns[i+1:]...)
	}
	return nil
}

// ResetIndex returns a copy of f with the index levels turned back into leading columns.
// A frame without index is copied as is. Coercing the copy leaves f untouched.
func (f *Frame) ResetIndex() *Frame {
	out := &Frame{rows: f.rows}
	out.columns = make([]*Column, 0, len(f.index)+len(f.columns))
	for _, c := range f.index {
		cp := *c
		out.columns = append(out.columns, &cp)
	}
	for _, c := range f.columns {
		cp := *c
		out.columns = append(out.columns, &cp)
	}
	return out
}

// IndexNames lists the index levels.
func (f *Frame) IndexNames() []string {
	names := make([]string, len(f.index))
	for i, c := range f.index {
		names[i] = c.Name
	}
	return names
}

// Names lists the (non-index) columns in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

func (f *Frame) Len() int { return f.rows }

func (f *Frame) Has(name string) bool { return f.columnPos(name) >= 0 }

// Column returns the named column, or nil.
func (f *Frame) Column(name string) *Column {
	if i := f.columnPos(name); i >= 0 {
		return f.columns[i]
	}
	return nil
}

// Filter returns a new frame holding only the rows for which keep returns true.
func (f *Frame) Filter(keep func(row int) bool) *Frame {
	var rows []int
	for i := 0; i < f.rows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	out := &Frame{rows: len(rows)}
	for _, c := range f.index {
		out.index = append(out.index, c.take(rows))
	}
	for _, c := range f.columns {
		out.columns = append(out.columns, c.take(rows))
	}
	return out
}

// Coerce converts the named column to kind in place.
// Supported: int<->float (float to int truncates), string->float/int, datetime_tz->datetime
// via StripZone, datetime->datetime_tz (as UTC), anything->string.
func (f *Frame) Coerce(name string, kind Kind) error {
	c := f.Column(name)
	if c == nil {
		return fmt.Errorf("unknown column %q", name)
	}
	if c.Kind == kind {
		return nil
	}
	n := c.Len()
	switch {
	case kind == KindString:
		out := make([]string, n)
		for i := 0; i < n; i++ {
			out[i] = c.format(i)
		}
		*c = Column{Name: c.Name, Kind: kind, Strings: out}
	case kind == KindFloat && c.Kind == KindInt:
		out := make([]float64, n)
		for i, v := range c.Ints {
			out[i] = float64(v)
		}
		*c = Column{Name: c.Name, Kind: kind, Floats: out}
	case kind == KindInt && c.Kind == KindFloat:
		out := make([]int64, n)
		for i, v := range c.Floats {
			out[i] = int64(v)
		}
		*c = Column{Name: c.Name, Kind: kind, Ints: out}
	case kind == KindFloat && c.Kind == KindString:
		out := make([]float64, n)
		for i, s := range c.Strings {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("column %q row %d: %w", c.Name, i, err)
			}
			out[i] = v
		}
		*c = Column{Name: c.Name, Kind: kind, Floats: out}
	case kind == KindInt && c.Kind == KindString:
		out := make([]int64, n)
		for i, s := range c.Strings {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("column %q row %d: %w", c.Name, i, err)
			}
			out[i] = v
		}
		*c = Column{Name: c.Name, Kind: kind, Ints: out}
	case kind == KindTime && c.Kind == KindTimeTZ:
		out := make([]time.Time, n)
		for i, t := range c.Times {
			out[i] = StripZone(t)
		}
		*c = Column{Name: c.Name, Kind: kind, Times: out}
	case kind == KindTimeTZ && c.Kind == KindTime:
		out := make([]time.Time, n)
		copy(out, c.Times)
		*c = Column{Name: c.Name, Kind: kind, Times: out}
	default:
		return fmt.Errorf("cannot convert column %q from %s to %s", c.Name, c.Kind, kind)
	}
	return nil
}

// StripZone keeps the wall clock of t and drops its offset: 09:30-05:00 becomes 09:30 (UTC).
func StripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func (f *Frame) columnPos(name string) int {
	for i, c := range f.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (f *Frame) checkLen(c *Column) error {
	if len(f.columns)+len(f.index) == 0 {
		f.rows = c.Len()
		return nil
	}
	if c.Len() != f.rows {
		return fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), f.rows)
	}
	return nil
}

func (c *Column) take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	for _, r := range rows {
		switch c.Kind {
		case KindString:
			out.Strings = append(out.Strings, c.Strings[r])
		case KindTime, KindTimeTZ:
			out.Times = append(out.Times, c.Times[r])
		case KindFloat:
			out.Floats = append(out.Floats, c.Floats[r])
		case KindInt:
			out.Ints = append(out.Ints, c.Ints[r])
		}
	}
	return out
}

func (c *Column) format(i int) string {
	switch c.Kind {
	case KindString:
		return c.Strings[i]
	case KindTime:
		return c.Times[i].Format("2006-01-02 15:04:05")
	case KindTimeTZ:
		return c.Times[i].Format(time.RFC3339)
	case KindFloat:
		return strconv.FormatFloat(c.Floats[i], 'f', -1, 64)
	case KindInt:
		return strconv.FormatInt(c.Ints[i], 10)
	}
	return ""
}
