package barstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quantviz/internal/frame"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// canonical storage kinds for the columns the store knows about
var storageKinds = []struct {
	name string
	kind frame.Kind
}{
	{"symbol", frame.KindString},
	{"open", frame.KindFloat},
	{"high", frame.KindFloat},
	{"low", frame.KindFloat},
	{"close", frame.KindFloat},
	{"volume", frame.KindFloat},
	{"trade_count", frame.KindInt},
	{"vwap", frame.KindFloat},
}

// AppendResult counts what happened to one batch.
type AppendResult struct {
	Received   int
	Duplicates int
	Inserted   int
}

var (
	colSymbol    = clause.Column{Name: "symbol"}
	colTimestamp = clause.Column{Name: "timestamp"}
)

// Normalize flattens index levels into columns, turns the timestamp into a zone-less
// wall clock and coerces every known column to its storage type. The input is not modified.
func Normalize(f *frame.Frame) (*frame.Frame, error) {
	out := f.ResetIndex()

	if ts := out.Column("timestamp"); ts != nil && ts.Kind == frame.KindTimeTZ {
		if err := out.Coerce("timestamp", frame.KindTime); err != nil {
			return nil, err
		}
	}
	for _, sk := range storageKinds {
		if !out.Has(sk.name) {
			continue
		}
		if err := out.Coerce(sk.name, sk.kind); err != nil {
			return nil, fmt.Errorf("normalize: %w", err)
		}
	}
	return out, nil
}

// Append writes the rows of a normalized, validated frame whose (symbol, timestamp)
// pair is not stored yet. Repeats inside the batch are dropped too.
func (s *Store) Append(ctx context.Context, f *frame.Frame) (AppendResult, error) {
	records, err := Records(f)
	if err != nil {
		return AppendResult{}, err
	}
	res := AppendResult{Received: len(records)}
	if len(records) == 0 {
		return res, nil
	}

	// symbol set and time range spanned by the batch
	symbolSet := make(map[string]struct{})
	minTS, maxTS := records[0].Timestamp, records[0].Timestamp
	for _, r := range records {
		symbolSet[r.Symbol] = struct{}{}
		if r.Timestamp.Before(minTS) {
			minTS = r.Timestamp
		}
		if r.Timestamp.After(maxTS) {
			maxTS = r.Timestamp
		}
	}
	symbols := make([]interface{}, 0, len(symbolSet))
	for sym := range symbolSet {
		symbols = append(symbols, sym)
	}

	var existing []barKey
	err = s.DB.WithContext(ctx).
		Model(&BarRecord{}).
		Select("symbol", "timestamp").
		Where(clause.IN{Column: colSymbol, Values: symbols}).
		Where(clause.Gte{Column: colTimestamp, Value: minTS}).
		Where(clause.Lte{Column: colTimestamp, Value: maxTS}).
		Find(&existing).Error
	if err != nil {
		s.log.Error("Failed to query existing bars", zap.Error(err))
		return res, fmt.Errorf("query existing bars: %w", err)
	}

	seen := make(map[string]struct{}, len(existing)+len(records))
	for _, k := range existing {
		seen[k.String()] = struct{}{}
	}

	fresh := make([]BarRecord, 0, len(records))
	for _, r := range records {
		key := barKey{Symbol: r.Symbol, Timestamp: r.Timestamp}.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, r)
	}

	if len(fresh) > 0 {
		tx := s.DB.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{colSymbol, colTimestamp},
				DoNothing: true,
			}).
			CreateInBatches(&fresh, s.batchSize)
		if tx.Error != nil {
			s.log.Error("Failed to insert bars", zap.Int("rows", len(fresh)), zap.Error(tx.Error))
			return res, fmt.Errorf("insert bars: %w", tx.Error)
		}
		res.Inserted = int(tx.RowsAffected)
	}
	res.Duplicates = res.Received - res.Inserted

	s.log.Info("Appended bars",
		zap.Int("received", res.Received),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("inserted", res.Inserted),
	)
	return res, nil
}

// Symbols returns the distinct stored symbols, sorted.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	var out []string
	err := s.DB.WithContext(ctx).
		Model(&BarRecord{}).
		Distinct("symbol").
		Order(clause.OrderByColumn{Column: colSymbol}).
		Pluck("symbol", &out).Error
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return out, nil
}

// CloseSeries returns the close prices of symbol in timestamp order.
func (s *Store) CloseSeries(ctx context.Context, symbol string) ([]ClosePoint, error) {
	var out []ClosePoint
	err := s.DB.WithContext(ctx).
		Model(&BarRecord{}).
		Select("timestamp", "close").
		Where(clause.Eq{Column: colSymbol, Value: symbol}).
		Order(clause.OrderByColumn{Column: colTimestamp}).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("close series %s: %w", symbol, err)
	}
	return out, nil
}

// BarsBySymbol returns every stored bar of symbol in timestamp order.
func (s *Store) BarsBySymbol(ctx context.Context, symbol string) ([]BarRecord, error) {
	var out []BarRecord
	err := s.DB.WithContext(ctx).
		Where(clause.Eq{Column: colSymbol, Value: symbol}).
		Order(clause.OrderByColumn{Column: colTimestamp}).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("bars for %s: %w", symbol, err)
	}
	return out, nil
}

// All returns the whole table ordered by symbol and timestamp.
func (s *Store) All(ctx context.Context) ([]BarRecord, error) {
	var out []BarRecord
	err := s.DB.WithContext(ctx).
		Order(clause.OrderByColumn{Column: colSymbol}).
		Order(clause.OrderByColumn{Column: colTimestamp}).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("read stock_bars: %w", err)
	}
	return out, nil
}

// Recent returns the n newest bars, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]BarRecord, error) {
	var out []BarRecord
	err := s.DB.WithContext(ctx).
		Order(clause.OrderByColumn{Column: colTimestamp, Desc: true}).
		Order(clause.OrderByColumn{Column: colSymbol}).
		Limit(n).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("recent bars: %w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&BarRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count stock_bars: %w", err)
	}
	return n, nil
}

// Records converts a normalized frame into storage records. trade_count and vwap are optional.
func Records(f *frame.Frame) ([]BarRecord, error) {
	if len(f.IndexNames()) > 0 {
		return nil, errors.New("frame is not normalized: index levels present")
	}
	sym := f.Column("symbol")
	ts := f.Column("timestamp")
	if sym == nil || sym.Kind != frame.KindString {
		return nil, errors.New("frame has no string symbol column")
	}
	if ts == nil || ts.Kind != frame.KindTime {
		return nil, errors.New("frame has no naive timestamp column")
	}

	floats := func(name string) []float64 {
		if c := f.Column(name); c != nil && c.Kind == frame.KindFloat {
			return c.Floats
		}
		return nil
	}
	open, high, low, closes := floats("open"), floats("high"), floats("low"), floats("close")
	volume, vwap := floats("volume"), floats("vwap")
	var tradeCount []int64
	if c := f.Column("trade_count"); c != nil && c.Kind == frame.KindInt {
		tradeCount = c.Ints
	}

	at := func(v []float64, i int) float64 {
		if v == nil {
			return 0
		}
		return v[i]
	}

	out := make([]BarRecord, f.Len())
	for i := range out {
		out[i] = BarRecord{
			Symbol:    sym.Strings[i],
			Timestamp: frame.StripZone(ts.Times[i]),
			Open:      at(open, i),
			High:      at(high, i),
			Low:       at(low, i),
			Close:     at(closes, i),
			Volume:    at(volume, i),
			VWAP:      at(vwap, i),
		}
		if tradeCount != nil {
			out[i].TradeCount = tradeCount[i]
		}
	}
	return out, nil
}

// ToFrame turns stored records back into a flat frame with naive timestamps.
func ToFrame(records []BarRecord) (*frame.Frame, error) {
	n := len(records)
	var (
		symbols    = make([]string, n)
		timestamps = make([]time.Time, n)
		open       = make([]float64, n)
		high       = make([]float64, n)
		low        = make([]float64, n)
		closes     = make([]float64, n)
		volume     = make([]float64, n)
		tradeCount = make([]int64, n)
		vwap       = make([]float64, n)
	)
	for i, r := range records {
		symbols[i] = r.Symbol
		timestamps[i] = frame.StripZone(r.Timestamp)
		open[i], high[i], low[i], closes[i] = r.Open, r.High, r.Low, r.Close
		volume[i], tradeCount[i], vwap[i] = r.Volume, r.TradeCount, r.VWAP
	}
	return frame.New(
		frame.StringColumn("symbol", symbols),
		frame.TimeColumn("timestamp", timestamps),
		frame.FloatColumn("open", open),
		frame.FloatColumn("high", high),
		frame.FloatColumn("low", low),
		frame.FloatColumn("close", closes),
		frame.FloatColumn("volume", volume),
		frame.IntColumn("trade_count", tradeCount),
		frame.FloatColumn("vwap", vwap),
	)
}
