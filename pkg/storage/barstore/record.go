package barstore

import "time"

// BarRecord is one persisted bar. Timestamps are zone-less wall clock values stored as UTC.
type BarRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Symbol    string    `gorm:"type:varchar(10);not null;index:idx_stock_bars_symbol_timestamp,unique"`
	Timestamp time.Time `gorm:"type:timestamp;not null;index:idx_stock_bars_symbol_timestamp,unique"`

	Open  float64 `gorm:"not null"`
	High  float64 `gorm:"not null"`
	Low   float64 `gorm:"not null"`
	Close float64 `gorm:"not null"`

	Volume     float64 `gorm:"not null"`
	TradeCount int64
	VWAP       float64 `gorm:"column:vwap"`
}

// TableName overrides the default table name for GORM.
func (BarRecord) TableName() string {
	return "stock_bars"
}

// ClosePoint is one element of a close-price series.
type ClosePoint struct {
	Timestamp time.Time
	Close     float64
}

type barKey struct {
	Symbol    string
	Timestamp time.Time
}

func (k barKey) String() string {
	return k.Symbol + "|" + k.Timestamp.UTC().Format(time.RFC3339Nano)
}
