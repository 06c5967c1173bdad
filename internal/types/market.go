package types

import "github.com/shopspring/decimal"

// Bar is one K-line. Prices and volume are decimal strings as received on the
// wire; use the typed accessors for arithmetic.
type Bar struct {
	OpenTime  int64  `json:"open_time"`
	CloseTime int64  `json:"close_time"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume"`
}

func (b Bar) OpenDecimal() (decimal.Decimal, error)   { return decimal.NewFromString(b.Open) }
func (b Bar) HighDecimal() (decimal.Decimal, error)   { return decimal.NewFromString(b.High) }
func (b Bar) LowDecimal() (decimal.Decimal, error)    { return decimal.NewFromString(b.Low) }
func (b Bar) CloseDecimal() (decimal.Decimal, error)  { return decimal.NewFromString(b.Close) }
func (b Bar) VolumeDecimal() (decimal.Decimal, error) { return decimal.NewFromString(b.Volume) }

// MarketDataContext is the bar window for one (symbol, timeframe) pair carried
// by an ExecRequest. Bars are ordered oldest first.
type MarketDataContext struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Bars      []Bar  `json:"bars"`
}

// MarketDataDetail is the trigger detail for market-data triggers.
type MarketDataDetail struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Timestamp int64  `json:"timestamp"` // ms since epoch
}
