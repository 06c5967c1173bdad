// Package rules serves per-(venue, instrument) trading-rule and
// commission-rate descriptors from a layered on-disk search path, with
// per-venue caching and lazy modification-time invalidation.
package rules

import "errors"

var (
	// ErrNotFound means no search-path location has a matching descriptor.
	ErrNotFound = errors.New("rules: descriptor not found")
	// ErrMalformedDescriptor means a descriptor exists but failed structural
	// validation.
	ErrMalformedDescriptor = errors.New("rules: malformed descriptor")
)

// TradingRule is one venue+instrument trading constraint record.
type TradingRule struct {
	Symbol            string  `json:"symbol"`
	MinQuantity       float64 `json:"min_quantity"`
	QuantityStep      float64 `json:"quantity_step"`
	MinPrice          float64 `json:"min_price"`
	PriceTick         float64 `json:"price_tick"`
	PricePrecision    int     `json:"price_precision"`
	QuantityPrecision int     `json:"quantity_precision"`
	MaxLeverage       float64 `json:"max_leverage"`
}

// CommissionRate is one venue+instrument fee record.
type CommissionRate struct {
	MakerFeeRate float64 `json:"maker_fee_rate"`
	TakerFeeRate float64 `json:"taker_fee_rate"`
}
