// Package trading provides order normalization helpers.
package trading

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrBelowMinimum means a quantity or price is below the venue's floor after
// normalization.
var ErrBelowMinimum = errors.New("below venue minimum")

// NormalizeQty floors qty onto the venue's step grid at the given precision.
// Fails when the result drops below minQty.
func NormalizeQty(qty, minQty, step float64, precision int) (float64, error) {
	d := decimal.NewFromFloat(qty)
	if step > 0 {
		s := decimal.NewFromFloat(step)
		d = d.Div(s).Floor().Mul(s)
	}
	if precision >= 0 {
		d = d.Truncate(int32(precision))
	}
	if minQty > 0 && d.LessThan(decimal.NewFromFloat(minQty)) {
		return 0, fmt.Errorf("qty %v after step rounding: %w", qty, ErrBelowMinimum)
	}
	f, _ := d.Float64()
	return f, nil
}

// NormalizePrice snaps price onto the venue's tick grid at the given
// precision. Fails when the result drops below minPrice.
func NormalizePrice(price, minPrice, tick float64, precision int) (float64, error) {
	d := decimal.NewFromFloat(price)
	if tick > 0 {
		t := decimal.NewFromFloat(tick)
		d = d.Div(t).Round(0).Mul(t)
	}
	if precision >= 0 {
		d = d.Round(int32(precision))
	}
	if minPrice > 0 && d.LessThan(decimal.NewFromFloat(minPrice)) {
		return 0, fmt.Errorf("price %v after tick rounding: %w", price, ErrBelowMinimum)
	}
	f, _ := d.Float64()
	return f, nil
}

// FormatPrice renders a normalized price as a wire decimal string.
func FormatPrice(price float64, precision int) string {
	if precision < 0 {
		precision = 8
	}
	return decimal.NewFromFloat(price).Round(int32(precision)).String()
}
