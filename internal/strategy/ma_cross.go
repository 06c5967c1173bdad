package strategy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"stratos/internal/market"
	"stratos/internal/pkg/phase"
	"stratos/internal/rules"
	"stratos/internal/types"
)

func init() {
	RegisterType("ma_cross", func(params map[string]any) (Strategy, error) {
		var p maCrossParams
		if err := DecodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Fast <= 0 {
			p.Fast = 5
		}
		if p.Slow <= p.Fast {
			p.Slow = p.Fast * 4
		}
		if p.Qty <= 0 {
			p.Qty = 1.0
		}
		if p.Symbol == "" {
			return nil, fmt.Errorf("ma_cross: symbol is required")
		}
		if p.Timeframe == "" {
			p.Timeframe = "1h"
		}
		return &MACross{params: p}, nil
	})
}

type maCrossParams struct {
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"timeframe"`
	Fast      int     `json:"fast"`
	Slow      int     `json:"slow"`
	Qty       float64 `json:"qty"`
}

const maCrossSideKey = "ma_cross:last_side"

// MACross is a close-price moving-average crossover over the request-scoped
// history window. Fast MA crossing above the slow MA opens, crossing below
// closes. The last observed side lives in the identity's persistent state so
// repeated triggers do not re-fire the same signal.
type MACross struct {
	Base
	params maCrossParams
}

func (m *MACross) Init(ctx Context) error {
	ctx.RunDaily(m.logSessionStart, phase.BeforeOpen, m.params.Symbol)
	return nil
}

func (m *MACross) logSessionStart(ctx Context) error {
	rule, err := ctx.TradingRule(m.params.Symbol)
	if err != nil {
		if errors.Is(err, rules.ErrNotFound) {
			ctx.Logf("ma_cross: no trading rule for %s on %s", m.params.Symbol, ctx.Exchange())
			return nil
		}
		return err
	}
	ctx.Logf("ma_cross: session start %s, min_qty=%v step=%v", m.params.Symbol, rule.MinQuantity, rule.QuantityStep)
	return nil
}

func (m *MACross) OnBar(ctx Context, _ types.Bar) error {
	bars, err := ctx.History(m.params.Symbol, m.params.Slow, m.params.Timeframe)
	if err != nil {
		if errors.Is(err, market.ErrInsufficientData) {
			ctx.Logf("ma_cross: not enough history yet (%v)", err)
			return nil
		}
		return err
	}
	fast, err := meanClose(bars[len(bars)-m.params.Fast:])
	if err != nil {
		return err
	}
	slow, err := meanClose(bars)
	if err != nil {
		return err
	}

	side := "flat"
	if fast.GreaterThan(slow) {
		side = "long"
	} else if fast.LessThan(slow) {
		side = "short"
	}
	prev, _ := ctx.G().Get(maCrossSideKey)
	if prev == side {
		return nil
	}
	ctx.G().Set(maCrossSideKey, side)

	switch side {
	case "long":
		_, err = ctx.Buy(m.params.Symbol, m.params.Qty, nil)
	case "short":
		_, err = ctx.Sell(m.params.Symbol, m.params.Qty, nil)
	}
	return err
}

func meanClose(bars []types.Bar) (decimal.Decimal, error) {
	if len(bars) == 0 {
		return decimal.Zero, fmt.Errorf("ma_cross: empty bar window")
	}
	sum := decimal.Zero
	for _, b := range bars {
		c, err := b.CloseDecimal()
		if err != nil {
			return decimal.Zero, fmt.Errorf("ma_cross: bad close %q: %w", b.Close, err)
		}
		sum = sum.Add(c)
	}
	return sum.Div(decimal.NewFromInt(int64(len(bars)))), nil
}
