package strategy

import (
	"stratos/internal/types"
)

func init() {
	RegisterType("demo", func(params map[string]any) (Strategy, error) {
		var p demoParams
		if err := DecodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.Qty <= 0 {
			p.Qty = 1.0
		}
		if p.Symbol == "" {
			p.Symbol = "BTCUSDT"
		}
		return &Demo{params: p}, nil
	})
}

type demoParams struct {
	Symbol string  `json:"symbol"`
	Qty    float64 `json:"qty"`
}

// Demo buys a fixed quantity at market on every bar. Useful for wiring checks
// and as the reference strategy in tests.
type Demo struct {
	Base
	params demoParams
}

func (d *Demo) OnBar(ctx Context, bar types.Bar) error {
	ctx.Logf("demo: bar close=%s, buying %v %s", bar.Close, d.params.Qty, d.params.Symbol)
	_, err := ctx.Buy(d.params.Symbol, d.params.Qty, nil)
	return err
}
