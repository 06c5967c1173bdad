// Package market implements the request-scoped data adapter. It answers
// historical-bar, instrument-metadata, and fill queries strictly from the
// snapshots carried by one ExecRequest and performs no I/O of its own.
package market

import (
	"errors"
	"fmt"

	"stratos/internal/pkg/phase"
	"stratos/internal/types"
)

// ErrInsufficientData means a query asked for data outside the range the
// request supplied. The adapter never pads or truncates silently.
var ErrInsufficientData = errors.New("market: insufficient data")

// InstrumentMetadata summarizes what the request knows about one instrument.
type InstrumentMetadata struct {
	Symbol     string
	Market     phase.MarketType
	Timeframes []string
	BarCount   int
	FirstOpen  int64
	LastClose  int64
}

// Adapter is built fresh per execution scope; it holds no shared mutable
// state, so concurrent scopes for different pairs never interact through it.
type Adapter struct {
	contexts []types.MarketDataContext
	trades   map[string]types.Order
}

// NewAdapter indexes one request's market-data snapshots and completed-order
// fills.
func NewAdapter(req *types.ExecRequest) *Adapter {
	trades := make(map[string]types.Order, len(req.CompletedOrders))
	for _, o := range req.CompletedOrders {
		key := o.OrderID
		if key == "" {
			key = o.UniqueID
		}
		if key != "" {
			trades[key] = o
		}
	}
	return &Adapter{contexts: req.MarketDataContext, trades: trades}
}

// History returns the most recent count bars for (symbol, timeframe), oldest
// first. Fails with ErrInsufficientData when the request carries no matching
// context or fewer bars than requested.
func (a *Adapter) History(symbol string, count int, timeframe string) ([]types.Bar, error) {
	if count <= 0 {
		return nil, fmt.Errorf("history %s/%s: count %d must be positive", symbol, timeframe, count)
	}
	for _, ctx := range a.contexts {
		if ctx.Symbol != symbol || ctx.Timeframe != timeframe {
			continue
		}
		if len(ctx.Bars) < count {
			return nil, fmt.Errorf("history %s/%s: have %d bars, want %d: %w",
				symbol, timeframe, len(ctx.Bars), count, ErrInsufficientData)
		}
		out := make([]types.Bar, count)
		copy(out, ctx.Bars[len(ctx.Bars)-count:])
		return out, nil
	}
	return nil, fmt.Errorf("history %s/%s: no market data context: %w", symbol, timeframe, ErrInsufficientData)
}

// PrimaryBar is the latest bar of the request's first market-data context,
// the bar a market-data trigger dispatches with.
func (a *Adapter) PrimaryBar() (types.Bar, error) {
	if len(a.contexts) == 0 || len(a.contexts[0].Bars) == 0 {
		return types.Bar{}, fmt.Errorf("primary bar: %w", ErrInsufficientData)
	}
	bars := a.contexts[0].Bars
	return bars[len(bars)-1], nil
}

// InstrumentMetadata aggregates the contexts supplied for one symbol.
func (a *Adapter) InstrumentMetadata(symbol string) (InstrumentMetadata, error) {
	meta := InstrumentMetadata{Symbol: symbol, Market: phase.DetectMarket(symbol)}
	found := false
	for _, ctx := range a.contexts {
		if ctx.Symbol != symbol {
			continue
		}
		found = true
		meta.Timeframes = append(meta.Timeframes, ctx.Timeframe)
		meta.BarCount += len(ctx.Bars)
		if len(ctx.Bars) > 0 {
			first, last := ctx.Bars[0].OpenTime, ctx.Bars[len(ctx.Bars)-1].CloseTime
			if meta.FirstOpen == 0 || first < meta.FirstOpen {
				meta.FirstOpen = first
			}
			if last > meta.LastClose {
				meta.LastClose = last
			}
		}
	}
	if !found {
		return InstrumentMetadata{}, fmt.Errorf("metadata %s: %w", symbol, ErrInsufficientData)
	}
	return meta, nil
}

// Trades maps order id to its fill record, from the request's completed
// orders. The returned map is a copy.
func (a *Adapter) Trades() map[string]types.Order {
	out := make(map[string]types.Order, len(a.trades))
	for k, v := range a.trades {
		out[k] = v
	}
	return out
}
