// Package strategy defines the fixed interface the engine invokes on opaque
// strategy implementations, the capability set strategies receive, and the
// registry of strategy types and declared instances.
package strategy

import (
	"time"

	"stratos/internal/market"
	"stratos/internal/pkg/phase"
	"stratos/internal/rules"
	"stratos/internal/types"
)

// CallbackFunc is a periodic callback registered during Init via RunDaily.
type CallbackFunc func(ctx Context) error

// Context is the capability set handed to every strategy entry point. It is
// bound to exactly one in-flight execution; strategies must not retain it
// past the call that received it.
type Context interface {
	// Request data.
	ExecID() string
	Exchange() string
	Account() types.Account
	IncompleteOrders() []types.Order
	CompletedOrders() []types.Order
	Param() []byte
	// Now is the trigger's timestamp.
	Now() time.Time

	// Market data, scoped to the request's snapshots.
	History(symbol string, count int, timeframe string) ([]types.Bar, error)
	InstrumentMetadata(symbol string) (market.InstrumentMetadata, error)
	Trades() map[string]types.Order

	// Venue descriptors.
	TradingRule(symbol string) (rules.TradingRule, error)
	CommissionRate(symbol string) (rules.CommissionRate, error)

	// Order operations. Quantities and limit prices are normalized against
	// the venue's trading rule before being recorded.
	Buy(symbol string, qty float64, limitPrice *float64) (types.Order, error)
	Sell(symbol string, qty float64, limitPrice *float64) (types.Order, error)
	Cancel(orderID string) bool
	Modify(orderID string, qty float64, limitPrice *float64) (bool, error)

	// RunDaily registers a periodic callback for a session phase. Only valid
	// during Init; later calls are ignored with a warning.
	RunDaily(fn CallbackFunc, tag phase.Phase, referenceSymbol string)

	// G is the strategy identity's persistent state, reused across
	// invocations of the same (account, strategy) pair.
	G() *State

	// Logf writes to the service log, tagged with the execution id.
	Logf(format string, v ...any)
}

// Strategy is the fixed entry-point interface. Embed Base to implement only
// the hooks a strategy cares about.
type Strategy interface {
	// Init runs once per strategy identity, before its first trigger.
	Init(ctx Context) error
	// BeforeTrading runs when a trigger lands in the before_open phase.
	BeforeTrading(ctx Context) error
	// OnBar handles market-data triggers with the trigger's latest bar.
	OnBar(ctx Context, bar types.Bar) error
	// OnOrder handles order-status triggers.
	OnOrder(ctx Context, order types.Order) error
	// OnRiskEvent handles risk-manage triggers.
	OnRiskEvent(ctx Context, evt types.RiskEvent) error
}

// Base is a no-op Strategy; concrete strategies embed it.
type Base struct{}

func (Base) Init(Context) error                         { return nil }
func (Base) BeforeTrading(Context) error                { return nil }
func (Base) OnBar(Context, types.Bar) error             { return nil }
func (Base) OnOrder(Context, types.Order) error         { return nil }
func (Base) OnRiskEvent(Context, types.RiskEvent) error { return nil }
