package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"stratos/internal/engine/sched"
	"stratos/internal/logger"
	"stratos/internal/market"
	"stratos/internal/pkg/phase"
	"stratos/internal/pkg/trading"
	"stratos/internal/rules"
	"stratos/internal/strategy"
	"stratos/internal/types"
)

// execContext is the capability object handed to strategy code. One is built
// per invocation and carries its own order-operation buffer, so a stale
// context from an abandoned call can never leak operations into a later
// response.
type execContext struct {
	req      *types.ExecRequest
	data     *market.Adapter
	state    *strategy.State
	rulesSvc *rules.Service
	sched    *sched.Scheduler
	now      time.Time

	inInit bool

	mu  sync.Mutex
	ops []types.OrderOp
}

var _ strategy.Context = (*execContext)(nil)

func newExecContext(req *types.ExecRequest, data *market.Adapter, state *strategy.State,
	rulesSvc *rules.Service, scheduler *sched.Scheduler, tsMillis int64) *execContext {
	return &execContext{
		req:      req,
		data:     data,
		state:    state,
		rulesSvc: rulesSvc,
		sched:    scheduler,
		now:      time.UnixMilli(tsMillis),
	}
}

func (c *execContext) ExecID() string                  { return c.req.ExecID }
func (c *execContext) Exchange() string                { return c.req.Exchange }
func (c *execContext) Account() types.Account          { return c.req.Account }
func (c *execContext) IncompleteOrders() []types.Order { return c.req.IncompleteOrders }
func (c *execContext) CompletedOrders() []types.Order  { return c.req.CompletedOrders }
func (c *execContext) Param() []byte                   { return c.req.StrategyParam }
func (c *execContext) Now() time.Time                  { return c.now }
func (c *execContext) G() *strategy.State              { return c.state }

func (c *execContext) History(symbol string, count int, timeframe string) ([]types.Bar, error) {
	return c.data.History(symbol, count, timeframe)
}

func (c *execContext) InstrumentMetadata(symbol string) (market.InstrumentMetadata, error) {
	return c.data.InstrumentMetadata(symbol)
}

func (c *execContext) Trades() map[string]types.Order { return c.data.Trades() }

func (c *execContext) TradingRule(symbol string) (rules.TradingRule, error) {
	return c.rulesSvc.TradingRule(c.req.Exchange, symbol)
}

func (c *execContext) CommissionRate(symbol string) (rules.CommissionRate, error) {
	return c.rulesSvc.CommissionRate(c.req.Exchange, symbol)
}

func (c *execContext) Buy(symbol string, qty float64, limitPrice *float64) (types.Order, error) {
	return c.createOrder(symbol, qty, types.DirectionBuy, limitPrice)
}

func (c *execContext) Sell(symbol string, qty float64, limitPrice *float64) (types.Order, error) {
	return c.createOrder(symbol, qty, types.DirectionSell, limitPrice)
}

func (c *execContext) createOrder(symbol string, qty float64, dir types.DirectionType, limitPrice *float64) (types.Order, error) {
	if qty <= 0 {
		return types.Order{}, fmt.Errorf("order qty %v must be positive", qty)
	}
	pricePrecision := -1
	rule, err := c.rulesSvc.TradingRule(c.req.Exchange, symbol)
	switch {
	case err == nil:
		qty, err = trading.NormalizeQty(qty, rule.MinQuantity, rule.QuantityStep, rule.QuantityPrecision)
		if err != nil {
			return types.Order{}, err
		}
		pricePrecision = rule.PricePrecision
		if limitPrice != nil {
			p, err := trading.NormalizePrice(*limitPrice, rule.MinPrice, rule.PriceTick, rule.PricePrecision)
			if err != nil {
				return types.Order{}, err
			}
			limitPrice = &p
		}
	case errors.Is(err, rules.ErrNotFound):
		// No descriptor for this venue/symbol: pass the raw values through.
	default:
		return types.Order{}, err
	}

	orderType := types.OrderMarket
	priceStr := ""
	if limitPrice != nil {
		orderType = types.OrderLimit
		priceStr = trading.FormatPrice(*limitPrice, pricePrecision)
	}
	order := types.Order{
		UniqueID:   fmt.Sprintf("%s_%s", c.req.ExecID, uuid.NewString()[:8]),
		Symbol:     symbol,
		Direction:  dir,
		Type:       orderType,
		Qty:        qty,
		LimitPrice: priceStr,
		Status:     types.OrderStatusNew,
	}
	op := types.OrderOp{
		OpType: types.OpCreate,
		Order: types.OrderOpPayload{
			UniqueID:    order.UniqueID,
			Symbol:      order.Symbol,
			Direction:   order.Direction,
			OrderType:   order.Type,
			Qty:         order.Qty,
			LimitPrice:  order.LimitPrice,
			TimeInForce: types.TimeInForceGTC,
		},
	}
	c.mu.Lock()
	c.ops = append(c.ops, op)
	c.mu.Unlock()
	return order, nil
}

// Cancel emits a withdraw op only when orderID matches an incomplete order.
func (c *execContext) Cancel(orderID string) bool {
	found := false
	for _, o := range c.req.IncompleteOrders {
		if o.OrderID == orderID || o.UniqueID == orderID {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	c.mu.Lock()
	c.ops = append(c.ops, types.OrderOp{
		OpType: types.OpWithdraw,
		Order:  types.OrderOpPayload{OrderID: orderID},
	})
	c.mu.Unlock()
	return true
}

// Modify emits a modify op for an incomplete order. Returns false when the
// order id is unknown.
func (c *execContext) Modify(orderID string, qty float64, limitPrice *float64) (bool, error) {
	var target *types.Order
	for i, o := range c.req.IncompleteOrders {
		if o.OrderID == orderID || o.UniqueID == orderID {
			target = &c.req.IncompleteOrders[i]
			break
		}
	}
	if target == nil {
		return false, nil
	}
	if qty <= 0 {
		return false, fmt.Errorf("modify qty %v must be positive", qty)
	}
	priceStr := ""
	if limitPrice != nil {
		rule, err := c.rulesSvc.TradingRule(c.req.Exchange, target.Symbol)
		precision := -1
		if err == nil {
			p, perr := trading.NormalizePrice(*limitPrice, rule.MinPrice, rule.PriceTick, rule.PricePrecision)
			if perr != nil {
				return false, perr
			}
			limitPrice = &p
			precision = rule.PricePrecision
		} else if !errors.Is(err, rules.ErrNotFound) {
			return false, err
		}
		priceStr = trading.FormatPrice(*limitPrice, precision)
	}
	c.mu.Lock()
	c.ops = append(c.ops, types.OrderOp{
		OpType: types.OpModify,
		Order: types.OrderOpPayload{
			OrderID:    orderID,
			Symbol:     target.Symbol,
			Qty:        qty,
			LimitPrice: priceStr,
		},
	})
	c.mu.Unlock()
	return true, nil
}

func (c *execContext) RunDaily(fn strategy.CallbackFunc, tag phase.Phase, referenceSymbol string) {
	if !c.inInit {
		logger.Warnf("[exec %s] RunDaily called outside Init, ignored", c.req.ExecID)
		return
	}
	c.sched.Register(fn, tag, referenceSymbol)
}

func (c *execContext) Logf(format string, v ...any) {
	logger.Infof("[exec %s] %s", c.req.ExecID, fmt.Sprintf(format, v...))
}

// Ops returns the operations collected so far, in emission order.
func (c *execContext) Ops() []types.OrderOp {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.OrderOp, len(c.ops))
	copy(out, c.ops)
	return out
}
