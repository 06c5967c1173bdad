// Package engine accepts execution triggers and drives strategy code against
// them: idempotent delivery, per-pair serialization, bounded call time, and
// the tri-state response contract.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"stratos/internal/config"
	"stratos/internal/dedup"
	"stratos/internal/engine/sched"
	"stratos/internal/engine/scope"
	"stratos/internal/logger"
	"stratos/internal/market"
	"stratos/internal/pkg/phase"
	"stratos/internal/rules"
	"stratos/internal/strategy"
	"stratos/internal/types"
)

// pairRuntime is the long-lived state of one (account, strategy) pair: the
// strategy object, its persistent state, and its periodic-callback schedule.
// Built lazily on the pair's first trigger and kept for the process lifetime.
type pairRuntime struct {
	impl  strategy.Strategy
	state *strategy.State
	sched *sched.Scheduler

	initMu      sync.Mutex
	initialized bool
}

// Gateway is the single entry point for execution requests.
type Gateway struct {
	cfg      config.ExecConfig
	registry *strategy.Registry
	rules    *rules.Service
	dedup    dedup.Store
	scopes   *scope.Manager

	mu       sync.Mutex
	tails    map[string]chan struct{}
	runtimes map[string]*pairRuntime
}

func NewGateway(cfg config.ExecConfig, reg *strategy.Registry, rulesSvc *rules.Service, store dedup.Store) *Gateway {
	return &Gateway{
		cfg:      cfg,
		registry: reg,
		rules:    rulesSvc,
		dedup:    store,
		scopes:   scope.NewManager(),
		tails:    make(map[string]chan struct{}),
		runtimes: make(map[string]*pairRuntime),
	}
}

// Scopes exposes the scope manager, for health reporting and tests.
func (g *Gateway) Scopes() *scope.Manager { return g.scopes }

// Exec runs one trigger to completion and returns its response. Requests for
// the same (account, strategy) pair are processed strictly one at a time in
// arrival order; a repeated exec_id replays the stored response without
// touching strategy code.
func (g *Gateway) Exec(ctx context.Context, req *types.ExecRequest) (*types.ExecResponse, error) {
	if err := g.validate(req); err != nil {
		return nil, err
	}
	inst, err := g.resolveInstance(req)
	if err != nil {
		return nil, err
	}
	pair := req.Account.AccountID + "|" + inst.ID

	release := g.acquire(pair)
	defer release()

	// Dedup check happens inside the pair's slot: a duplicate racing its
	// original waits here and then finds the stored response.
	if stored, ok, derr := g.dedup.Get(ctx, req.ExecID); derr != nil {
		logger.Warnf("exec %s: dedup lookup failed, treating as first delivery: %v", req.ExecID, derr)
	} else if ok {
		logger.Infof("exec %s: duplicate delivery, replaying stored response", req.ExecID)
		return stored, nil
	}

	rt, err := g.runtime(pair, inst)
	if err != nil {
		return nil, err
	}

	resp := g.run(req, pair, rt)
	if derr := g.dedup.Put(ctx, req.ExecID, resp); derr != nil {
		logger.Warnf("exec %s: dedup store failed: %v", req.ExecID, derr)
	}
	return resp, nil
}

func (g *Gateway) validate(req *types.ExecRequest) error {
	switch {
	case req == nil:
		return fmt.Errorf("%w: empty request", ErrInvalidRequest)
	case req.ExecID == "":
		return fmt.Errorf("%w: exec_id is required", ErrInvalidRequest)
	case req.TriggerType < types.TriggerMarketData || req.TriggerType > types.TriggerOrderStatus:
		return fmt.Errorf("%w: unknown trigger_type %d", ErrInvalidRequest, req.TriggerType)
	case req.Exchange == "":
		return fmt.Errorf("%w: exchange is required", ErrInvalidRequest)
	case req.Account.AccountID == "":
		return fmt.Errorf("%w: account.account_id is required", ErrInvalidRequest)
	case req.MaxTimeout <= 0:
		return fmt.Errorf("%w: max_timeout must be positive", ErrInvalidRequest)
	}
	return nil
}

func (g *Gateway) resolveInstance(req *types.ExecRequest) (strategy.Instance, error) {
	if req.StrategyID != "" {
		inst, ok := g.registry.Get(req.StrategyID)
		if !ok {
			return strategy.Instance{}, fmt.Errorf("%w: unknown strategy_id %q", ErrInvalidRequest, req.StrategyID)
		}
		if inst.Status != strategy.StatusActive {
			return strategy.Instance{}, fmt.Errorf("%w: strategy %q is %s", ErrInvalidRequest, inst.ID, inst.Status)
		}
		return inst, nil
	}
	inst, ok := g.registry.Single()
	if !ok {
		return strategy.Instance{}, fmt.Errorf("%w: strategy_id is required when multiple instances are registered", ErrInvalidRequest)
	}
	if inst.Status != strategy.StatusActive {
		return strategy.Instance{}, fmt.Errorf("%w: strategy %q is %s", ErrInvalidRequest, inst.ID, inst.Status)
	}
	return inst, nil
}

// acquire takes the pair's serialization slot, queueing FIFO behind any
// in-flight holder. The returned release must be called exactly once.
func (g *Gateway) acquire(pair string) (release func()) {
	mine := make(chan struct{})
	g.mu.Lock()
	prev := g.tails[pair]
	g.tails[pair] = mine
	g.mu.Unlock()
	if prev != nil {
		<-prev
	}
	return func() {
		g.mu.Lock()
		if g.tails[pair] == mine {
			delete(g.tails, pair)
		}
		g.mu.Unlock()
		close(mine)
	}
}

func (g *Gateway) runtime(pair string, inst strategy.Instance) (*pairRuntime, error) {
	g.mu.Lock()
	rt, ok := g.runtimes[pair]
	g.mu.Unlock()
	if ok {
		return rt, nil
	}
	impl, err := strategy.NewByType(inst.Type, inst.Params)
	if err != nil {
		return nil, fmt.Errorf("build strategy %q: %w", inst.ID, err)
	}
	rt = &pairRuntime{impl: impl, state: strategy.NewState(), sched: sched.New()}
	g.mu.Lock()
	if cur, ok := g.runtimes[pair]; ok {
		rt = cur
	} else {
		g.runtimes[pair] = rt
	}
	g.mu.Unlock()
	return rt, nil
}

// run opens the pair's scope, invokes the strategy on its own goroutine, and
// enforces the request's time budget. On timeout the call is abandoned: we
// wait out a short grace period for it to wind down, then force the scope
// shut so the pair is usable again. An abandoned call writes into its own
// context's operation buffer and can never surface in a later response.
func (g *Gateway) run(req *types.ExecRequest, pair string, rt *pairRuntime) *types.ExecResponse {
	data := market.NewAdapter(req)
	sc, err := g.scopes.Open(pair, req, data, rt.state)
	if err != nil {
		return &types.ExecResponse{Status: types.StatusFailed, ErrorMessage: err.Error()}
	}

	// The scope must be unbound before the response is signaled: the caller
	// releases the pair slot on receive, and the next trigger for this pair
	// re-opens immediately.
	done := make(chan *types.ExecResponse, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("exec %s: strategy panic: %v", req.ExecID, r)
				sc.Close()
				done <- &types.ExecResponse{Status: types.StatusFailed, ErrorMessage: fmt.Sprintf("strategy panic: %v", r)}
			}
		}()
		resp := g.invoke(req, rt, data)
		sc.Close()
		done <- resp
	}()

	budget := g.timeout(req)
	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case resp := <-done:
		return resp
	case <-timer.C:
	}

	logger.Warnf("exec %s: strategy call exceeded %s budget, waiting %s grace", req.ExecID, budget, g.cfg.GracePeriod)
	grace := time.NewTimer(g.cfg.GracePeriod)
	defer grace.Stop()
	select {
	case resp := <-done:
		// Finished while we were deciding to give up; the result is real, use it.
		return resp
	case <-grace.C:
		sc.Close()
		logger.Errorf("exec %s: strategy call abandoned, pair %s forcibly unbound", req.ExecID, pair)
	}
	return &types.ExecResponse{
		Status:       types.StatusFailed,
		ErrorMessage: fmt.Sprintf("strategy call exceeded max_timeout of %gs", budget.Seconds()),
	}
}

// timeout applies the service-level cap to the request's budget.
func (g *Gateway) timeout(req *types.ExecRequest) time.Duration {
	secs := req.MaxTimeout
	if g.cfg.MaxTimeout > 0 && secs > g.cfg.MaxTimeout {
		secs = g.cfg.MaxTimeout
	}
	return time.Duration(secs * float64(time.Second))
}

func (g *Gateway) invoke(req *types.ExecRequest, rt *pairRuntime, data *market.Adapter) *types.ExecResponse {
	policy := phase.FromParams(req.StrategyParam)
	ts := triggerTimestamp(req, data)
	ectx := newExecContext(req, data, rt.state, g.rules, rt.sched, ts)

	rt.initMu.Lock()
	if !rt.initialized {
		ectx.inInit = true
		err := rt.impl.Init(ectx)
		ectx.inInit = false
		if err != nil {
			rt.initMu.Unlock()
			return &types.ExecResponse{Status: types.StatusFailed, ErrorMessage: fmt.Sprintf("strategy init failed: %v", err)}
		}
		rt.initialized = true
	}
	rt.initMu.Unlock()

	warnings := rt.sched.Dispatch(ectx, ts, policy)

	if sym := primarySymbol(req); sym != "" && policy.At(ts, sym) == phase.BeforeOpen {
		if err := rt.impl.BeforeTrading(ectx); err != nil {
			warnings = append(warnings, fmt.Sprintf("before-trading hook failed: %v", err))
		}
	}

	var entryErr error
	switch req.TriggerType {
	case types.TriggerMarketData:
		bar, err := data.PrimaryBar()
		if err != nil {
			warnings = append(warnings, "market-data trigger carried no bars; OnBar skipped")
		} else {
			entryErr = rt.impl.OnBar(ectx, bar)
		}
	case types.TriggerOrderStatus:
		entryErr = rt.impl.OnOrder(ectx, matchOrder(req))
	case types.TriggerRiskManage:
		var evt types.RiskEvent
		if len(req.TriggerDetail) > 0 {
			if err := json.Unmarshal(req.TriggerDetail, &evt); err != nil {
				warnings = append(warnings, fmt.Sprintf("malformed risk trigger detail: %v", err))
			}
		}
		entryErr = rt.impl.OnRiskEvent(ectx, evt)
	}

	if entryErr != nil {
		return &types.ExecResponse{Status: types.StatusFailed, ErrorMessage: entryErr.Error()}
	}
	resp := &types.ExecResponse{OrderOpEvent: ectx.Ops(), Warnings: warnings}
	if len(warnings) > 0 {
		resp.Status = types.StatusPartialSuccess
	} else {
		resp.Status = types.StatusSuccess
	}
	return resp
}

// triggerTimestamp picks the instant the trigger describes: the detail's own
// timestamp for market data, else the latest bar's close time, else now.
func triggerTimestamp(req *types.ExecRequest, data *market.Adapter) int64 {
	if req.TriggerType == types.TriggerMarketData && len(req.TriggerDetail) > 0 {
		var d types.MarketDataDetail
		if err := json.Unmarshal(req.TriggerDetail, &d); err == nil && d.Timestamp > 0 {
			return d.Timestamp
		}
	}
	if bar, err := data.PrimaryBar(); err == nil && bar.CloseTime > 0 {
		return bar.CloseTime
	}
	return time.Now().UnixMilli()
}

func primarySymbol(req *types.ExecRequest) string {
	if len(req.MarketDataContext) > 0 {
		return req.MarketDataContext[0].Symbol
	}
	var d types.MarketDataDetail
	if len(req.TriggerDetail) > 0 && json.Unmarshal(req.TriggerDetail, &d) == nil {
		return d.Symbol
	}
	return ""
}

// matchOrder resolves the order an order-status trigger refers to, preferring
// the incomplete set. An unmatched id comes back as a bare order carrying
// just the detail's identifiers.
func matchOrder(req *types.ExecRequest) types.Order {
	var d types.OrderStatusDetail
	if len(req.TriggerDetail) > 0 {
		_ = json.Unmarshal(req.TriggerDetail, &d)
	}
	for _, o := range req.IncompleteOrders {
		if (d.OrderID != "" && o.OrderID == d.OrderID) || (d.UniqueID != "" && o.UniqueID == d.UniqueID) {
			return o
		}
	}
	for _, o := range req.CompletedOrders {
		if (d.OrderID != "" && o.OrderID == d.OrderID) || (d.UniqueID != "" && o.UniqueID == d.UniqueID) {
			return o
		}
	}
	if d.OrderID == "" && d.UniqueID == "" && len(req.IncompleteOrders) > 0 {
		return req.IncompleteOrders[0]
	}
	return types.Order{OrderID: d.OrderID, UniqueID: d.UniqueID}
}

// Health aggregates backend health for the liveness endpoint.
func (g *Gateway) Health(ctx context.Context) (types.HealthStatus, map[string]string) {
	details := map[string]string{}
	status := types.Healthy

	if err := g.dedup.Ping(ctx); err != nil {
		details["dedup"] = err.Error()
		status = types.Unhealthy
	} else {
		details["dedup"] = "ok"
	}

	if !g.rules.Probe() {
		details["rules"] = "no descriptor directory reachable"
		if status == types.Healthy {
			status = types.Degraded
		}
	} else {
		details["rules"] = "ok"
	}

	if len(g.registry.All()) == 0 {
		details["strategies"] = "no instances registered"
		if status == types.Healthy {
			status = types.Degraded
		}
	} else {
		details["strategies"] = fmt.Sprintf("%d registered", len(g.registry.All()))
	}
	return status, details
}
