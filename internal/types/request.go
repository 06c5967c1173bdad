package types

import "encoding/json"

// ExecRequest is one trigger bundled with every snapshot the strategy may
// consult. It is immutable once accepted; the engine never mutates it.
type ExecRequest struct {
	// MaxTimeout bounds the strategy call, in seconds. Must be > 0.
	MaxTimeout float64 `json:"max_timeout"`

	TriggerType   TriggerType     `json:"trigger_type"`
	TriggerDetail json.RawMessage `json:"trigger_detail,omitempty"`

	MarketDataContext []MarketDataContext `json:"market_data_context,omitempty"`
	Account           Account             `json:"account"`
	IncompleteOrders  []Order             `json:"incomplete_orders,omitempty"`
	CompletedOrders   []Order             `json:"completed_orders,omitempty"`

	// Exchange is the venue identifier, used as the rules-lookup key component.
	Exchange string `json:"exchange"`

	// ExecID is the caller-supplied idempotency key.
	ExecID string `json:"exec_id"`

	// StrategyID selects the registered strategy instance. May be empty when
	// exactly one instance is registered.
	StrategyID string `json:"strategy_id,omitempty"`

	// StrategyParam is passed through to the strategy unmodified.
	StrategyParam json.RawMessage `json:"strategy_param,omitempty"`
}

// ExecResponse is the outcome of one accepted request. ErrorMessage is set
// iff Status == StatusFailed.
type ExecResponse struct {
	OrderOpEvent []OrderOp  `json:"order_op_event"`
	Status       ExecStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Warnings     []string   `json:"warnings,omitempty"`
}
