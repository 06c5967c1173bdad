package types

// DirectionType follows the wire encoding: 1 buy, 2 sell.
type DirectionType int

const (
	DirectionBuy  DirectionType = 1
	DirectionSell DirectionType = 2
)

// OrderType: 1 market, 2 limit.
type OrderType int

const (
	OrderMarket OrderType = 1
	OrderLimit  OrderType = 2
)

// OrderStatusType mirrors the order lifecycle states reported by callers.
type OrderStatusType int

const (
	OrderStatusNew             OrderStatusType = 1
	OrderStatusPartiallyFilled OrderStatusType = 2
	OrderStatusFilled          OrderStatusType = 3
	OrderStatusCanceled        OrderStatusType = 4
	OrderStatusRejected        OrderStatusType = 5
)

// TimeInForceGTC is the only policy the engine emits for created orders.
const TimeInForceGTC = 2

// Order is an order snapshot supplied by the caller, or an order the strategy
// just created inside the current execution.
type Order struct {
	OrderID      string          `json:"order_id"`
	UniqueID     string          `json:"unique_id"`
	Symbol       string          `json:"symbol"`
	Direction    DirectionType   `json:"direction_type"`
	Type         OrderType       `json:"order_type"`
	Qty          float64         `json:"qty"`
	LimitPrice   string          `json:"limit_price,omitempty"`
	Status       OrderStatusType `json:"status"`
	ExecutedSize float64         `json:"executed_size"`
	AvgFillPrice string          `json:"avg_fill_price,omitempty"`
	Commission   string          `json:"commission,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
}

// OrderStatusDetail is the trigger detail for order-status triggers.
type OrderStatusDetail struct {
	OrderID  string `json:"order_id"`
	UniqueID string `json:"unique_id"`
}

// OrderOpType: 1 create, 2 withdraw, 3 modify.
type OrderOpType int

const (
	OpCreate   OrderOpType = 1
	OpWithdraw OrderOpType = 2
	OpModify   OrderOpType = 3
)

// OrderOpPayload is the order slice of one operation. Only the fields relevant
// to the op type are populated (a withdraw carries just the order id).
type OrderOpPayload struct {
	UniqueID    string        `json:"unique_id,omitempty"`
	OrderID     string        `json:"order_id,omitempty"`
	Symbol      string        `json:"symbol,omitempty"`
	Direction   DirectionType `json:"direction_type,omitempty"`
	OrderType   OrderType     `json:"order_type,omitempty"`
	Qty         float64       `json:"qty,omitempty"`
	LimitPrice  string        `json:"limit_price,omitempty"`
	TimeInForce int           `json:"time_in_force,omitempty"`
}

// OrderOp is one entry of a response's order_op_event sequence.
type OrderOp struct {
	OpType OrderOpType    `json:"order_op_type"`
	Order  OrderOpPayload `json:"order"`
}
