package types

// Money is a currency-tagged decimal string amount.
type Money struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// Balance is a per-currency account balance.
type Balance struct {
	Currency string `json:"currency"`
	Free     string `json:"free"`
	Locked   string `json:"locked"`
}

// Position is one open position in the account snapshot.
type Position struct {
	Symbol        string        `json:"symbol"`
	Qty           float64       `json:"qty"`
	AvgPrice      string        `json:"avg_price,omitempty"`
	Direction     DirectionType `json:"direction_type,omitempty"`
	UnrealizedPnl string        `json:"unrealized_pnl,omitempty"`
}

// Account is the caller-supplied account snapshot for one execution.
type Account struct {
	AccountID       string     `json:"account_id"`
	AccountType     int        `json:"account_type"`
	TotalNetValue   *Money     `json:"total_net_value,omitempty"`
	AvailableMargin *Money     `json:"available_margin,omitempty"`
	MarginRatio     float64    `json:"margin_ratio"`
	RiskLevel       float64    `json:"risk_level"`
	Leverage        float64    `json:"leverage"`
	Balances        []Balance  `json:"balances,omitempty"`
	Positions       []Position `json:"positions,omitempty"`
}
