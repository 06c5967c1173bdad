// Package types defines the wire-level data model shared by the execution
// engine, the transport layer, and strategy implementations.
package types

// TriggerType identifies the event class that caused one Exec invocation.
type TriggerType int

const (
	TriggerInvalid     TriggerType = 0
	TriggerMarketData  TriggerType = 1
	TriggerRiskManage  TriggerType = 2
	TriggerOrderStatus TriggerType = 3
)

func (t TriggerType) String() string {
	switch t {
	case TriggerMarketData:
		return "MARKET_DATA"
	case TriggerRiskManage:
		return "RISK_MANAGE"
	case TriggerOrderStatus:
		return "ORDER_STATUS"
	default:
		return "INVALID"
	}
}

// ExecStatus is the tri-state outcome of one execution.
type ExecStatus int

const (
	StatusSuccess        ExecStatus = 0
	StatusPartialSuccess ExecStatus = 1
	StatusFailed         ExecStatus = 2
)

func (s ExecStatus) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusPartialSuccess:
		return "PARTIAL_SUCCESS"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// HealthStatus is the service-level health tri-state.
type HealthStatus int

const (
	Healthy   HealthStatus = 0
	Degraded  HealthStatus = 1
	Unhealthy HealthStatus = 2
)

func (h HealthStatus) String() string {
	switch h {
	case Healthy:
		return "HEALTHY"
	case Degraded:
		return "DEGRADED"
	default:
		return "UNHEALTHY"
	}
}

// RiskEvent carries the detail payload of a risk-manage trigger.
type RiskEvent struct {
	RiskEventType int    `json:"risk_event_type"`
	Remark        string `json:"remark"`
}
