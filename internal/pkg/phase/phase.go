// Package phase derives market-session phases from trigger timestamps. The
// session boundaries are per market type and can be overridden through
// strategy params, so callback timing is never hardcoded in the engine.
package phase

import (
	"fmt"
	"strings"
	"time"
)

// Phase is a named market-session bucket.
type Phase string

const (
	BeforeOpen Phase = "before_open"
	Open       Phase = "open"
	AfterClose Phase = "after_close"
	Closed     Phase = "closed"
)

// MarketType classifies the venue a symbol trades on.
type MarketType string

const (
	MarketAStock  MarketType = "A_STOCK"
	MarketUSStock MarketType = "US_STOCK"
	MarketHKStock MarketType = "HK_STOCK"
	MarketCrypto  MarketType = "CRYPTO"
	MarketUnknown MarketType = "UNKNOWN"
)

// DetectMarket infers the market type from the symbol's exchange suffix.
// Plain trading-pair symbols (BTCUSDT) are treated as crypto.
func DetectMarket(symbol string) MarketType {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return MarketUnknown
	}
	if idx := strings.LastIndex(symbol, "."); idx >= 0 {
		switch strings.ToUpper(symbol[idx+1:]) {
		case "XSHE", "XSHG":
			return MarketAStock
		case "US":
			return MarketUSStock
		case "HK":
			return MarketHKStock
		}
	}
	return MarketCrypto
}

// Boundary is a wall-clock point within a session's local day.
type Boundary struct {
	Hour   int
	Minute int
}

func (b Boundary) minuteOfDay() int { return b.Hour*60 + b.Minute }

// ParseBoundary parses "HH:MM".
func ParseBoundary(s string) (Boundary, error) {
	var b Boundary
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &b.Hour, &b.Minute); err != nil {
		return Boundary{}, fmt.Errorf("invalid boundary %q: %w", s, err)
	}
	if b.Hour < 0 || b.Hour > 23 || b.Minute < 0 || b.Minute > 59 {
		return Boundary{}, fmt.Errorf("boundary %q out of range", s)
	}
	return b, nil
}

// Session describes one market's trading day in its local timezone.
type Session struct {
	Timezone   string
	BeforeOpen Boundary
	Open       Boundary
	Close      Boundary
	AfterClose Boundary
}

func defaultSessions() map[MarketType]Session {
	return map[MarketType]Session{
		MarketAStock: {
			Timezone:   "Asia/Shanghai",
			BeforeOpen: Boundary{9, 25},
			Open:       Boundary{9, 30},
			Close:      Boundary{15, 0},
			AfterClose: Boundary{15, 5},
		},
		MarketUSStock: {
			Timezone:   "America/New_York",
			BeforeOpen: Boundary{9, 25},
			Open:       Boundary{9, 30},
			Close:      Boundary{16, 0},
			AfterClose: Boundary{16, 5},
		},
		MarketHKStock: {
			Timezone:   "Asia/Hong_Kong",
			BeforeOpen: Boundary{9, 25},
			Open:       Boundary{9, 30},
			Close:      Boundary{16, 0},
			AfterClose: Boundary{16, 5},
		},
		MarketCrypto: {
			Timezone:   "UTC",
			BeforeOpen: Boundary{0, 0},
			Open:       Boundary{0, 0},
			Close:      Boundary{23, 59},
			AfterClose: Boundary{23, 59},
		},
	}
}

// Policy maps trigger timestamps to phases. Zero-value Policy is not usable;
// build one via DefaultPolicy or FromParams.
type Policy struct {
	sessions map[MarketType]Session
}

// DefaultPolicy returns the built-in session tables.
func DefaultPolicy() *Policy {
	return &Policy{sessions: defaultSessions()}
}

// WithSession overrides the session for one market type.
func (p *Policy) WithSession(mt MarketType, s Session) *Policy {
	p.sessions[mt] = s
	return p
}

// At buckets a millisecond timestamp into the session phase of the reference
// symbol's market. Timestamps before the before_open marker map to Closed.
func (p *Policy) At(tsMillis int64, symbol string) Phase {
	mt := DetectMarket(symbol)
	sess, ok := p.sessions[mt]
	if !ok {
		sess = p.sessions[MarketCrypto]
	}
	loc, err := time.LoadLocation(sess.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := time.UnixMilli(tsMillis).In(loc)
	minute := local.Hour()*60 + local.Minute()

	switch {
	case minute < sess.BeforeOpen.minuteOfDay():
		return Closed
	case minute < sess.Open.minuteOfDay():
		return BeforeOpen
	case minute < sess.Close.minuteOfDay():
		return Open
	default:
		return AfterClose
	}
}
