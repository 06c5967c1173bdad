package phase

import (
	"github.com/tidwall/gjson"

	"stratos/internal/logger"
)

// FromParams builds a policy from the defaults plus any overrides embedded in
// an opaque strategy_param blob. Expected shape:
//
//	{"phase_policy": {"A_STOCK": {"timezone": "Asia/Shanghai",
//	    "before_open": "09:25", "open": "09:30",
//	    "close": "15:00", "after_close": "15:05"}}}
//
// Malformed overrides are logged and skipped; the defaults stay in effect.
func FromParams(param []byte) *Policy {
	p := DefaultPolicy()
	if len(param) == 0 || !gjson.ValidBytes(param) {
		return p
	}
	overrides := gjson.GetBytes(param, "phase_policy")
	if !overrides.Exists() || !overrides.IsObject() {
		return p
	}
	overrides.ForEach(func(key, value gjson.Result) bool {
		mt := MarketType(key.String())
		base, ok := p.sessions[mt]
		if !ok {
			logger.Warnf("phase: unknown market type %q in phase_policy, skipped", key.String())
			return true
		}
		if tz := value.Get("timezone"); tz.Exists() {
			base.Timezone = tz.String()
		}
		fields := []struct {
			name string
			dst  *Boundary
		}{
			{"before_open", &base.BeforeOpen},
			{"open", &base.Open},
			{"close", &base.Close},
			{"after_close", &base.AfterClose},
		}
		for _, f := range fields {
			raw := value.Get(f.name)
			if !raw.Exists() {
				continue
			}
			b, err := ParseBoundary(raw.String())
			if err != nil {
				logger.Warnf("phase: %s.%s: %v, keeping default", key.String(), f.name, err)
				continue
			}
			*f.dst = b
		}
		p.sessions[mt] = base
		return true
	})
	return p
}
