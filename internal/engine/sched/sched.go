// Package sched matches registered periodic callbacks against the current
// trigger's market phase and fires them in registration order.
package sched

import (
	"fmt"
	"sync"

	"stratos/internal/pkg/phase"
	"stratos/internal/strategy"
)

type registration struct {
	seq       int
	fn        strategy.CallbackFunc
	tag       phase.Phase
	refSymbol string
}

// Scheduler holds the periodic-callback registrations of one strategy
// identity. Registrations happen during Init and are retained for the
// identity's lifetime.
type Scheduler struct {
	mu   sync.Mutex
	regs []registration
}

func New() *Scheduler { return &Scheduler{} }

// Register appends a callback for a phase. Order of registration is the
// order of dispatch.
func (s *Scheduler) Register(fn strategy.CallbackFunc, tag phase.Phase, refSymbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs = append(s.regs, registration{seq: len(s.regs), fn: fn, tag: tag, refSymbol: refSymbol})
}

// Len returns the number of registrations.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regs)
}

// Dispatch fires every callback whose phase matches the trigger timestamp,
// computed against each callback's own reference instrument. A failing
// callback aborts dispatch of the remaining ones; the failure comes back as
// a warning so the trigger's main entry point still runs.
func (s *Scheduler) Dispatch(ctx strategy.Context, tsMillis int64, policy *phase.Policy) (warnings []string) {
	s.mu.Lock()
	regs := make([]registration, len(s.regs))
	copy(regs, s.regs)
	s.mu.Unlock()

	for _, reg := range regs {
		current := policy.At(tsMillis, reg.refSymbol)
		if current != reg.tag {
			continue
		}
		if err := reg.fn(ctx); err != nil {
			warnings = append(warnings,
				fmt.Sprintf("periodic callback #%d (%s, ref %s) failed: %v; remaining callbacks skipped",
					reg.seq, reg.tag, reg.refSymbol, err))
			return warnings
		}
	}
	return warnings
}
