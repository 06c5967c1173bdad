// Package scope tracks the live binding of one in-flight execution to its
// (account, strategy) pair and guarantees the binding is cleared on every
// exit path.
package scope

import (
	"errors"
	"sync"
	"time"

	"stratos/internal/market"
	"stratos/internal/strategy"
	"stratos/internal/types"
)

// ErrScopeConflict means a scope is already open for the pair. Gateway
// serialization makes this unreachable in practice; the check stays as an
// invariant guard.
var ErrScopeConflict = errors.New("scope: already open for pair")

// Scope binds one ExecRequest, its data adapter, and the pair's persistent
// strategy state for the duration of one invocation.
type Scope struct {
	Pair  string
	Req   *types.ExecRequest
	Data  *market.Adapter
	State *strategy.State

	openedAt time.Time
	mgr      *Manager

	mu     sync.Mutex
	closed bool
}

// Close clears the pair binding. Idempotent; safe to call from both the
// worker's deferred teardown and the gateway's timeout path.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.mgr.release(s)
}

// Manager enforces the single-open-scope-per-pair invariant.
type Manager struct {
	mu   sync.Mutex
	open map[string]*Scope
}

func NewManager() *Manager {
	return &Manager{open: make(map[string]*Scope)}
}

// Open creates the scope for pair, failing with ErrScopeConflict when one is
// already open.
func (m *Manager) Open(pair string, req *types.ExecRequest, data *market.Adapter, state *strategy.State) (*Scope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.open[pair]; exists {
		return nil, ErrScopeConflict
	}
	s := &Scope{
		Pair:     pair,
		Req:      req,
		Data:     data,
		State:    state,
		openedAt: time.Now(),
		mgr:      m,
	}
	m.open[pair] = s
	return s, nil
}

// IsOpen reports whether a scope is currently bound for pair.
func (m *Manager) IsOpen(pair string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.open[pair]
	return ok
}

// release removes the binding, but only if s is still the registered scope:
// a stale scope closed after a forced teardown must not clear its successor.
func (m *Manager) release(s *Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.open[s.Pair]; ok && cur == s {
		delete(m.open, s.Pair)
	}
}
