package strategy

import "sync"

// State is the per-identity persistent key-value store (the strategy's global
// state). Pair-level serialization means calls are not concurrent in the
// normal path, but an abandoned timed-out call may still be running when the
// next invocation starts, so access is synchronized.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewState() *State {
	return &State{values: make(map[string]any)}
}

func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *State) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

func (s *State) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

// Int returns the value as int, or fallback when absent or mistyped.
func (s *State) Int(key string, fallback int) int {
	if v, ok := s.Get(key); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return fallback
}

// Float returns the value as float64, or fallback when absent or mistyped.
func (s *State) Float(key string, fallback float64) float64 {
	if v, ok := s.Get(key); ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return fallback
}
