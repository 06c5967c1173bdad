package strategy

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Factory builds a strategy implementation from its declared params.
type Factory func(params map[string]any) (Strategy, error)

var (
	typesMu   sync.RWMutex
	factories = make(map[string]Factory)
)

// RegisterType registers a strategy type factory. Called from init functions
// of strategy implementations.
func RegisterType(name string, f Factory) {
	typesMu.Lock()
	defer typesMu.Unlock()
	factories[name] = f
}

// NewByType instantiates a registered strategy type.
func NewByType(name string, params map[string]any) (Strategy, error) {
	typesMu.RLock()
	f, ok := factories[name]
	typesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown strategy type %q", name)
	}
	return f(params)
}

// RegisteredTypes lists known strategy types, sorted.
func RegisteredTypes() []string {
	typesMu.RLock()
	defer typesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Status of a declared strategy instance.
type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

// Instance is one declared strategy identity.
type Instance struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type"`
	Status Status         `yaml:"status"`
	Params map[string]any `yaml:"params"`
}

type registryFile struct {
	Strategies []Instance `yaml:"strategies"`
}

// Registry holds the declared strategy instances, keyed by id.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	instances map[string]Instance
}

// LoadRegistry parses the YAML instance registry. Instance ids must be
// unique and each type must already be registered.
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("strategy registry: %w", err)
	}
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("strategy registry %s: %w", path, err)
	}
	reg := &Registry{instances: make(map[string]Instance, len(file.Strategies))}
	for _, inst := range file.Strategies {
		inst.ID = strings.TrimSpace(inst.ID)
		if inst.ID == "" {
			return nil, fmt.Errorf("strategy registry %s: instance without id", path)
		}
		if _, dup := reg.instances[inst.ID]; dup {
			return nil, fmt.Errorf("strategy registry %s: duplicate id %q", path, inst.ID)
		}
		if inst.Status == "" {
			inst.Status = StatusActive
		}
		if inst.Status != StatusActive && inst.Status != StatusPaused {
			return nil, fmt.Errorf("strategy registry %s: instance %q has invalid status %q", path, inst.ID, inst.Status)
		}
		typesMu.RLock()
		_, known := factories[inst.Type]
		typesMu.RUnlock()
		if !known {
			return nil, fmt.Errorf("strategy registry %s: instance %q uses unknown type %q", path, inst.ID, inst.Type)
		}
		reg.instances[inst.ID] = inst
		reg.order = append(reg.order, inst.ID)
	}
	return reg, nil
}

// NewRegistry builds a registry from in-memory declarations (tests, embedded
// setups).
func NewRegistry(instances ...Instance) (*Registry, error) {
	reg := &Registry{instances: make(map[string]Instance, len(instances))}
	for _, inst := range instances {
		if inst.ID == "" {
			return nil, fmt.Errorf("strategy registry: instance without id")
		}
		if _, dup := reg.instances[inst.ID]; dup {
			return nil, fmt.Errorf("strategy registry: duplicate id %q", inst.ID)
		}
		if inst.Status == "" {
			inst.Status = StatusActive
		}
		reg.instances[inst.ID] = inst
		reg.order = append(reg.order, inst.ID)
	}
	return reg, nil
}

// Get returns the declared instance for id.
func (r *Registry) Get(id string) (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	return inst, ok
}

// Single returns the only declared instance, when exactly one exists. Keeps
// single-strategy deployments working without a strategy_id on every request.
func (r *Registry) Single() (Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) != 1 {
		return Instance{}, false
	}
	return r.instances[r.order[0]], true
}

// SetStatus flips an instance between active and paused. Returns false when
// the id is unknown.
func (r *Registry) SetStatus(id string, st Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok {
		return false
	}
	inst.Status = st
	r.instances[id] = inst
	return true
}

// All returns instances in declaration order.
func (r *Registry) All() []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Instance, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.instances[id])
	}
	return out
}
