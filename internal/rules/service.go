package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"stratos/internal/logger"
)

// EnvConfigDir overrides the descriptor search path when set.
const EnvConfigDir = "STRATOS_CONFIG_DIR"

type kind string

const (
	kindTrading    kind = "trading_rules"
	kindCommission kind = "commission_rates"
)

type venueFile struct {
	path       string
	modTime    time.Time
	size       int64
	trading    map[string]TradingRule
	commission map[string]CommissionRate
}

// Service resolves descriptors through a three-tier search path (explicit
// override, project-local config/, user home fallback; first match wins) and
// caches parsed files per (kind, venue). A cached entry is revalidated lazily
// against the descriptor's modification marker on each lookup; cold loads for
// the same key coalesce to a single parse.
type Service struct {
	dirs []string

	mu    sync.RWMutex
	cache map[string]*venueFile
	group singleflight.Group

	// ParseHook, when set, observes every descriptor parse. Used by tests to
	// assert cache behavior.
	ParseHook func(path string)
}

// NewService builds a lookup service. An explicit non-empty override dir takes
// precedence over the environment override.
func NewService(override string) *Service {
	return &Service{
		dirs:  searchDirs(override),
		cache: make(map[string]*venueFile),
	}
}

func searchDirs(override string) []string {
	var dirs []string
	if override != "" {
		dirs = append(dirs, override)
	} else if env := os.Getenv(EnvConfigDir); env != "" {
		dirs = append(dirs, env)
	}
	dirs = append(dirs, "config")
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".stratos"))
	}
	return dirs
}

// Dirs exposes the resolved search path, in priority order.
func (s *Service) Dirs() []string {
	out := make([]string, len(s.dirs))
	copy(out, s.dirs)
	return out
}

// TradingRule returns the rule for (venue, symbol).
func (s *Service) TradingRule(venue, symbol string) (TradingRule, error) {
	vf, err := s.venueSnapshot(kindTrading, venue)
	if err != nil {
		return TradingRule{}, err
	}
	rule, ok := vf.trading[symbol]
	if !ok {
		return TradingRule{}, fmt.Errorf("trading rule %s/%s: %w", venue, symbol, ErrNotFound)
	}
	return rule, nil
}

// CommissionRate returns the maker/taker fee rates for (venue, symbol).
func (s *Service) CommissionRate(venue, symbol string) (CommissionRate, error) {
	vf, err := s.venueSnapshot(kindCommission, venue)
	if err != nil {
		return CommissionRate{}, err
	}
	rate, ok := vf.commission[symbol]
	if !ok {
		return CommissionRate{}, fmt.Errorf("commission rate %s/%s: %w", venue, symbol, ErrNotFound)
	}
	return rate, nil
}

// Probe reports whether at least one search dir exists. Feeds the health
// endpoint; a missing search path degrades but does not fail the service.
func (s *Service) Probe() bool {
	for _, dir := range s.dirs {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return true
		}
	}
	return false
}

func (s *Service) venueSnapshot(k kind, venue string) (*venueFile, error) {
	key := string(k) + ":" + venue

	s.mu.RLock()
	vf := s.cache[key]
	s.mu.RUnlock()
	if vf != nil && !s.stale(k, venue, vf) {
		return vf, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		s.mu.RLock()
		cur := s.cache[key]
		s.mu.RUnlock()
		if cur != nil && !s.stale(k, venue, cur) {
			return cur, nil
		}
		loaded, err := s.load(k, venue)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[key] = loaded
		s.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*venueFile), nil
}

// stale revalidates a cached entry against the filesystem: the resolved path
// may have moved to a higher-priority dir, or the file's mtime/size changed.
func (s *Service) stale(k kind, venue string, vf *venueFile) bool {
	path, fi, err := s.resolve(k, venue)
	if err != nil {
		return true
	}
	return path != vf.path || !fi.ModTime().Equal(vf.modTime) || fi.Size() != vf.size
}

func (s *Service) resolve(k kind, venue string) (string, os.FileInfo, error) {
	for _, dir := range s.dirs {
		path := filepath.Join(dir, string(k), venue+".json")
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path, fi, nil
		}
	}
	return "", nil, fmt.Errorf("%s for venue %q: %w", k, venue, ErrNotFound)
}

func (s *Service) load(k kind, venue string) (*venueFile, error) {
	path, fi, err := s.resolve(k, venue)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s (%s): %w", path, err, ErrNotFound)
	}
	if s.ParseHook != nil {
		s.ParseHook(path)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ErrMalformedDescriptor)
	}
	schema := tradingSchema
	if k == kindCommission {
		schema = commissionSchema
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ErrMalformedDescriptor)
	}

	vf := &venueFile{path: path, modTime: fi.ModTime(), size: fi.Size()}
	switch k {
	case kindTrading:
		var rules map[string]TradingRule
		if err := json.Unmarshal(raw, &rules); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", path, err, ErrMalformedDescriptor)
		}
		for sym, r := range rules {
			if r.MaxLeverage == 0 {
				r.MaxLeverage = 1.0
				rules[sym] = r
			}
		}
		vf.trading = rules
	case kindCommission:
		var rates map[string]CommissionRate
		if err := json.Unmarshal(raw, &rates); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", path, err, ErrMalformedDescriptor)
		}
		vf.commission = rates
	}
	logger.Debugf("rules: loaded %s (%d entries)", path, len(vf.trading)+len(vf.commission))
	return vf, nil
}
