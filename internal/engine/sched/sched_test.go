package sched

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratos/internal/pkg/phase"
	"stratos/internal/strategy"
)

func cryptoOpenMillis() int64 {
	return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC).UnixMilli()
}

func TestDispatchOrderAndMatching(t *testing.T) {
	s := New()
	var fired []string
	s.Register(func(strategy.Context) error { fired = append(fired, "first"); return nil }, phase.Open, "BTCUSDT")
	s.Register(func(strategy.Context) error { fired = append(fired, "skipped"); return nil }, phase.BeforeOpen, "BTCUSDT")
	s.Register(func(strategy.Context) error { fired = append(fired, "second"); return nil }, phase.Open, "BTCUSDT")
	s.Register(func(strategy.Context) error { fired = append(fired, "third"); return nil }, phase.Open, "BTCUSDT")
	require.Equal(t, 4, s.Len())

	warnings := s.Dispatch(nil, cryptoOpenMillis(), phase.DefaultPolicy())
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"first", "second", "third"}, fired,
		"matching callbacks fire in registration order; non-matching phases are skipped")
}

func TestDispatchAbortsAfterFailure(t *testing.T) {
	s := New()
	var fired []string
	s.Register(func(strategy.Context) error { fired = append(fired, "a"); return nil }, phase.Open, "BTCUSDT")
	s.Register(func(strategy.Context) error { return errors.New("boom") }, phase.Open, "BTCUSDT")
	s.Register(func(strategy.Context) error { fired = append(fired, "c"); return nil }, phase.Open, "BTCUSDT")

	warnings := s.Dispatch(nil, cryptoOpenMillis(), phase.DefaultPolicy())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "boom")
	assert.Equal(t, []string{"a"}, fired, "callbacks after the failing one must not run")
}

func TestDispatchPerCallbackReference(t *testing.T) {
	s := New()
	var fired []string
	// Crypto is open at noon UTC; A-shares are long closed by then.
	s.Register(func(strategy.Context) error { fired = append(fired, "crypto"); return nil }, phase.Open, "BTCUSDT")
	s.Register(func(strategy.Context) error { fired = append(fired, "ashare"); return nil }, phase.Open, "600519.XSHG")

	s.Dispatch(nil, cryptoOpenMillis(), phase.DefaultPolicy())
	assert.Equal(t, []string{"crypto"}, fired)
}
