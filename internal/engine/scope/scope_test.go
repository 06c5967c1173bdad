package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratos/internal/market"
	"stratos/internal/strategy"
	"stratos/internal/types"
)

func openScope(t *testing.T, m *Manager, pair string) *Scope {
	t.Helper()
	req := &types.ExecRequest{ExecID: "e"}
	s, err := m.Open(pair, req, market.NewAdapter(req), strategy.NewState())
	require.NoError(t, err)
	return s
}

func TestOpenConflict(t *testing.T) {
	m := NewManager()
	s := openScope(t, m, "acct|strat")
	assert.True(t, m.IsOpen("acct|strat"))

	req := &types.ExecRequest{ExecID: "e2"}
	_, err := m.Open("acct|strat", req, market.NewAdapter(req), strategy.NewState())
	assert.ErrorIs(t, err, ErrScopeConflict)

	// A different pair is unaffected.
	openScope(t, m, "acct|other")
	assert.True(t, m.IsOpen("acct|other"))

	s.Close()
	assert.False(t, m.IsOpen("acct|strat"))
}

func TestCloseIdempotent(t *testing.T) {
	m := NewManager()
	s := openScope(t, m, "p")
	s.Close()
	s.Close()
	assert.False(t, m.IsOpen("p"))

	// Reopening after close works.
	openScope(t, m, "p")
	assert.True(t, m.IsOpen("p"))
}

func TestStaleCloseDoesNotReleaseSuccessor(t *testing.T) {
	m := NewManager()
	abandoned := openScope(t, m, "p")
	abandoned.Close()

	successor := openScope(t, m, "p")
	// A late second Close from the abandoned call must not unbind the
	// successor scope.
	abandoned.Close()
	assert.True(t, m.IsOpen("p"))

	successor.Close()
	assert.False(t, m.IsOpen("p"))
}
