// Package dedup stores (exec_id → response) records so repeated delivery of
// the same execution id returns the previously computed response without
// re-invoking strategy logic. Retention is bounded by TTL and entry count.
package dedup

import (
	"context"
	"time"

	"stratos/internal/types"
)

// Stats describes one store's current occupancy.
type Stats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
}

// Store is the idempotency record backend. Implementations must support
// concurrent access without serializing unrelated keys behind one lock.
type Store interface {
	// Get returns the stored response for execID, or ok=false when the id is
	// unknown or its record expired.
	Get(ctx context.Context, execID string) (*types.ExecResponse, bool, error)
	// Put records the response computed for execID.
	Put(ctx context.Context, execID string, resp *types.ExecResponse) error
	Stats(ctx context.Context) (Stats, error)
	// Ping feeds the health endpoint.
	Ping(ctx context.Context) error
	Close() error
}

// Options bound record retention.
type Options struct {
	TTL        time.Duration
	MaxEntries int
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = 100_000
	}
	return o
}
