package dedup

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"stratos/internal/types"
)

const numShards = 16

type memShard struct {
	mu    sync.RWMutex
	items map[string]memEntry
}

type memEntry struct {
	resp     types.ExecResponse
	storedAt time.Time
}

// MemoryStore is the default in-process backend: a sharded map with lazy TTL
// eviction and oldest-first overflow eviction per shard.
type MemoryStore struct {
	opts     Options
	perShard int
	shards   [numShards]*memShard
	nowFn    func() time.Time
}

func NewMemoryStore(opts Options) *MemoryStore {
	s := &MemoryStore{opts: opts.withDefaults(), nowFn: time.Now}
	s.perShard = s.opts.MaxEntries / numShards
	if s.perShard < 1 {
		s.perShard = 1
	}
	for i := range s.shards {
		s.shards[i] = &memShard{items: make(map[string]memEntry)}
	}
	return s
}

func (s *MemoryStore) shard(key string) *memShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%numShards]
}

func (s *MemoryStore) Get(_ context.Context, execID string) (*types.ExecResponse, bool, error) {
	sh := s.shard(execID)
	sh.mu.RLock()
	entry, ok := sh.items[execID]
	sh.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.nowFn().Sub(entry.storedAt) > s.opts.TTL {
		sh.mu.Lock()
		delete(sh.items, execID)
		sh.mu.Unlock()
		return nil, false, nil
	}
	resp := entry.resp
	return &resp, true, nil
}

func (s *MemoryStore) Put(_ context.Context, execID string, resp *types.ExecResponse) error {
	sh := s.shard(execID)
	now := s.nowFn()
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if len(sh.items) >= s.perShard {
		s.evictOldestLocked(sh, now)
	}
	sh.items[execID] = memEntry{resp: *resp, storedAt: now}
	return nil
}

// evictOldestLocked drops expired entries first, then the single oldest
// survivor if the shard is still full.
func (s *MemoryStore) evictOldestLocked(sh *memShard, now time.Time) {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range sh.items {
		if now.Sub(e.storedAt) > s.opts.TTL {
			delete(sh.items, k)
			continue
		}
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.storedAt
		}
	}
	if len(sh.items) >= s.perShard && oldestKey != "" {
		delete(sh.items, oldestKey)
	}
}

func (s *MemoryStore) Stats(context.Context) (Stats, error) {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.items)
		sh.mu.RUnlock()
	}
	return Stats{Backend: "memory", Entries: total}, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
