package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"stratos/internal/types"
)

const redisKeyPrefix = "stratos:dedup:"

// RedisStore keeps dedup records in Redis with per-key TTL, for deployments
// where repeated delivery can hit more than one service instance.
type RedisStore struct {
	client *redis.Client
	opts   Options
}

func NewRedisStore(addr, password string, db int, opts Options) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("dedup redis store: connect %s: %w", addr, err)
	}
	return &RedisStore{client: client, opts: opts.withDefaults()}, nil
}

func (s *RedisStore) Get(ctx context.Context, execID string) (*types.ExecResponse, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+execID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var resp types.ExecResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, fmt.Errorf("dedup redis store: corrupt record %s: %w", execID, err)
	}
	return &resp, true, nil
}

func (s *RedisStore) Put(ctx context.Context, execID string, resp *types.ExecResponse) error {
	blob, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+execID, blob, s.opts.TTL).Err()
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	var entries int
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", int64(s.opts.MaxEntries)).Iterator()
	for iter.Next(ctx) {
		entries++
	}
	if err := iter.Err(); err != nil {
		return Stats{}, err
	}
	return Stats{Backend: "redis", Entries: entries}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
