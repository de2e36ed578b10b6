package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dtroode/authsession/internal/model"
)

var _ model.SharedStore = (*Store)(nil)

// compareAndSwapScript swaps KEYS[1] from ARGV[1] to ARGV[2] when the current value
// matches. ARGV[3] is the new TTL in milliseconds, 0 for no expiry.
var compareAndSwapScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// setAddScript adds ARGV[2..] to the set KEYS[1] and raises its TTL to ARGV[1]
// milliseconds when the current TTL is shorter. A fresh set reports -1 and is always set.
var setAddScript = redis.NewScript(`
redis.call('SADD', KEYS[1], unpack(ARGV, 2))
local ttl = tonumber(ARGV[1])
if ttl > 0 and redis.call('PTTL', KEYS[1]) < ttl then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

// Store implements model.SharedStore on top of a pooled Redis client.
type Store struct {
	client redis.UniversalClient
}

// NewStore wraps an existing client. The client's pool is shared by all callers.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// NewClient opens a pooled client and checks the server is reachable.
func NewClient(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, wrapError("get", err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrapError("set", err)
	}
	return nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	swapped, err := compareAndSwapScript.Run(ctx, s.client, []string{key}, prev, next, ttl.Milliseconds()).Int()
	if err != nil {
		return false, wrapError("compare and swap", err)
	}
	return swapped == 1, nil
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, wrapError("delete", err)
	}
	return n == 1, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, wrapError("exists", err)
	}
	return n > 0, nil
}

func (s *Store) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := append([]interface{}{ttl.Milliseconds()}, toArgs(members)...)
	if err := setAddScript.Run(ctx, s.client, []string{key}, args...).Err(); err != nil {
		return wrapError("sadd", err)
	}
	return nil
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := s.client.SRem(ctx, key, toArgs(members)...).Err(); err != nil {
		return wrapError("srem", err)
	}
	return nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, wrapError("smembers", err)
	}
	return members, nil
}

func toArgs(members []string) []interface{} {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}

func wrapError(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: redis %s: %v", model.ErrStorageTimeout, op, err)
	}
	return fmt.Errorf("%w: redis %s: %v", model.ErrStorageUnavailable, op, err)
}
