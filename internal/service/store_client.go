package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/metrics"
	"github.com/dtroode/authsession/internal/model"
)

const storeRetryDelay = 50 * time.Millisecond

// StoreClient applies the call policy for the shared store: every attempt is bounded by
// timeout and a storage failure is retried once. Other errors, including ErrNotFound,
// are returned immediately.
type StoreClient struct {
	store   model.SharedStore
	timeout time.Duration
	logger  *logger.Logger
}

// NewStoreClient wraps store with the call policy.
func NewStoreClient(store model.SharedStore, timeout time.Duration, logger *logger.Logger) *StoreClient {
	return &StoreClient{store: store, timeout: timeout, logger: logger.Component("store")}
}

// Timeout returns the per-attempt timeout.
func (c *StoreClient) Timeout() time.Duration {
	return c.timeout
}

func (c *StoreClient) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			metrics.StoreRetries.WithLabelValues(op).Inc()
			c.logger.Warn("Store client: retrying store call", "op", op)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		err := fn(callCtx)
		if err != nil && callCtx.Err() != nil && !errors.Is(err, model.ErrStorage) && !errors.Is(err, model.ErrNotFound) {
			err = fmt.Errorf("%w: %s: %v", model.ErrStorageTimeout, op, err)
		}
		if err != nil && !errors.Is(err, model.ErrStorage) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(storeRetryDelay), 1), ctx)
	err := backoff.Retry(operation, policy)
	if err != nil && ctx.Err() != nil && !errors.Is(err, model.ErrStorage) {
		return fmt.Errorf("%w: %s: %v", model.ErrStorageTimeout, op, ctx.Err())
	}
	if errors.Is(err, model.ErrStorage) {
		c.logger.Error("Store client: store call failed", "op", op, "error", err.Error())
	}
	return err
}

func (c *StoreClient) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.do(ctx, "get", func(ctx context.Context) error {
		var err error
		value, err = c.store.Get(ctx, key)
		return err
	})
	return value, err
}

func (c *StoreClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.do(ctx, "set", func(ctx context.Context) error {
		return c.store.Set(ctx, key, value, ttl)
	})
}

func (c *StoreClient) CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	var swapped bool
	err := c.do(ctx, "compare_and_swap", func(ctx context.Context) error {
		var err error
		swapped, err = c.store.CompareAndSwap(ctx, key, prev, next, ttl)
		return err
	})
	return swapped, err
}

func (c *StoreClient) Delete(ctx context.Context, key string) (bool, error) {
	var deleted bool
	err := c.do(ctx, "delete", func(ctx context.Context) error {
		var err error
		deleted, err = c.store.Delete(ctx, key)
		return err
	})
	return deleted, err
}

func (c *StoreClient) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := c.do(ctx, "exists", func(ctx context.Context) error {
		var err error
		exists, err = c.store.Exists(ctx, key)
		return err
	})
	return exists, err
}

func (c *StoreClient) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	return c.do(ctx, "sadd", func(ctx context.Context) error {
		return c.store.SAdd(ctx, key, ttl, members...)
	})
}

func (c *StoreClient) SRem(ctx context.Context, key string, members ...string) error {
	return c.do(ctx, "srem", func(ctx context.Context) error {
		return c.store.SRem(ctx, key, members...)
	})
}

func (c *StoreClient) SMembers(ctx context.Context, key string) ([]string, error) {
	var members []string
	err := c.do(ctx, "smembers", func(ctx context.Context) error {
		var err error
		members, err = c.store.SMembers(ctx, key)
		return err
	})
	return members, err
}

// SetJSON stores v encoded as JSON.
func (c *StoreClient) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}

// GetJSON decodes the JSON value of key into v and returns the raw bytes.
func (c *StoreClient) GetJSON(ctx context.Context, key string, v any) ([]byte, error) {
	data, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return data, fmt.Errorf("failed to unmarshal stored value: %w", err)
	}
	return data, nil
}

func tokenKey(token string) string         { return model.TokenKeyPrefix + token }
func revokedTokenKey(token string) string  { return model.RevokedTokenKeyPrefix + token }
func refreshTokenKey(token string) string  { return model.RefreshTokenKeyPrefix + token }
func sessionKey(id string) string          { return model.SessionKeyPrefix + id }
func passwordResetKey(token string) string { return model.PasswordResetKeyPrefix + token }

func userSessionsKey(userID fmt.Stringer) string {
	return model.UserSessionsKeyPrefix + userID.String()
}
