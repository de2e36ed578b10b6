package model

import (
	"context"
	"time"
)

// SharedStore is the key/value store shared by every service instance.
//
// A ttl of zero means the key does not expire. Implementations return ErrNotFound
// for absent keys and wrap infrastructure failures in ErrStorageTimeout or
// ErrStorageUnavailable.
type SharedStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// CompareAndSwap replaces the value of key with next only if its current value
	// equals prev. The check and the write are a single atomic step.
	CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error)
	// Delete removes key and reports whether this call removed it.
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)

	// SAdd adds members to the set at key and keeps the set alive for at least ttl.
	// A later call never shortens the lifetime granted by an earlier one.
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Key namespaces in the shared store.
const (
	TokenKeyPrefix         = "token:"
	RevokedTokenKeyPrefix  = "revoked_token:"
	RefreshTokenKeyPrefix  = "refresh_token:"
	SessionKeyPrefix       = "session:"
	UserSessionsKeyPrefix  = "user_sessions:"
	PasswordResetKeyPrefix = "password_reset:"
)
