package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/authsession/internal/model"
)

var _ model.SharedStore = (*KVStore)(nil)

// KVStore implements model.SharedStore on Postgres for deployments without Redis.
// Expired rows are invisible to reads and removed by PurgeExpired.
type KVStore struct {
	db *Connection
}

func NewKVStore(db *Connection) *KVStore {
	return &KVStore{db: db}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `
        SELECT value FROM kv_entries
        WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())
    `
	var value []byte
	if err := s.db.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", classify(err))
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const query = `
        INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
    `
	if _, err := s.db.Exec(ctx, query, key, value, expiresAt(ttl)); err != nil {
		return fmt.Errorf("failed to set key: %w", classify(err))
	}
	return nil
}

// CompareAndSwap relies on the row lock taken by UPDATE, so concurrent callers
// with the same prev value serialize and only the first one matches.
func (s *KVStore) CompareAndSwap(ctx context.Context, key string, prev, next []byte, ttl time.Duration) (bool, error) {
	const query = `
        UPDATE kv_entries SET value = $3, expires_at = $4
        WHERE key = $1 AND value = $2 AND (expires_at IS NULL OR expires_at > NOW())
    `
	tag, err := s.db.Exec(ctx, query, key, prev, next, expiresAt(ttl))
	if err != nil {
		return false, fmt.Errorf("failed to compare and swap key: %w", classify(err))
	}
	return tag.RowsAffected() == 1, nil
}

func (s *KVStore) Delete(ctx context.Context, key string) (bool, error) {
	const query = `
        DELETE FROM kv_entries
        WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())
    `
	tag, err := s.db.Exec(ctx, query, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete key: %w", classify(err))
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	const setQuery = `DELETE FROM set_members WHERE set_key = $1`
	tag, err = s.db.Exec(ctx, setQuery, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete set: %w", classify(err))
	}
	return tag.RowsAffected() > 0, nil
}

func (s *KVStore) Exists(ctx context.Context, key string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM kv_entries
            WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())
        )
    `
	var exists bool
	if err := s.db.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check key: %w", classify(err))
	}
	return exists, nil
}

// SAdd stores a per-member expiry. Re-adding a member only moves its expiry forward.
func (s *KVStore) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	const query = `
        INSERT INTO set_members (set_key, member, expires_at)
        SELECT $1, unnest($2::text[]), $3::timestamptz
        ON CONFLICT (set_key, member) DO UPDATE SET expires_at = CASE
            WHEN set_members.expires_at IS NULL OR EXCLUDED.expires_at IS NULL THEN NULL
            ELSE GREATEST(set_members.expires_at, EXCLUDED.expires_at)
        END
    `
	if _, err := s.db.Exec(ctx, query, key, members, expiresAt(ttl)); err != nil {
		return fmt.Errorf("failed to add set members: %w", classify(err))
	}
	return nil
}

func (s *KVStore) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	const query = `DELETE FROM set_members WHERE set_key = $1 AND member = ANY($2)`
	if _, err := s.db.Exec(ctx, query, key, members); err != nil {
		return fmt.Errorf("failed to remove set members: %w", classify(err))
	}
	return nil
}

func (s *KVStore) SMembers(ctx context.Context, key string) ([]string, error) {
	const query = `
        SELECT member FROM set_members
        WHERE set_key = $1 AND (expires_at IS NULL OR expires_at > NOW())
    `
	rows, err := s.db.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list set members: %w", classify(err))
	}
	members, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan set members: %w", classify(err))
	}
	return members, nil
}

// PurgeExpired deletes expired entries and set members and returns how many rows were
// removed.
func (s *KVStore) PurgeExpired(ctx context.Context) (int64, error) {
	const entriesQuery = `DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= NOW()`
	entries, err := s.db.Exec(ctx, entriesQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired keys: %w", classify(err))
	}

	const membersQuery = `DELETE FROM set_members WHERE expires_at IS NOT NULL AND expires_at <= NOW()`
	members, err := s.db.Exec(ctx, membersQuery)
	if err != nil {
		return entries.RowsAffected(), fmt.Errorf("failed to purge expired set members: %w", classify(err))
	}
	return entries.RowsAffected() + members.RowsAffected(), nil
}

func expiresAt(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := time.Now().Add(ttl)
	return &t
}

// classify maps driver failures onto the storage error classes.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", model.ErrStorageTimeout, err)
	}
	return fmt.Errorf("%w: %v", model.ErrStorageUnavailable, err)
}
