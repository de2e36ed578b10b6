package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dtroode/authsession/internal/storage/redis"
)

// NewRedisStore starts an in-process Redis server for the duration of the test and
// returns a shared store connected to it.
func NewRedisStore(t *testing.T) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redis.NewStore(client), mr
}
