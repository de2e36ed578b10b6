package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/testutil"
	"github.com/dtroode/authsession/internal/token"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
	testTimeout    = time.Second
)

type testStack struct {
	mr          *miniredis.Miniredis
	store       *StoreClient
	codec       *token.JWT
	issuer      *TokenIssuer
	revocations *RevocationRegistry
	validator   *TokenValidator
	sessions    *SessionManager
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	redisStore, mr := testutil.NewRedisStore(t)
	log := testutil.MakeNoopLogger()

	codec, err := token.NewJWT("access-secret", "refresh-secret", "HS256")
	require.NoError(t, err)

	store := NewStoreClient(redisStore, testTimeout, log)
	revocations := NewRevocationRegistry(codec, store, log)

	return &testStack{
		mr:          mr,
		store:       store,
		codec:       codec,
		issuer:      NewTokenIssuer(codec, store, testAccessTTL, testRefreshTTL, log),
		revocations: revocations,
		validator:   NewTokenValidator(codec, store, revocations, log),
		sessions:    NewSessionManager(store, model.DefaultSessionTTL, log),
	}
}

func newTestUser(role model.Role) model.User {
	return model.User{
		ID:           uuid.New(),
		Email:        "a@b.com",
		Username:     "alice",
		Role:         role,
		Status:       model.UserStatusActive,
		AuthProvider: "local",
	}
}

func isMember(t *testing.T, s *testStack, key, member string) bool {
	t.Helper()
	if !s.mr.Exists(key) {
		return false
	}
	ok, err := s.mr.IsMember(key, member)
	require.NoError(t, err)
	return ok
}
