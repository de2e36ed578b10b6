package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authsession/internal/mocks"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/testutil"
)

var testMeta = model.ClientMetadata{
	IPAddress: "203.0.113.7",
	UserAgent: "curl/8.5",
	Device:    map[string]string{"os": "linux"},
}

func TestSessionManager_Create(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	user := newTestUser(model.RoleUser)

	session, err := s.sessions.Create(ctx, user, testMeta)
	require.NoError(t, err)

	assert.Len(t, session.ID, 43)
	assert.Len(t, session.Token, 43)
	assert.NotEqual(t, session.ID, session.Token)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, testMeta.IPAddress, session.IPAddress)
	assert.Equal(t, testMeta.UserAgent, session.UserAgent)
	assert.Equal(t, testMeta.Device, session.Device)
	assert.False(t, session.Terminated)
	assert.WithinDuration(t, time.Now().Add(model.DefaultSessionTTL), session.ExpiresAt, 2*time.Second)

	assert.Equal(t, model.DefaultSessionTTL, s.mr.TTL(sessionKey(session.ID)))

	members, err := s.mr.Members(userSessionsKey(user.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{session.ID}, members)

	got, err := s.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, session.Device, got.Device)
}

func TestSessionManager_CreateOptions(t *testing.T) {
	s := newTestStack(t)

	session, err := s.sessions.Create(context.Background(), newTestUser(model.RoleUser), testMeta,
		WithSessionTTL(time.Hour), WithSessionMFA(true))
	require.NoError(t, err)
	assert.True(t, session.MFAVerified)
	assert.Equal(t, time.Hour, s.mr.TTL(sessionKey(session.ID)))

	_, err = s.sessions.Create(context.Background(), newTestUser(model.RoleUser), testMeta, WithSessionTTL(-time.Second))
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestSessionManager_UniqueIDs(t *testing.T) {
	s := newTestStack(t)
	user := newTestUser(model.RoleUser)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		session, err := s.sessions.Create(context.Background(), user, testMeta)
		require.NoError(t, err)
		_, dup := seen[session.ID]
		require.False(t, dup)
		seen[session.ID] = struct{}{}
	}
}

func TestSessionManager_Get(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	user := newTestUser(model.RoleUser)

	_, err := s.sessions.Get(ctx, "missing")
	require.ErrorIs(t, err, model.ErrSessionNotFound)
	_, err = s.sessions.Get(ctx, "")
	require.ErrorIs(t, err, model.ErrSessionNotFound)

	t.Run("expired record is removed", func(t *testing.T) {
		session, err := s.sessions.Create(ctx, user, testMeta)
		require.NoError(t, err)

		s.sessions.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
		t.Cleanup(func() { s.sessions.now = time.Now })

		_, err = s.sessions.Get(ctx, session.ID)
		require.ErrorIs(t, err, model.ErrSessionExpired)
		assert.False(t, s.mr.Exists(sessionKey(session.ID)))
		assert.False(t, isMember(t, s, userSessionsKey(user.ID), session.ID))
	})

	t.Run("terminated record is removed", func(t *testing.T) {
		session, err := s.sessions.Create(ctx, user, testMeta)
		require.NoError(t, err)

		session.Terminated = true
		require.NoError(t, s.store.SetJSON(ctx, sessionKey(session.ID), session, time.Hour))

		_, err = s.sessions.Get(ctx, session.ID)
		require.ErrorIs(t, err, model.ErrSessionExpired)
		assert.False(t, s.mr.Exists(sessionKey(session.ID)))
	})

	t.Run("unreadable record", func(t *testing.T) {
		require.NoError(t, s.mr.Set(sessionKey("broken"), "{"))

		_, err := s.sessions.Get(ctx, "broken")
		require.ErrorIs(t, err, model.ErrSessionNotFound)
		assert.False(t, s.mr.Exists(sessionKey("broken")))
	})
}

func TestSessionManager_Extend(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)

	session, err := s.sessions.Create(ctx, newTestUser(model.RoleUser), testMeta)
	require.NoError(t, err)

	extended, err := s.sessions.Extend(ctx, session.ID, 48*time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), extended.ExpiresAt, 2*time.Second)
	assert.Equal(t, 48*time.Hour, s.mr.TTL(sessionKey(session.ID)))
	assert.Equal(t, session.Token, extended.Token)

	got, err := s.sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, extended.ExpiresAt.Unix(), got.ExpiresAt.Unix())

	_, err = s.sessions.Extend(ctx, "missing", time.Hour)
	require.ErrorIs(t, err, model.ErrSessionNotFound)

	_, err = s.sessions.Extend(ctx, session.ID, 0)
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestSessionManager_TerminateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	user := newTestUser(model.RoleUser)

	session, err := s.sessions.Create(ctx, user, testMeta)
	require.NoError(t, err)

	ok, err := s.sessions.Terminate(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.sessions.Terminate(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.sessions.Get(ctx, session.ID)
	require.ErrorIs(t, err, model.ErrSessionNotFound)
	assert.False(t, isMember(t, s, userSessionsKey(user.ID), session.ID))
}

func TestSessionManager_TerminateAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	user := newTestUser(model.RoleUser)
	other := newTestUser(model.RoleUser)

	for i := 0; i < 3; i++ {
		_, err := s.sessions.Create(ctx, user, testMeta)
		require.NoError(t, err)
	}
	otherSession, err := s.sessions.Create(ctx, other, testMeta)
	require.NoError(t, err)

	_, err = s.mr.SAdd(userSessionsKey(user.ID), "stale")
	require.NoError(t, err)

	count, err := s.sessions.TerminateAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.False(t, s.mr.Exists(userSessionsKey(user.ID)))

	_, err = s.sessions.Get(ctx, otherSession.ID)
	require.NoError(t, err)

	count, err = s.sessions.TerminateAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = s.sessions.TerminateAll(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSessionManager_List(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	user := newTestUser(model.RoleUser)

	first, err := s.sessions.Create(ctx, user, testMeta)
	require.NoError(t, err)
	second, err := s.sessions.Create(ctx, user, testMeta)
	require.NoError(t, err)

	// Simulate a record that expired in the store without being unindexed.
	s.mr.Del(sessionKey(second.ID))

	sessions, err := s.sessions.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, first.ID, sessions[0].ID)

	members, err := s.mr.Members(userSessionsKey(user.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, members)
}

func TestSessionManager_StorageFailure(t *testing.T) {
	store := mocks.NewSharedStore(t)
	store.On("Get", mock.Anything, sessionKey("s1")).Return(nil, model.ErrStorageUnavailable).Twice()
	store.On("SMembers", mock.Anything, mock.Anything).Return(nil, model.ErrStorageTimeout).Twice()

	log := testutil.MakeNoopLogger()
	sessions := NewSessionManager(NewStoreClient(store, testTimeout, log), time.Hour, log)

	_, err := sessions.Get(context.Background(), "s1")
	require.ErrorIs(t, err, model.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, model.ErrSession)

	_, err = sessions.TerminateAll(context.Background(), uuid.New())
	require.ErrorIs(t, err, model.ErrStorageTimeout)
}

func TestSessionManager_IndexExpiresWithSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)
	user := newTestUser(model.RoleUser)
	key := userSessionsKey(user.ID)

	short, err := s.sessions.Create(ctx, user, testMeta, WithSessionTTL(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, s.mr.TTL(key))

	s.mr.FastForward(2 * time.Minute)

	_, err = s.sessions.Get(ctx, short.ID)
	require.ErrorIs(t, err, model.ErrSessionNotFound)
	assert.False(t, s.mr.Exists(key))

	t.Run("index follows the longest session", func(t *testing.T) {
		long, err := s.sessions.Create(ctx, user, testMeta, WithSessionTTL(time.Hour))
		require.NoError(t, err)
		_, err = s.sessions.Create(ctx, user, testMeta, WithSessionTTL(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, s.mr.TTL(key))

		_, err = s.sessions.Extend(ctx, long.ID, 48*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 48*time.Hour, s.mr.TTL(key))

		s.mr.FastForward(49 * time.Hour)
		assert.False(t, s.mr.Exists(key))
	})
}
