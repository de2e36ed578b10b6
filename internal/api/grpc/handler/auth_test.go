package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authsession/internal/model"
)

func TestAuth_Login(t *testing.T) {
	f := newFixture(t)
	h := f.authHandler()

	active := model.User{ID: uuid.New(), Role: model.RoleUser, Status: model.UserStatusActive}
	suspended := model.User{ID: uuid.New(), Role: model.RoleUser, Status: model.UserStatusSuspended}
	unknown := uuid.New()
	f.users.On("GetByID", mock.Anything, active.ID).Return(active, nil).Maybe()
	f.users.On("GetByID", mock.Anything, suspended.ID).Return(suspended, nil).Maybe()
	f.users.On("GetByID", mock.Anything, unknown).Return(model.User{}, model.ErrNotFound).Maybe()

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 9), Port: 41000}})
	ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("user-agent", "edge-proxy/2.1"))

	t.Run("client details from the call", func(t *testing.T) {
		out, err := h.Login(ctx, mustStruct(t, map[string]any{"user_id": active.ID.String()}))
		require.NoError(t, err)

		fields := out.GetFields()
		assert.Equal(t, "bearer", fields["token_type"].GetStringValue())
		claims, err := f.validator.Verify(context.Background(), fields["access_token"].GetStringValue())
		require.NoError(t, err)
		assert.Equal(t, active.ID.String(), claims.Subject)
		assert.Equal(t, fields["session_id"].GetStringValue(), claims.SessionID)
		assert.False(t, claims.MFAVerified)
		assert.NotEmpty(t, fields["refresh_token"].GetStringValue())

		session, err := f.sessions.Get(context.Background(), claims.SessionID)
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.9", session.IPAddress)
		assert.Equal(t, "edge-proxy/2.1", session.UserAgent)
		assert.Equal(t, formatTime(session.ExpiresAt), fields["expires_at"].GetStringValue())
	})

	t.Run("client details forwarded by the caller", func(t *testing.T) {
		out, err := h.Login(ctx, mustStruct(t, map[string]any{
			"user_id":      active.ID.String(),
			"ip_address":   "203.0.113.50",
			"user_agent":   "Mozilla/5.0",
			"mfa_verified": true,
			"device":       map[string]any{"os": "ios", "model": "iPhone"},
		}))
		require.NoError(t, err)

		session, err := f.sessions.Get(context.Background(), out.GetFields()["session_id"].GetStringValue())
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.50", session.IPAddress)
		assert.Equal(t, "Mozilla/5.0", session.UserAgent)
		assert.Equal(t, map[string]string{"os": "ios", "model": "iPhone"}, session.Device)
		assert.True(t, session.MFAVerified)
	})

	tests := []struct {
		name     string
		fields   map[string]any
		wantCode codes.Code
	}{
		{name: "missing user id", fields: nil, wantCode: codes.InvalidArgument},
		{name: "malformed user id", fields: map[string]any{"user_id": "42"}, wantCode: codes.InvalidArgument},
		{name: "unknown user", fields: map[string]any{"user_id": unknown.String()}, wantCode: codes.Unauthenticated},
		{name: "inactive user", fields: map[string]any{"user_id": suspended.ID.String()}, wantCode: codes.Unauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Login(ctx, mustStruct(t, tt.fields))
			assert.Equal(t, tt.wantCode, status.Code(err))
		})
	}

	for _, id := range []uuid.UUID{unknown, suspended.ID} {
		sessions, err := f.sessions.List(context.Background(), id)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	}
}

func TestAuth_Refresh(t *testing.T) {
	f := newFixture(t)
	_, login := f.login(t, model.RoleUser)
	h := f.authHandler()

	out, err := h.Refresh(context.Background(), mustStruct(t, map[string]any{"refresh_token": login.Tokens.RefreshToken}))
	require.NoError(t, err)
	assert.Equal(t, "bearer", out.GetFields()["token_type"].GetStringValue())
	assert.Equal(t, login.Tokens.RefreshToken, out.GetFields()["refresh_token"].GetStringValue())

	_, err = f.validator.Verify(context.Background(), out.GetFields()["access_token"].GetStringValue())
	require.NoError(t, err)

	_, err = h.Refresh(context.Background(), mustStruct(t, nil))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.Refresh(context.Background(), mustStruct(t, map[string]any{"refresh_token": "garbage"}))
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, "unauthenticated", st.Message())
}

func TestAuth_Introspect(t *testing.T) {
	f := newFixture(t)
	ctx, login := f.login(t, model.RoleAnalyst)
	h := f.authHandler()

	out, err := h.Introspect(ctx, mustStruct(t, nil))
	require.NoError(t, err)
	fields := out.GetFields()
	assert.Equal(t, login.Session.UserID.String(), fields["sub"].GetStringValue())
	assert.Equal(t, "analyst", fields["role"].GetStringValue())
	assert.Equal(t, login.Session.ID, fields["session_id"].GetStringValue())
	assert.False(t, fields["mfa_verified"].GetBoolValue())

	_, err = h.Introspect(context.Background(), mustStruct(t, nil))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestAuth_Logout(t *testing.T) {
	f := newFixture(t)
	ctx, login := f.login(t, model.RoleUser)
	h := f.authHandler()

	_, err := h.Logout(ctx, mustStruct(t, nil))
	require.NoError(t, err)

	_, err = f.validator.Verify(context.Background(), login.Tokens.AccessToken)
	require.ErrorIs(t, err, model.ErrTokenRevoked)

	_, err = h.Logout(ctx, mustStruct(t, nil))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestAuth_Sessions(t *testing.T) {
	f := newFixture(t)
	ctx, login := f.login(t, model.RoleUser)
	h := f.authHandler()

	out, err := h.ListSessions(ctx, mustStruct(t, nil))
	require.NoError(t, err)
	items := out.GetFields()["sessions"].GetListValue().GetValues()
	require.Len(t, items, 1)
	item := items[0].GetStructValue().GetFields()
	assert.Equal(t, login.Session.ID, item["session_id"].GetStringValue())
	assert.True(t, item["current"].GetBoolValue())
	assert.Equal(t, "203.0.113.7", item["ip_address"].GetStringValue())

	out, err = h.ExtendSession(ctx, mustStruct(t, map[string]any{"hours": 48}))
	require.NoError(t, err)
	expiresAt, err := time.Parse(time.RFC3339, out.GetFields()["expires_at"].GetStringValue())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), expiresAt, 2*time.Second)

	for _, hours := range []float64{0, -1, maxExtendHours + 1} {
		_, err = h.ExtendSession(ctx, mustStruct(t, map[string]any{"hours": hours}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	}

	out, err = h.LogoutAll(ctx, mustStruct(t, nil))
	require.NoError(t, err)
	assert.Equal(t, float64(1), out.GetFields()["terminated"].GetNumberValue())

	_, err = f.sessions.Get(context.Background(), login.Session.ID)
	require.ErrorIs(t, err, model.ErrSessionNotFound)
}
