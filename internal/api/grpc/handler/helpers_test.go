package handler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	grpcContext "github.com/dtroode/authsession/internal/api/grpc/context"
	"github.com/dtroode/authsession/internal/mocks"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/service"
	"github.com/dtroode/authsession/internal/testutil"
	"github.com/dtroode/authsession/internal/token"
)

type fixture struct {
	mr          *miniredis.Miniredis
	users       *mocks.UserStore
	manager     *grpcContext.Manager
	auth        *service.Auth
	sessions    *service.SessionManager
	validator   *service.TokenValidator
	revocations *service.RevocationRegistry
	resets      *service.PasswordResetTokenManager
	rotator     *service.RefreshRotator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	redisStore, mr := testutil.NewRedisStore(t)
	log := testutil.MakeNoopLogger()

	codec, err := token.NewJWT("access-secret", "refresh-secret", "HS256")
	require.NoError(t, err)

	store := service.NewStoreClient(redisStore, time.Second, log)
	users := mocks.NewUserStore(t)
	sessions := service.NewSessionManager(store, model.DefaultSessionTTL, log)
	issuer := service.NewTokenIssuer(codec, store, 15*time.Minute, 7*24*time.Hour, log)
	revocations := service.NewRevocationRegistry(codec, store, log)
	validator := service.NewTokenValidator(codec, store, revocations, log)

	return &fixture{
		mr:          mr,
		users:       users,
		manager:     grpcContext.NewManager(),
		auth:        service.NewAuth(users, sessions, issuer, validator, revocations, time.Second, log),
		sessions:    sessions,
		validator:   validator,
		revocations: revocations,
		resets:      service.NewPasswordResetTokenManager(store, 15*time.Minute, time.Hour, log),
		rotator:     service.NewRefreshRotator(codec, store, sessions, issuer, users, false, log),
	}
}

func (f *fixture) authHandler() *Auth {
	return NewAuth(f.auth, f.rotator, f.sessions, f.manager, testutil.MakeNoopLogger())
}

func (f *fixture) adminHandler() *Admin {
	return NewAdmin(f.sessions, f.revocations, f.resets, f.manager, testutil.MakeNoopLogger())
}

// login opens a session for a new user with the given role and returns a context
// authenticated the way the auth interceptor would leave it.
func (f *fixture) login(t *testing.T, role model.Role) (context.Context, service.LoginResult) {
	t.Helper()
	ctx := context.Background()

	user := model.User{
		ID:           uuid.New(),
		Email:        "a@b.com",
		Username:     "alice",
		Role:         role,
		Status:       model.UserStatusActive,
		AuthProvider: "local",
	}
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil).Maybe()

	result, err := f.auth.Login(ctx, user.ID, model.ClientMetadata{IPAddress: "203.0.113.7", UserAgent: "grpc-go"}, false)
	require.NoError(t, err)

	claims, err := f.validator.Verify(ctx, result.Tokens.AccessToken)
	require.NoError(t, err)

	return f.manager.SetClaimsToContext(ctx, result.Tokens.AccessToken, claims), result
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}
