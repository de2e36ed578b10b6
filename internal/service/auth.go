package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/model"
)

// LoginResult is the session and token pair handed to a freshly authenticated client.
type LoginResult struct {
	Session model.Session
	Tokens  model.TokenPair
}

// Auth composes the lifecycle services into login and logout flows. Credentials are
// checked upstream; Auth only receives the id of an authenticated user.
type Auth struct {
	users       model.UserStore
	sessions    *SessionManager
	issuer      *TokenIssuer
	validator   *TokenValidator
	revocations *RevocationRegistry
	lookup      time.Duration
	logger      *logger.Logger
}

func NewAuth(
	users model.UserStore,
	sessions *SessionManager,
	issuer *TokenIssuer,
	validator *TokenValidator,
	revocations *RevocationRegistry,
	lookupTimeout time.Duration,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		users:       users,
		sessions:    sessions,
		issuer:      issuer,
		validator:   validator,
		revocations: revocations,
		lookup:      lookupTimeout,
		logger:      logger.Component("auth"),
	}
}

// Login opens a session for an active user and issues its first token pair.
func (a *Auth) Login(ctx context.Context, userID uuid.UUID, meta model.ClientMetadata, mfaVerified bool) (LoginResult, error) {
	a.logger.Debug("Auth service: starting login", "user_id", userID)

	user, err := lookupActiveUser(ctx, a.users, a.lookup, userID)
	if err != nil {
		a.logger.Info("Auth service: login rejected",
			"user_id", userID,
			"error", err.Error())
		return LoginResult{}, err
	}

	session, err := a.sessions.Create(ctx, user, meta, WithSessionMFA(mfaVerified))
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to create session: %w", err)
	}

	access, err := a.issuer.CreateAccessToken(ctx, user, 0, session.ID, WithMFAVerified(mfaVerified))
	if err != nil {
		a.abandon(ctx, session.ID)
		return LoginResult{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := a.issuer.CreateRefreshToken(ctx, user.ID, session.ID)
	if err != nil {
		a.abandon(ctx, session.ID)
		return LoginResult{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	a.logger.Info("Auth service: login completed",
		"user_id", user.ID,
		"session_id", session.ID)

	return LoginResult{
		Session: session,
		Tokens:  model.TokenPair{AccessToken: access, RefreshToken: refresh},
	}, nil
}

// Logout revokes the access token and terminates the session it belongs to.
func (a *Auth) Logout(ctx context.Context, accessToken string) error {
	claims, err := a.validator.Verify(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := a.revocations.Revoke(ctx, accessToken); err != nil {
		return fmt.Errorf("failed to revoke access token: %w", err)
	}

	if _, err := a.sessions.Terminate(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("failed to terminate session: %w", err)
	}

	a.logger.Info("Auth service: logout completed",
		"user_id", claims.Subject,
		"session_id", claims.SessionID)

	return nil
}

// LogoutAll terminates every session of the user.
func (a *Auth) LogoutAll(ctx context.Context, userID uuid.UUID) (int, error) {
	return a.sessions.TerminateAll(ctx, userID)
}

func (a *Auth) abandon(ctx context.Context, sessionID string) {
	if _, err := a.sessions.Terminate(ctx, sessionID); err != nil {
		a.logger.Warn("Auth service: failed to abandon session",
			"session_id", sessionID,
			"error", err.Error())
	}
}

// lookupActiveUser fetches the authoritative user record within timeout. Unknown users
// are reported as ErrTokenInvalid and non-active ones as ErrUserInactive.
func lookupActiveUser(ctx context.Context, users model.UserStore, timeout time.Duration, id uuid.UUID) (model.User, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	user, err := users.GetByID(lookupCtx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, model.ErrTokenInvalid
	}
	if err != nil {
		if lookupCtx.Err() != nil && !errors.Is(err, model.ErrStorage) {
			return model.User{}, fmt.Errorf("%w: user lookup: %v", model.ErrStorageTimeout, err)
		}
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive() {
		return model.User{}, model.ErrUserInactive
	}
	return user, nil
}
