package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/metrics"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/token"
)

// TokenIssuer signs access and refresh tokens and caches them in the shared store.
// A token is returned only after both signing and caching succeeded.
type TokenIssuer struct {
	codec      *token.JWT
	store      *StoreClient
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *logger.Logger
	now        func() time.Time
}

// NewTokenIssuer creates a TokenIssuer with the default access and refresh lifetimes.
func NewTokenIssuer(codec *token.JWT, store *StoreClient, accessTTL, refreshTTL time.Duration, logger *logger.Logger) *TokenIssuer {
	return &TokenIssuer{
		codec:      codec,
		store:      store,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger.Component("issuer"),
		now:        time.Now,
	}
}

type issueOptions struct {
	mfaVerified bool
}

// IssueOption customizes an access token.
type IssueOption func(*issueOptions)

// WithMFAVerified sets the mfa_verified claim.
func WithMFAVerified(verified bool) IssueOption {
	return func(o *issueOptions) {
		o.mfaVerified = verified
	}
}

// CreateAccessToken signs an access token for user bound to sessionID and caches its
// claims under token:<T> for the token's remaining lifetime. A non-positive ttl uses
// the default access lifetime.
func (i *TokenIssuer) CreateAccessToken(ctx context.Context, user model.User, ttl time.Duration, sessionID string, opts ...IssueOption) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id is required")
	}
	if ttl <= 0 {
		ttl = i.accessTTL
	}
	o := issueOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	now := i.now()
	claims := token.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:        user.Email,
		Username:     user.Username,
		Role:         user.Role,
		Status:       user.Status,
		SessionID:    sessionID,
		MFAVerified:  o.mfaVerified,
		AuthProvider: user.AuthProvider,
	}

	remaining, err := remainingLifetime(claims.Expiry(), now)
	if err != nil {
		return "", err
	}

	signed, err := i.codec.SignAccess(claims)
	if err != nil {
		return "", fmt.Errorf("issue access: %w", err)
	}

	if err := i.store.SetJSON(ctx, tokenKey(signed), claims, remaining); err != nil {
		i.logger.Error("Token issuer: failed to cache access token",
			"user_id", user.ID,
			"session_id", sessionID,
			"jti", claims.ID,
			"error", err.Error())
		return "", fmt.Errorf("cache access token: %w", err)
	}

	metrics.TokensIssued.WithLabelValues(metrics.KindAccess).Inc()
	i.logger.Debug("Token issuer: access token issued",
		"user_id", user.ID,
		"session_id", sessionID,
		"jti", claims.ID)

	return signed, nil
}

// CreateRefreshToken signs a refresh token and stores its {user_id, session_id} binding
// under refresh_token:<T> for the refresh lifetime.
func (i *TokenIssuer) CreateRefreshToken(ctx context.Context, userID uuid.UUID, sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("session id is required")
	}

	now := i.now()
	claims := token.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		},
		SessionID: sessionID,
	}

	remaining, err := remainingLifetime(claims.Expiry(), now)
	if err != nil {
		return "", err
	}

	signed, err := i.codec.SignRefresh(claims)
	if err != nil {
		return "", fmt.Errorf("issue refresh: %w", err)
	}

	binding := model.RefreshBinding{UserID: userID, SessionID: sessionID}
	if err := i.store.SetJSON(ctx, refreshTokenKey(signed), binding, remaining); err != nil {
		i.logger.Error("Token issuer: failed to store refresh token",
			"user_id", userID,
			"session_id", sessionID,
			"error", err.Error())
		return "", fmt.Errorf("persist refresh: %w", err)
	}

	metrics.TokensIssued.WithLabelValues(metrics.KindRefresh).Inc()
	i.logger.Debug("Token issuer: refresh token issued",
		"user_id", userID,
		"session_id", sessionID)

	return signed, nil
}

// remainingLifetime is the store TTL for a token expiring at exp. exp is truncated to
// whole seconds, so lifetimes under a second round down to nothing and are rejected.
func remainingLifetime(exp, now time.Time) (time.Duration, error) {
	remaining := exp.Sub(now)
	if remaining <= 0 {
		return 0, fmt.Errorf("%w: token lifetime must be at least one second", model.ErrValidation)
	}
	return remaining, nil
}
