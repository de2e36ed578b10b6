package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/token"
)

// RefreshRotator exchanges a refresh token bound to a live session for a new access
// token minted from the current user record.
//
// With rotation disabled the same refresh token stays valid until it expires or its
// session ends. With rotation enabled every use consumes the token and returns a new one.
type RefreshRotator struct {
	codec    *token.JWT
	store    *StoreClient
	sessions *SessionManager
	issuer   *TokenIssuer
	users    model.UserStore
	rotate   bool
	logger   *logger.Logger
}

func NewRefreshRotator(
	codec *token.JWT,
	store *StoreClient,
	sessions *SessionManager,
	issuer *TokenIssuer,
	users model.UserStore,
	rotate bool,
	logger *logger.Logger,
) *RefreshRotator {
	return &RefreshRotator{
		codec:    codec,
		store:    store,
		sessions: sessions,
		issuer:   issuer,
		users:    users,
		rotate:   rotate,
		logger:   logger.Component("refresh"),
	}
}

// Refresh returns a new access token for the session the refresh token is bound to.
// The returned pair carries the refresh token the caller must use next time.
func (r *RefreshRotator) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := r.codec.ParseRefresh(refreshToken)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("%w: %v", model.ErrTokenInvalid, err)
	}

	var binding model.RefreshBinding
	_, err = r.store.GetJSON(ctx, refreshTokenKey(refreshToken), &binding)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		return model.TokenPair{}, model.ErrTokenInvalid
	case errors.Is(err, model.ErrStorage):
		return model.TokenPair{}, fmt.Errorf("failed to resolve refresh token: %w", err)
	default:
		return model.TokenPair{}, fmt.Errorf("%w: %v", model.ErrTokenInvalid, err)
	}
	if binding.SessionID != claims.SessionID || binding.UserID.String() != claims.Subject {
		r.logger.Warn("Refresh rotator: refresh token binding mismatch",
			"jti", claims.ID,
			"session_id", claims.SessionID)
		return model.TokenPair{}, model.ErrTokenInvalid
	}

	session, err := r.sessions.Get(ctx, binding.SessionID)
	if errors.Is(err, model.ErrSession) {
		return model.TokenPair{}, model.ErrSessionExpired
	}
	if err != nil {
		return model.TokenPair{}, err
	}
	if session.UserID != binding.UserID {
		return model.TokenPair{}, model.ErrTokenInvalid
	}

	user, err := lookupActiveUser(ctx, r.users, r.store.Timeout(), binding.UserID)
	if err != nil {
		r.logger.Info("Refresh rotator: refresh rejected",
			"user_id", binding.UserID,
			"session_id", session.ID,
			"error", err.Error())
		return model.TokenPair{}, err
	}

	nextRefresh := refreshToken
	if r.rotate {
		deleted, err := r.store.Delete(ctx, refreshTokenKey(refreshToken))
		if err != nil {
			return model.TokenPair{}, fmt.Errorf("failed to consume refresh token: %w", err)
		}
		if !deleted {
			r.logger.Warn("Refresh rotator: refresh token already used",
				"jti", claims.ID,
				"session_id", session.ID)
			return model.TokenPair{}, model.ErrTokenInvalid
		}

		nextRefresh, err = r.issuer.CreateRefreshToken(ctx, user.ID, session.ID)
		if err != nil {
			return model.TokenPair{}, err
		}
	}

	access, err := r.issuer.CreateAccessToken(ctx, user, 0, session.ID, WithMFAVerified(session.MFAVerified))
	if err != nil {
		return model.TokenPair{}, err
	}

	r.logger.Debug("Refresh rotator: access token refreshed",
		"user_id", user.ID,
		"session_id", session.ID,
		"rotated", r.rotate)

	return model.TokenPair{AccessToken: access, RefreshToken: nextRefresh}, nil
}
