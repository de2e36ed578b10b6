package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/metrics"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/token"
)

// TokenValidator verifies access tokens against the claim cache, the revocation registry
// and the signing key.
type TokenValidator struct {
	codec       *token.JWT
	store       *StoreClient
	revocations *RevocationRegistry
	logger      *logger.Logger
	now         func() time.Time
}

func NewTokenValidator(codec *token.JWT, store *StoreClient, revocations *RevocationRegistry, logger *logger.Logger) *TokenValidator {
	return &TokenValidator{
		codec:       codec,
		store:       store,
		revocations: revocations,
		logger:      logger.Component("validator"),
		now:         time.Now,
	}
}

// Verify returns the claims of a live access token. The revocation registry is consulted
// on every call, including cache hits, and any storage failure fails the call.
func (v *TokenValidator) Verify(ctx context.Context, tokenString string) (token.AccessClaims, error) {
	claims, err := v.verify(ctx, tokenString)
	metrics.TokenVerifications.WithLabelValues(verificationOutcome(err)).Inc()
	return claims, err
}

func (v *TokenValidator) verify(ctx context.Context, tokenString string) (token.AccessClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return token.AccessClaims{}, model.ErrMalformedToken
	}

	var cached token.AccessClaims
	hit := true
	_, err := v.store.GetJSON(ctx, tokenKey(tokenString), &cached)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		hit = false
	case errors.Is(err, model.ErrStorage):
		return token.AccessClaims{}, fmt.Errorf("failed to read token cache: %w", err)
	default:
		v.logger.Warn("Token validator: ignoring corrupt cache entry", "error", err.Error())
		hit = false
	}

	revoked, err := v.revocations.IsRevoked(ctx, tokenString)
	if err != nil {
		return token.AccessClaims{}, err
	}
	if revoked {
		return token.AccessClaims{}, model.ErrTokenRevoked
	}

	if !hit || cached.ExpiresAt == nil {
		return v.codec.ParseAccess(tokenString)
	}

	if !v.now().Before(cached.Expiry()) {
		return token.AccessClaims{}, model.ErrTokenExpired
	}
	return cached, nil
}

func verificationOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeValid
	case errors.Is(err, model.ErrTokenExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, model.ErrTokenRevoked):
		return metrics.OutcomeRevoked
	case errors.Is(err, model.ErrStorage):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeInvalid
	}
}
