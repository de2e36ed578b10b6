package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/metrics"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/token"
)

var revokedMarker = []byte("1")

// DefaultClockSkew is how long a revocation entry outlives its token by default.
const DefaultClockSkew = 5 * time.Second

// RevocationRegistry is the deny-list of access tokens that must be rejected before
// their natural expiry. Entries live as long as the token they deny plus the clock
// skew tolerated between instances, so an instance whose clock lags still sees them.
type RevocationRegistry struct {
	codec  *token.JWT
	store  *StoreClient
	skew   time.Duration
	logger *logger.Logger
	now    func() time.Time
}

// RevocationOption customizes a RevocationRegistry.
type RevocationOption func(*RevocationRegistry)

// WithClockSkew sets the margin added to every revocation entry. Negative values are
// treated as zero.
func WithClockSkew(skew time.Duration) RevocationOption {
	return func(r *RevocationRegistry) {
		r.skew = max(skew, 0)
	}
}

func NewRevocationRegistry(codec *token.JWT, store *StoreClient, logger *logger.Logger, opts ...RevocationOption) *RevocationRegistry {
	r := &RevocationRegistry{
		codec:  codec,
		store:  store,
		skew:   DefaultClockSkew,
		logger: logger.Component("revocation"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Revoke denies an access token for the rest of its lifetime and drops its cached claims.
// Revoking an already expired token is a no-op. Tokens that were not signed by this
// service are rejected with ErrTokenInvalid.
func (r *RevocationRegistry) Revoke(ctx context.Context, tokenString string) error {
	claims, err := r.codec.ParseAccess(tokenString)
	if errors.Is(err, model.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}

	remaining := claims.Expiry().Sub(r.now())
	if remaining <= 0 {
		return nil
	}

	if err := r.store.Set(ctx, revokedTokenKey(tokenString), revokedMarker, remaining+r.skew); err != nil {
		r.logger.Error("Revocation registry: failed to revoke token",
			"jti", claims.ID,
			"session_id", claims.SessionID,
			"error", err.Error())
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	// The marker alone already denies the token; dropping the cache entry is best effort.
	if _, err := r.store.Delete(ctx, tokenKey(tokenString)); err != nil {
		r.logger.Warn("Revocation registry: failed to drop cached claims",
			"jti", claims.ID,
			"error", err.Error())
	}

	metrics.TokensRevoked.Inc()
	r.logger.Info("Revocation registry: token revoked",
		"jti", claims.ID,
		"user_id", claims.Subject,
		"session_id", claims.SessionID)

	return nil
}

// IsRevoked reports whether a revocation entry exists for the token. A storage failure is
// returned as an error and must be treated as revoked by callers.
func (r *RevocationRegistry) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	revoked, err := r.store.Exists(ctx, revokedTokenKey(tokenString))
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}
