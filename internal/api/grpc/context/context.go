package context

import (
	"context"

	"github.com/google/uuid"

	"github.com/dtroode/authsession/internal/token"
)

type claimsKey struct{}

type bearerKey struct{}

// Manager stores the verified caller of a gRPC call in its context.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetClaimsToContext returns a context carrying the verified access token and its claims.
func (m *Manager) SetClaimsToContext(ctx context.Context, bearer string, claims token.AccessClaims) context.Context {
	ctx = context.WithValue(ctx, bearerKey{}, bearer)
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaimsFromContext returns the claims stored by SetClaimsToContext.
func (m *Manager) GetClaimsFromContext(ctx context.Context) (token.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(token.AccessClaims)
	return claims, ok
}

// GetTokenFromContext returns the verified access token of the call.
func (m *Manager) GetTokenFromContext(ctx context.Context) (string, bool) {
	bearer, ok := ctx.Value(bearerKey{}).(string)
	return bearer, ok && bearer != ""
}

// GetUserIDFromContext returns the id of the authenticated user.
func (m *Manager) GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := m.GetClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}

	userID, err := claims.UserID()
	if err != nil {
		return uuid.Nil, false
	}

	return userID, true
}
