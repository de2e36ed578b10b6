package middleware

import (
	"context"
	"errors"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/token"
)

// TokenValidator verifies bearer access tokens.
type TokenValidator interface {
	Verify(ctx context.Context, tokenString string) (token.AccessClaims, error)
}

// ClaimsWriter stores verified claims in a call context.
type ClaimsWriter interface {
	SetClaimsToContext(ctx context.Context, bearer string, claims token.AccessClaims) context.Context
}

// Authenticate validates bearer tokens and injects the caller's claims into context.
// Every rejected token yields the same Unauthenticated status so callers cannot tell
// expired, revoked and forged tokens apart.
type Authenticate struct {
	validator      TokenValidator
	contextManager ClaimsWriter
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(validator TokenValidator, contextManager ClaimsWriter, logger *logger.Logger) *Authenticate {
	return &Authenticate{validator: validator, contextManager: contextManager, logger: logger}
}

var (
	errUnauthenticated = status.Error(codes.Unauthenticated, "unauthenticated")
	errUnavailable     = status.Error(codes.Unavailable, "service unavailable")
)

// AuthFunc reads the bearer token from the authorization header, verifies it and
// returns a context with the caller's claims.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	bearer, err := auth.AuthFromMD(ctx, "bearer")
	if err != nil {
		return nil, errUnauthenticated
	}

	claims, err := m.validator.Verify(ctx, bearer)
	if err != nil {
		if errors.Is(err, model.ErrStorage) {
			m.logger.Error("Authenticate middleware: token check unavailable", "error", err.Error())
			return nil, errUnavailable
		}
		m.logger.Debug("Authenticate middleware: token rejected", "reason", err.Error())
		return nil, errUnauthenticated
	}

	return m.contextManager.SetClaimsToContext(ctx, bearer, claims), nil
}
