package middleware

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/rbac"
	"github.com/dtroode/authsession/internal/token"
)

// ClaimsReader returns the claims stored by the authentication interceptor.
type ClaimsReader interface {
	GetClaimsFromContext(ctx context.Context) (token.AccessClaims, bool)
}

// Authorize enforces the minimum role of each method. Methods without an entry are
// not restricted. It must run after Authenticate.
type Authorize struct {
	roles          map[string]model.Role
	contextManager ClaimsReader
	logger         *logger.Logger
}

// NewAuthorize creates an Authorize middleware for the method to minimum role table.
func NewAuthorize(roles map[string]model.Role, contextManager ClaimsReader, logger *logger.Logger) *Authorize {
	return &Authorize{roles: roles, contextManager: contextManager, logger: logger}
}

// HandleGRPC is the unary interceptor.
func (a *Authorize) HandleGRPC(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if err := a.check(ctx, info.FullMethod); err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

// HandleStream is the stream interceptor.
func (a *Authorize) HandleStream(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if err := a.check(ss.Context(), info.FullMethod); err != nil {
		return err
	}
	return handler(srv, ss)
}

func (a *Authorize) check(ctx context.Context, method string) error {
	required, ok := a.roles[method]
	if !ok {
		return nil
	}

	claims, ok := a.contextManager.GetClaimsFromContext(ctx)
	if !ok {
		return errUnauthenticated
	}

	if err := rbac.Require(required, claims.Role); err != nil {
		a.logger.Info("Authorize middleware: permission denied",
			"method", method,
			"user_id", claims.Subject,
			"role", claims.Role,
			"required", required)
		return status.Error(codes.PermissionDenied, err.Error())
	}

	return nil
}
