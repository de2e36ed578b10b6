package handler

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/authsession/internal/logger"
)

// RevocationService revokes access tokens.
type RevocationService interface {
	Revoke(ctx context.Context, tokenString string) error
}

// PasswordResetGenerator issues password reset tokens.
type PasswordResetGenerator interface {
	Generate(ctx context.Context, email string) (string, error)
}

// Admin handles gRPC endpoints of the authsession.v1.Admin service. Role checks run in
// the authorization interceptor.
type Admin struct {
	sessionService    SessionService
	revocationService RevocationService
	resetService      PasswordResetGenerator
	contextManager    ContextManager
	logger            *logger.Logger
}

var _ AdminServer = (*Admin)(nil)

// NewAdmin creates a new Admin handler.
func NewAdmin(
	sessionService SessionService,
	revocationService RevocationService,
	resetService PasswordResetGenerator,
	contextManager ContextManager,
	logger *logger.Logger,
) *Admin {
	return &Admin{
		sessionService:    sessionService,
		revocationService: revocationService,
		resetService:      resetService,
		contextManager:    contextManager,
		logger:            logger,
	}
}

// TerminateUserSessions ends every session of the given user.
func (h *Admin) TerminateUserSessions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw, err := requireString(in, "user_id")
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "user_id must be a UUID")
	}

	count, err := h.sessionService.TerminateAll(ctx, userID)
	if err != nil {
		h.logger.Error("Admin handler: terminate user sessions failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	actor, _ := h.contextManager.GetUserIDFromContext(ctx)
	h.logger.Info("Admin handler: user sessions terminated",
		"actor", actor,
		"user_id", userID,
		"count", count)

	return newStruct(map[string]any{"terminated": float64(count)})
}

// RevokeToken adds an access token to the revocation registry.
func (h *Admin) RevokeToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tokenString, err := requireString(in, "token")
	if err != nil {
		return nil, err
	}

	if err := h.revocationService.Revoke(ctx, tokenString); err != nil {
		h.logger.Info("Admin handler: revoke failed", "error", err.Error())
		return nil, handleError(err)
	}

	return newStruct(nil)
}

// GeneratePasswordReset issues a reset token for email. Delivery is up to the caller.
func (h *Admin) GeneratePasswordReset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	email, err := requireString(in, "email")
	if err != nil {
		return nil, err
	}

	resetToken, err := h.resetService.Generate(ctx, email)
	if err != nil {
		return nil, handleError(err)
	}

	return newStruct(map[string]any{"token": resetToken})
}
