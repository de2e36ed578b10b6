package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/model"
)

// PasswordResetService verifies and consumes password reset tokens.
type PasswordResetService interface {
	Verify(ctx context.Context, resetToken string) (model.PasswordResetToken, error)
	Consume(ctx context.Context, resetToken string) (bool, error)
}

// PasswordReset handles gRPC endpoints of the authsession.v1.PasswordReset service.
type PasswordReset struct {
	resetService PasswordResetService
	logger       *logger.Logger
}

var _ PasswordResetServer = (*PasswordReset)(nil)

func NewPasswordReset(resetService PasswordResetService, logger *logger.Logger) *PasswordReset {
	return &PasswordReset{resetService: resetService, logger: logger}
}

func (h *PasswordReset) Verify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	resetToken, err := requireString(in, "token")
	if err != nil {
		return nil, err
	}

	record, err := h.resetService.Verify(ctx, resetToken)
	if err != nil {
		return nil, handleError(err)
	}

	return newStruct(map[string]any{
		"email":      record.Email,
		"created_at": formatTime(record.CreatedAt),
	})
}

func (h *PasswordReset) Consume(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	resetToken, err := requireString(in, "token")
	if err != nil {
		return nil, err
	}

	consumed, err := h.resetService.Consume(ctx, resetToken)
	if err != nil {
		h.logger.Error("Password reset handler: consume failed", "error", err.Error())
		return nil, handleError(err)
	}

	return newStruct(map[string]any{"consumed": consumed})
}
