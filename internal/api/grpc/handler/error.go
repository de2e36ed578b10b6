package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authsession/internal/model"
)

// handleError maps service errors onto gRPC statuses. Authentication and session
// failures collapse into one Unauthenticated status.
func handleError(err error) error {
	if _, ok := status.FromError(err); ok && err != nil {
		return err
	}

	switch {
	case errors.Is(err, model.ErrAuthentication),
		errors.Is(err, model.ErrSession),
		errors.Is(err, model.ErrMalformedToken):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, model.ErrAuthorization):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, model.ErrStorage):
		return status.Error(codes.Unavailable, "service unavailable")
	case errors.Is(err, model.ErrResetTokenInvalid):
		return status.Error(codes.NotFound, "password reset token invalid or used")
	case errors.Is(err, model.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
