package handler

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/service"
	"github.com/dtroode/authsession/internal/token"
)

// AuthService defines login and logout operations.
type AuthService interface {
	Login(ctx context.Context, userID uuid.UUID, meta model.ClientMetadata, mfaVerified bool) (service.LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) (int, error)
}

// RefreshService exchanges refresh tokens for access tokens.
type RefreshService interface {
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
}

// SessionService defines session operations available to callers.
type SessionService interface {
	List(ctx context.Context, userID uuid.UUID) ([]model.Session, error)
	Extend(ctx context.Context, id string, d time.Duration) (model.Session, error)
	TerminateAll(ctx context.Context, userID uuid.UUID) (int, error)
}

// ContextManager reads the verified caller from a call context.
type ContextManager interface {
	GetClaimsFromContext(ctx context.Context) (token.AccessClaims, bool)
	GetTokenFromContext(ctx context.Context) (string, bool)
	GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool)
}

const maxExtendHours = 24 * 30

// Auth handles gRPC endpoints of the authsession.v1.Auth service.
type Auth struct {
	authService    AuthService
	refreshService RefreshService
	sessionService SessionService
	contextManager ContextManager
	logger         *logger.Logger
}

var _ AuthServer = (*Auth)(nil)

// NewAuth creates a new Auth handler.
func NewAuth(
	authService AuthService,
	refreshService RefreshService,
	sessionService SessionService,
	contextManager ContextManager,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		authService:    authService,
		refreshService: refreshService,
		sessionService: sessionService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Login opens a session for a user whose credentials an upstream service already
// checked. Client details sent in the request win over the ones of the calling peer,
// since the peer is usually the upstream service itself.
func (h *Auth) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	rawID, err := requireString(in, "user_id")
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "user_id must be a UUID")
	}

	meta := clientMetadata(ctx, in)
	result, err := h.authService.Login(ctx, userID, meta, in.GetFields()["mfa_verified"].GetBoolValue())
	if err != nil {
		h.logger.Info("Auth handler: login failed",
			"user_id", userID,
			"ip_address", meta.IPAddress,
			"error", err.Error())
		return nil, handleError(err)
	}

	return newStruct(map[string]any{
		"access_token":  result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"token_type":    "bearer",
		"session_id":    result.Session.ID,
		"expires_at":    formatTime(result.Session.ExpiresAt),
	})
}

func clientMetadata(ctx context.Context, in *structpb.Struct) model.ClientMetadata {
	meta := model.ClientMetadata{
		IPAddress: stringField(in, "ip_address"),
		UserAgent: stringField(in, "user_agent"),
	}

	if meta.IPAddress == "" {
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			meta.IPAddress = p.Addr.String()
			if host, _, err := net.SplitHostPort(meta.IPAddress); err == nil {
				meta.IPAddress = host
			}
		}
	}
	if meta.UserAgent == "" {
		if values := metadata.ValueFromIncomingContext(ctx, "user-agent"); len(values) > 0 {
			meta.UserAgent = values[0]
		}
	}

	if device := in.GetFields()["device"].GetStructValue(); device != nil {
		meta.Device = make(map[string]string, len(device.GetFields()))
		for k, v := range device.GetFields() {
			if s := v.GetStringValue(); s != "" {
				meta.Device[k] = s
			}
		}
	}

	return meta
}

// Refresh exchanges a refresh token for a new access token.
func (h *Auth) Refresh(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	refreshToken, err := requireString(in, "refresh_token")
	if err != nil {
		return nil, err
	}

	pair, err := h.refreshService.Refresh(ctx, refreshToken)
	if err != nil {
		h.logger.Info("Auth handler: token refresh failed", "error", err.Error())
		return nil, handleError(err)
	}

	return newStruct(map[string]any{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "bearer",
	})
}

// Introspect returns the claims of the caller's access token.
func (h *Auth) Introspect(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	claims, ok := h.contextManager.GetClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	return newStruct(map[string]any{
		"sub":           claims.Subject,
		"email":         claims.Email,
		"username":      claims.Username,
		"role":          string(claims.Role),
		"status":        string(claims.Status),
		"session_id":    claims.SessionID,
		"mfa_verified":  claims.MFAVerified,
		"auth_provider": claims.AuthProvider,
		"jti":           claims.ID,
		"exp":           formatTime(claims.Expiry()),
	})
}

// Logout revokes the caller's access token and ends its session.
func (h *Auth) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	bearer, ok := h.contextManager.GetTokenFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	if err := h.authService.Logout(ctx, bearer); err != nil {
		h.logger.Error("Auth handler: logout failed", "error", err.Error())
		return nil, handleError(err)
	}

	return newStruct(nil)
}

// LogoutAll ends every session of the caller.
func (h *Auth) LogoutAll(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := h.contextManager.GetUserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	count, err := h.authService.LogoutAll(ctx, userID)
	if err != nil {
		h.logger.Error("Auth handler: logout all failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return newStruct(map[string]any{"terminated": float64(count)})
}

// ListSessions returns the caller's live sessions.
func (h *Auth) ListSessions(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	claims, ok := h.contextManager.GetClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	userID, ok := h.contextManager.GetUserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	sessions, err := h.sessionService.List(ctx, userID)
	if err != nil {
		return nil, handleError(err)
	}

	items := make([]any, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, map[string]any{
			"session_id": s.ID,
			"ip_address": s.IPAddress,
			"user_agent": s.UserAgent,
			"created_at": formatTime(s.CreatedAt),
			"expires_at": formatTime(s.ExpiresAt),
			"current":    s.ID == claims.SessionID,
		})
	}

	return newStruct(map[string]any{"sessions": items})
}

// ExtendSession pushes the expiry of the caller's session to the given number of hours
// from now.
func (h *Auth) ExtendSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	claims, ok := h.contextManager.GetClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}

	hours := numberField(in, "hours")
	if hours <= 0 || hours > maxExtendHours {
		return nil, status.Errorf(codes.InvalidArgument, "hours must be in (0, %d]", maxExtendHours)
	}

	session, err := h.sessionService.Extend(ctx, claims.SessionID, time.Duration(hours*float64(time.Hour)))
	if err != nil {
		return nil, handleError(err)
	}

	return newStruct(map[string]any{
		"session_id": session.ID,
		"expires_at": formatTime(session.ExpiresAt),
	})
}
