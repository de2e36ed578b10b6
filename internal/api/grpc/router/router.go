package router

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcContext "github.com/dtroode/authsession/internal/api/grpc/context"
	"github.com/dtroode/authsession/internal/api/grpc/handler"
	"github.com/dtroode/authsession/internal/api/grpc/middleware"
	"github.com/dtroode/authsession/internal/logger"
	"github.com/dtroode/authsession/internal/model"
	"github.com/dtroode/authsession/internal/service"
)

// Services groups the lifecycle services exposed over gRPC.
type Services struct {
	Auth          *service.Auth
	Refresh       *service.RefreshRotator
	Sessions      *service.SessionManager
	Validator     *service.TokenValidator
	Revocations   *service.RevocationRegistry
	PasswordReset *service.PasswordResetTokenManager
}

// Router builds the gRPC server with its interceptor chain and service registrations.
type Router struct {
	services       Services
	contextManager *grpcContext.Manager
	upstreamSecret string
	health         *health.Server
	logger         *logger.Logger
}

// New creates new gRPC Router instance. upstreamSecret gates the login method; when
// it is empty logins over gRPC are disabled.
func New(services Services, contextManager *grpcContext.Manager, upstreamSecret string, logger *logger.Logger) *Router {
	return &Router{
		services:       services,
		contextManager: contextManager,
		upstreamSecret: upstreamSecret,
		health:         health.NewServer(),
		logger:         logger,
	}
}

// methodRoles lists the minimum role per authenticated method. Methods missing here
// only need a valid access token.
var methodRoles = map[string]model.Role{
	handler.AuthIntrospectMethod:     model.RoleGuest,
	handler.AuthLogoutMethod:         model.RoleGuest,
	handler.AuthLogoutAllMethod:      model.RoleGuest,
	handler.AuthListSessionsMethod:   model.RoleGuest,
	handler.AuthExtendSessionMethod:  model.RoleGuest,
	handler.AdminTerminateMethod:     model.RoleModerator,
	handler.AdminRevokeTokenMethod:   model.RoleAdmin,
	handler.AdminGenerateResetMethod: model.RoleAdmin,
}

var publicPrefixes = []string{
	"/" + handler.ResetServiceName + "/",
	"/grpc.health.",
	"/grpc.reflection.",
}

// requiresAuth reports whether the call must carry a valid access token.
func requiresAuth(_ context.Context, c interceptors.CallMeta) bool {
	method := c.FullMethod()
	if method == handler.AuthRefreshMethod || method == handler.AuthLoginMethod {
		return false
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(method, prefix) {
			return false
		}
	}
	return true
}

// requiresUpstream reports whether the call may only come from a trusted upstream service.
func requiresUpstream(_ context.Context, c interceptors.CallMeta) bool {
	return c.FullMethod() == handler.AuthLoginMethod
}

// Register registers all gRPC services and middleware.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.services.Validator, r.contextManager, r.logger)
	authorize := middleware.NewAuthorize(methodRoles, r.contextManager, r.logger)
	upstream := middleware.NewUpstream(r.upstreamSecret, r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(upstream.AuthFunc),
				selector.MatchFunc(requiresUpstream),
			),
			authorize.HandleGRPC,
		),
		grpc.ChainStreamInterceptor(
			selector.StreamServerInterceptor(
				auth.StreamServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(requiresAuth),
			),
			authorize.HandleStream,
		),
	)

	r.registerAuthRoutes(s)
	r.registerAdminRoutes(s)
	r.registerPasswordResetRoutes(s)

	healthpb.RegisterHealthServer(s, r.health)
	r.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(s)

	return s
}

// Shutdown reports NOT_SERVING to health checks ahead of a graceful stop.
func (r *Router) Shutdown() {
	r.health.Shutdown()
}

func (r *Router) registerAuthRoutes(server *grpc.Server) {
	authHandler := handler.NewAuth(
		r.services.Auth,
		r.services.Refresh,
		r.services.Sessions,
		r.contextManager,
		r.logger,
	)
	server.RegisterService(&handler.AuthServiceDesc, authHandler)
}

func (r *Router) registerAdminRoutes(server *grpc.Server) {
	adminHandler := handler.NewAdmin(
		r.services.Sessions,
		r.services.Revocations,
		r.services.PasswordReset,
		r.contextManager,
		r.logger,
	)
	server.RegisterService(&handler.AdminServiceDesc, adminHandler)
}

func (r *Router) registerPasswordResetRoutes(server *grpc.Server) {
	resetHandler := handler.NewPasswordReset(r.services.PasswordReset, r.logger)
	server.RegisterService(&handler.PasswordResetServiceDesc, resetHandler)
}
