package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names. Requests and responses are google.protobuf.Struct
// messages so clients only need the well-known types.
const (
	AuthServiceName          = "authsession.v1.Auth"
	AuthLoginMethod          = "/authsession.v1.Auth/Login"
	AuthRefreshMethod        = "/authsession.v1.Auth/Refresh"
	AuthIntrospectMethod     = "/authsession.v1.Auth/Introspect"
	AuthLogoutMethod         = "/authsession.v1.Auth/Logout"
	AuthLogoutAllMethod      = "/authsession.v1.Auth/LogoutAll"
	AuthListSessionsMethod   = "/authsession.v1.Auth/ListSessions"
	AuthExtendSessionMethod  = "/authsession.v1.Auth/ExtendSession"
	AdminServiceName         = "authsession.v1.Admin"
	AdminTerminateMethod     = "/authsession.v1.Admin/TerminateUserSessions"
	AdminRevokeTokenMethod   = "/authsession.v1.Admin/RevokeToken"
	AdminGenerateResetMethod = "/authsession.v1.Admin/GeneratePasswordReset"
	ResetServiceName         = "authsession.v1.PasswordReset"
	ResetVerifyMethod        = "/authsession.v1.PasswordReset/Verify"
	ResetConsumeMethod       = "/authsession.v1.PasswordReset/Consume"
)

// AuthServer is the server API of the authsession.v1.Auth service.
type AuthServer interface {
	Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Refresh(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Introspect(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Logout(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	LogoutAll(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListSessions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ExtendSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// AdminServer is the server API of the authsession.v1.Admin service.
type AdminServer interface {
	TerminateUserSessions(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RevokeToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GeneratePasswordReset(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// PasswordResetServer is the server API of the authsession.v1.PasswordReset service.
type PasswordResetServer interface {
	Verify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	Consume(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: structHandler(AuthLoginMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(AuthServer).Login(ctx, in)
		})},
		{MethodName: "Refresh", Handler: structHandler(AuthRefreshMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(AuthServer).Refresh(ctx, in)
		})},
		{MethodName: "Introspect", Handler: structHandler(AuthIntrospectMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(AuthServer).Introspect(ctx, in)
		})},
		{MethodName: "Logout", Handler: structHandler(AuthLogoutMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(AuthServer).Logout(ctx, in)
		})},
		{MethodName: "LogoutAll", Handler: structHandler(AuthLogoutAllMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(AuthServer).LogoutAll(ctx, in)
		})},
		{MethodName: "ListSessions", Handler: structHandler(AuthListSessionsMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(AuthServer).ListSessions(ctx, in)
		})},
		{MethodName: "ExtendSession", Handler: structHandler(AuthExtendSessionMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(AuthServer).ExtendSession(ctx, in)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authsession/v1/auth.proto",
}

var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TerminateUserSessions", Handler: structHandler(AdminTerminateMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(AdminServer).TerminateUserSessions(ctx, in)
		})},
		{MethodName: "RevokeToken", Handler: structHandler(AdminRevokeTokenMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(AdminServer).RevokeToken(ctx, in)
		})},
		{MethodName: "GeneratePasswordReset", Handler: structHandler(AdminGenerateResetMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(AdminServer).GeneratePasswordReset(ctx, in)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authsession/v1/admin.proto",
}

var PasswordResetServiceDesc = grpc.ServiceDesc{
	ServiceName: ResetServiceName,
	HandlerType: (*PasswordResetServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Verify", Handler: structHandler(ResetVerifyMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(PasswordResetServer).Verify(ctx, in)
		})},
		{MethodName: "Consume", Handler: structHandler(ResetConsumeMethod, func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
			return srv.(PasswordResetServer).Consume(ctx, in)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authsession/v1/password_reset.proto",
}

type structMethod func(srv any, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// structHandler adapts a Struct to Struct method to grpc.MethodHandler the same way
// protoc-gen-go-grpc output does.
func structHandler(fullMethod string, call structMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
