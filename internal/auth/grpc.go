package auth

import (
	"context"
	"strings"

	"foodDelivery/repository"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewUnaryAuthInterceptor returns a gRPC unary interceptor that validates the Bearer
// session token from incoming metadata and injects the Principal into the context.
// Methods listed in allowUnauthenticated bypass authentication; a valid token sent
// to such a method still yields a principal.
func NewUnaryAuthInterceptor(sessions *Sessions, allowUnauthenticated ...string) grpc.UnaryServerInterceptor {
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, m := range allowUnauthenticated {
		allow[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		p, err := sessions.VerifyFromMD(ctx)
		if _, ok := allow[info.FullMethod]; ok {
			if err == nil {
				ctx = WithPrincipal(ctx, p)
			}
			return handler(ctx, req)
		}
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "auth error: %v", err)
		}
		return handler(WithPrincipal(ctx, p), req)
	}
}

// RequirePrincipal ensures a principal is present in context.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing principal")
	}
	return p, nil
}

// RequireKind ensures the principal has the given kind (lowercased compare).
func RequireKind(ctx context.Context, kind string) (*Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.Kind != strings.ToLower(kind) {
		return nil, status.Errorf(codes.PermissionDenied, "only %s can perform this action", strings.ToLower(kind))
	}
	return p, nil
}

// RequireAdmin ensures the caller is an admin principal AND that the admin row
// still exists. A token outliving its account is rejected.
func RequireAdmin(ctx context.Context, admins repository.AdminRepositoryI) (*Principal, error) {
	p, err := RequireKind(ctx, KindAdmin)
	if err != nil {
		return nil, err
	}
	if admins == nil {
		return nil, status.Error(codes.Internal, "admins repository not configured")
	}
	a, err := admins.GetByID(ctx, p.ID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get admin: %v", err)
	}
	if a == nil {
		return nil, status.Error(codes.PermissionDenied, "only admin can perform this action")
	}
	return p, nil
}
