package auth

import (
	"collab-engine/contract"
	"collab-engine/domain"
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the resolved caller in ctx.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller resolved by the interceptors.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok
}

// Interceptors authenticates gRPC calls with an AuthVerifier.
// Methods listed as public skip authentication.
type Interceptors struct {
	verifier      contract.AuthVerifier
	publicMethods map[string]struct{}
}

func NewInterceptors(verifier contract.AuthVerifier, publicMethods ...string) *Interceptors {
	public := make(map[string]struct{}, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = struct{}{}
	}
	return &Interceptors{verifier: verifier, publicMethods: public}
}

func (i *Interceptors) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if i.isPublic(info.FullMethod) {
			return handler(ctx, req)
		}
		authCtx, err := i.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return handler(authCtx, req)
	}
}

func (i *Interceptors) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if i.isPublic(info.FullMethod) {
			return handler(srv, ss)
		}
		authCtx, err := i.authenticate(ss.Context())
		if err != nil {
			return err
		}
		return handler(srv, &authenticatedStream{ServerStream: ss, ctx: authCtx})
	}
}

// authenticate reads "authorization: Bearer <token>" from the metadata.
func (i *Interceptors) authenticate(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "metadata is missing")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "authorization token is missing")
	}
	tokenStr := strings.TrimPrefix(values[0], "Bearer ")

	id, err := i.verifier.Verify(ctx, tokenStr)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
	}
	return WithIdentity(ctx, id), nil
}

func (i *Interceptors) isPublic(method string) bool {
	_, ok := i.publicMethods[method]
	return ok
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authenticatedStream) Context() context.Context { return s.ctx }
