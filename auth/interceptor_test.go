package auth

import (
	"collab-engine/domain"
	"collab-engine/errors"
	"collab-engine/mocks"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	privateMethod = "/collab.v1.CollaborationService/Edit"
	publicMethod  = "/grpc.health.v1.Health/Check"
)

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestInterceptors_Unary(t *testing.T) {
	tests := []struct {
		name         string
		method       string
		md           metadata.MD
		setup        func(v *mocks.MockAuthVerifier)
		expectedCode codes.Code
		expectedUser string
	}{
		{
			name:   "Valid bearer token",
			method: privateMethod,
			md:     metadata.Pairs("authorization", "Bearer good"),
			setup: func(v *mocks.MockAuthVerifier) {
				v.EXPECT().Verify(gomock.Any(), "good").
					Return(domain.Identity{UserID: "u1", Role: domain.RoleEditor}, nil)
			},
			expectedCode: codes.OK,
			expectedUser: "u1",
		},
		{
			name:   "Rejected token",
			method: privateMethod,
			md:     metadata.Pairs("authorization", "Bearer bad"),
			setup: func(v *mocks.MockAuthVerifier) {
				v.EXPECT().Verify(gomock.Any(), "bad").
					Return(domain.Identity{}, fmt.Errorf("%w: expired", errors.ErrUnauthenticated))
			},
			expectedCode: codes.Unauthenticated,
		},
		{
			name:         "Missing header",
			method:       privateMethod,
			md:           metadata.Pairs("x-other", "1"),
			expectedCode: codes.Unauthenticated,
		},
		{
			name:         "Missing metadata",
			method:       privateMethod,
			expectedCode: codes.Unauthenticated,
		},
		{
			name:         "Public method skips authentication",
			method:       publicMethod,
			expectedCode: codes.OK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			verifier := mocks.NewMockAuthVerifier(ctrl)
			if tt.setup != nil {
				tt.setup(verifier)
			}
			interceptor := NewInterceptors(verifier, publicMethod).Unary()

			ctx := context.Background()
			if tt.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tt.md)
			}
			var seen domain.Identity
			handler := func(ctx context.Context, _ any) (any, error) {
				seen, _ = IdentityFromContext(ctx)
				return "ok", nil
			}

			_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tt.method}, handler)

			req.Equal(tt.expectedCode, status.Code(err))
			req.Equal(tt.expectedUser, seen.UserID)
		})
	}
}

func TestInterceptors_StreamPropagatesIdentity(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockAuthVerifier(ctrl)
	verifier.EXPECT().Verify(gomock.Any(), "good").
		Return(domain.Identity{UserID: "u2", Role: domain.RoleViewer}, nil)
	interceptor := NewInterceptors(verifier).Stream()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer good"))
	var seen domain.Identity
	handler := func(_ any, ss grpc.ServerStream) error {
		seen, _ = IdentityFromContext(ss.Context())
		return nil
	}

	err := interceptor(nil, &fakeStream{ctx: ctx}, &grpc.StreamServerInfo{FullMethod: "/collab.v1.CollaborationService/Subscribe"}, handler)

	req.NoError(err)
	req.Equal(domain.Identity{UserID: "u2", Role: domain.RoleViewer}, seen)
}

func TestInterceptors_StreamRejectsMissingToken(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	interceptor := NewInterceptors(mocks.NewMockAuthVerifier(ctrl)).Stream()

	called := false
	handler := func(_ any, _ grpc.ServerStream) error {
		called = true
		return nil
	}

	err := interceptor(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{FullMethod: "/x/Y"}, handler)

	req.Equal(codes.Unauthenticated, status.Code(err))
	req.False(called)
}
