// Package collabv1 declares the collab.v1.CollaborationService gRPC service.
// Every message is a google.protobuf.Struct whose fields follow the
// document shapes of package codec.
package collabv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "collab.v1.CollaborationService"

const (
	CreateSessionMethod     = "CreateSession"
	JoinMethod              = "Join"
	GetSessionMethod        = "GetSession"
	ListSessionsMethod      = "ListSessions"
	EndSessionMethod        = "EndSession"
	AddParticipantMethod    = "AddParticipant"
	RemoveParticipantMethod = "RemoveParticipant"
	AssignRoleMethod        = "AssignRole"
	ListParticipantsMethod  = "ListParticipants"
	AcquireLockMethod       = "AcquireLock"
	ReleaseLockMethod       = "ReleaseLock"
	ListLocksMethod         = "ListLocks"
	EditMethod              = "Edit"
	ListEventsMethod        = "ListEvents"
	SearchEventsMethod      = "SearchEvents"
	MetricsMethod           = "Metrics"
	ResetMetricsMethod      = "ResetMetrics"
	SessionDurationMethod   = "SessionDuration"
	AuditTailMethod         = "AuditTail"
	SubscribeMethod         = "Subscribe"
)

// FullMethod returns the "/service/method" path used by interceptors.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type CollaborationServiceServer interface {
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Join(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSessions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddParticipant(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveParticipant(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AssignRole(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListParticipants(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AcquireLock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReleaseLock(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLocks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Edit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Metrics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetMetrics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SessionDuration(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AuditTail(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Subscribe(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

type unaryCall func(CollaborationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CollaborationServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CollaborationServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(CollaborationServiceServer).Subscribe(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CollaborationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(CreateSessionMethod, CollaborationServiceServer.CreateSession),
		unary(JoinMethod, CollaborationServiceServer.Join),
		unary(GetSessionMethod, CollaborationServiceServer.GetSession),
		unary(ListSessionsMethod, CollaborationServiceServer.ListSessions),
		unary(EndSessionMethod, CollaborationServiceServer.EndSession),
		unary(AddParticipantMethod, CollaborationServiceServer.AddParticipant),
		unary(RemoveParticipantMethod, CollaborationServiceServer.RemoveParticipant),
		unary(AssignRoleMethod, CollaborationServiceServer.AssignRole),
		unary(ListParticipantsMethod, CollaborationServiceServer.ListParticipants),
		unary(AcquireLockMethod, CollaborationServiceServer.AcquireLock),
		unary(ReleaseLockMethod, CollaborationServiceServer.ReleaseLock),
		unary(ListLocksMethod, CollaborationServiceServer.ListLocks),
		unary(EditMethod, CollaborationServiceServer.Edit),
		unary(ListEventsMethod, CollaborationServiceServer.ListEvents),
		unary(SearchEventsMethod, CollaborationServiceServer.SearchEvents),
		unary(MetricsMethod, CollaborationServiceServer.Metrics),
		unary(ResetMetricsMethod, CollaborationServiceServer.ResetMetrics),
		unary(SessionDurationMethod, CollaborationServiceServer.SessionDuration),
		unary(AuditTailMethod, CollaborationServiceServer.AuditTail),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    SubscribeMethod,
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "collab/v1/collab.proto",
}

func RegisterCollaborationServiceServer(s grpc.ServiceRegistrar, srv CollaborationServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// CollaborationServiceClient issues raw Struct calls; package client wraps
// it with domain types.
type CollaborationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCollaborationServiceClient(cc grpc.ClientConnInterface) *CollaborationServiceClient {
	return &CollaborationServiceClient{cc: cc}
}

func (c *CollaborationServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CollaborationServiceClient) Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], FullMethod(SubscribeMethod), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
