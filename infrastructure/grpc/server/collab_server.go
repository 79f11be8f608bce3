package server

import (
	"collab-engine/contract"
	"collab-engine/domain"
	"collab-engine/domain/event"
	"collab-engine/errors"
	"collab-engine/infrastructure/codec"
	pb "collab-engine/infrastructure/grpc/collabv1"
	"collab-engine/services"
	"collab-engine/sink"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// CollabServer exposes the collaboration service over gRPC.
type CollabServer struct {
	log                  *slog.Logger
	service              services.ICollabService
	connectionBufferSize int
	deliveryTimeout      time.Duration
}

var _ pb.CollaborationServiceServer = (*CollabServer)(nil)

func NewCollabServer(log *slog.Logger, service services.ICollabService,
	connectionBufferSize int, deliveryTimeout time.Duration) *CollabServer {
	return &CollabServer{
		log:                  log,
		service:              service,
		connectionBufferSize: connectionBufferSize,
		deliveryTimeout:      deliveryTimeout,
	}
}

func (s *CollabServer) CreateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := req.AsMap()
	session, err := s.service.CreateSession(ctx, domain.CreateSessionCommand{FileID: codec.String(in["fileId"])})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(codec.FromSession(session))
}

func (s *CollabServer) Join(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := req.AsMap()
	session, err := s.service.Join(ctx, domain.JoinCommand{
		FileID: codec.String(in["fileId"]),
		UserID: codec.String(in["userId"]),
		Role:   domain.Role(codec.String(in["role"])),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(codec.FromSession(session))
}

func (s *CollabServer) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	session, err := s.service.GetSession(ctx, codec.String(req.AsMap()["sessionId"]))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(codec.FromSession(session))
}

func (s *CollabServer) ListSessions(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sessions := s.service.ListSessions()
	return reply(map[string]any{
		"sessions": lo.Map(sessions, func(item domain.Session, _ int) any { return codec.FromSession(item) }),
	})
}

func (s *CollabServer) EndSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.service.EndSession(ctx, codec.String(req.AsMap()["sessionId"])); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(map[string]any{"success": true})
}

func (s *CollabServer) AddParticipant(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.service.AddParticipant(ctx, participantCommand(req)); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(map[string]any{"success": true})
}

func (s *CollabServer) RemoveParticipant(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.service.RemoveParticipant(ctx, participantCommand(req)); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(map[string]any{"success": true})
}

func (s *CollabServer) AssignRole(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := req.AsMap()
	err := s.service.AssignRole(ctx, domain.RoleCommand{
		SessionID: codec.String(in["sessionId"]),
		UserID:    codec.String(in["userId"]),
		Role:      domain.Role(codec.String(in["role"])),
	})
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(map[string]any{"success": true})
}

func (s *CollabServer) ListParticipants(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	participants := s.service.ListParticipants(codec.String(req.AsMap()["sessionId"]))
	return reply(map[string]any{
		"participants": lo.Map(participants, func(item domain.Participant, _ int) any { return codec.FromParticipant(item) }),
	})
}

func (s *CollabServer) AcquireLock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	lock, err := s.service.AcquireLock(ctx, lockCommand(req))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(codec.FromLock(lock))
}

func (s *CollabServer) ReleaseLock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.service.ReleaseLock(ctx, lockCommand(req)); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(map[string]any{"success": true})
}

func (s *CollabServer) ListLocks(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := req.AsMap()
	return reply(codec.FromLockPage(s.service.ListLocks(codec.Int(in["page"]), codec.Int(in["limit"]))))
}

func (s *CollabServer) Edit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := req.AsMap()
	cmd := domain.EditCommand{
		SessionID: codec.String(in["sessionId"]),
		UserID:    codec.String(in["userId"]),
	}
	// Absent documents stay nil so validation rejects them.
	if base, ok := in["base"].(map[string]any); ok {
		cmd.Base = base
	}
	if changes, ok := in["changes"].(map[string]any); ok {
		cmd.Changes = changes
	}
	result, err := s.service.Edit(ctx, cmd)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(codec.FromEditResult(result))
}

func (s *CollabServer) ListEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	events, err := s.service.ListEvents(ctx, codec.String(req.AsMap()["sessionId"]))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(map[string]any{"events": lo.Map(events, func(e event.Event, _ int) any { return codec.FromEvent(e) })})
}

func (s *CollabServer) SearchEvents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in := req.AsMap()
	hits, err := s.service.SearchEvents(ctx, codec.String(in["query"]), codec.Int(in["limit"]))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(map[string]any{"hits": lo.Map(hits, func(h contract.SearchHit, _ int) any { return codec.FromSearchHit(h) })})
}

func (s *CollabServer) Metrics(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return reply(codec.FromMetrics(s.service.Metrics()))
}

func (s *CollabServer) ResetMetrics(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.service.ResetMetrics(ctx); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(map[string]any{"success": true})
}

func (s *CollabServer) SessionDuration(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sessionID := codec.String(req.AsMap()["sessionId"])
	d, err := s.service.SessionDuration(ctx, sessionID)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(map[string]any{"sessionId": sessionID, "durationMs": float64(d.Milliseconds())})
}

func (s *CollabServer) AuditTail(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	lines, err := s.service.AuditTail(codec.Int(req.AsMap()["limit"]))
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return reply(map[string]any{"lines": codec.Strings(lines)})
}

// Subscribe streams the events of one session until the client goes away.
// A dedicated GrpcSink is registered on the hub and removed on return.
func (s *CollabServer) Subscribe(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	sessionID := codec.String(req.AsMap()["sessionId"])
	subscriberID := uuid.NewString()
	client := sink.NewGrpcSink(s.log, s.connectionBufferSize, s.deliveryTimeout)

	if err := s.service.Subscribe(ctx, subscriberID, sessionID, client); err != nil {
		return errors.MapToGRPCError(err)
	}
	defer s.service.Unsubscribe(subscriberID, sessionID)

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("Client disconnected", "session_id", sessionID, "subscriber_id", subscriberID)
			return nil
		case e := <-client.Events:
			msg, err := codec.NewStruct(codec.FromEvent(e))
			if err != nil {
				return errors.MapToGRPCError(err)
			}
			if err := stream.Send(msg); err != nil {
				s.log.Error("Failed to push event to stream",
					"session_id", sessionID,
					"subscriber_id", subscriberID,
					"error", err)
				return err
			}
		}
	}
}

func participantCommand(req *structpb.Struct) domain.ParticipantCommand {
	in := req.AsMap()
	return domain.ParticipantCommand{
		SessionID: codec.String(in["sessionId"]),
		UserID:    codec.String(in["userId"]),
		Role:      domain.Role(codec.String(in["role"])),
	}
}

func lockCommand(req *structpb.Struct) domain.LockCommand {
	in := req.AsMap()
	return domain.LockCommand{
		SessionID: codec.String(in["sessionId"]),
		UserID:    codec.String(in["userId"]),
	}
}

func reply(fields map[string]any) (*structpb.Struct, error) {
	out, err := codec.NewStruct(fields)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return out, nil
}
