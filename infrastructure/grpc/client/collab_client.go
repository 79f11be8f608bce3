package client

import (
	"collab-engine/contract"
	"collab-engine/domain"
	"collab-engine/domain/event"
	"collab-engine/infrastructure/codec"
	pb "collab-engine/infrastructure/grpc/collabv1"
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// CollabClient is the typed client of collab.v1.CollaborationService.
// When a token is set it is sent as "authorization: Bearer <token>".
type CollabClient struct {
	client *pb.CollaborationServiceClient
	token  string
}

func NewCollabClient(conn grpc.ClientConnInterface, token string) *CollabClient {
	return &CollabClient{client: pb.NewCollaborationServiceClient(conn), token: token}
}

func (c *CollabClient) CreateSession(ctx context.Context, fileID string) (domain.Session, error) {
	out, err := c.call(ctx, pb.CreateSessionMethod, map[string]any{"fileId": fileID})
	if err != nil {
		return domain.Session{}, err
	}
	return codec.ToSession(out), nil
}

func (c *CollabClient) Join(ctx context.Context, fileID, userID string, role domain.Role) (domain.Session, error) {
	out, err := c.call(ctx, pb.JoinMethod, map[string]any{"fileId": fileID, "userId": userID, "role": string(role)})
	if err != nil {
		return domain.Session{}, err
	}
	return codec.ToSession(out), nil
}

func (c *CollabClient) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	out, err := c.call(ctx, pb.GetSessionMethod, map[string]any{"sessionId": sessionID})
	if err != nil {
		return domain.Session{}, err
	}
	return codec.ToSession(out), nil
}

func (c *CollabClient) ListSessions(ctx context.Context) ([]domain.Session, error) {
	out, err := c.call(ctx, pb.ListSessionsMethod, map[string]any{})
	if err != nil {
		return nil, err
	}
	return lo.Map(records(out["sessions"]), func(rec map[string]any, _ int) domain.Session { return codec.ToSession(rec) }), nil
}

func (c *CollabClient) EndSession(ctx context.Context, sessionID string) error {
	_, err := c.call(ctx, pb.EndSessionMethod, map[string]any{"sessionId": sessionID})
	return err
}

func (c *CollabClient) AddParticipant(ctx context.Context, sessionID, userID string, role domain.Role) error {
	_, err := c.call(ctx, pb.AddParticipantMethod, map[string]any{"sessionId": sessionID, "userId": userID, "role": string(role)})
	return err
}

func (c *CollabClient) RemoveParticipant(ctx context.Context, sessionID, userID string) error {
	_, err := c.call(ctx, pb.RemoveParticipantMethod, map[string]any{"sessionId": sessionID, "userId": userID})
	return err
}

func (c *CollabClient) AssignRole(ctx context.Context, sessionID, userID string, role domain.Role) error {
	_, err := c.call(ctx, pb.AssignRoleMethod, map[string]any{"sessionId": sessionID, "userId": userID, "role": string(role)})
	return err
}

func (c *CollabClient) ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	out, err := c.call(ctx, pb.ListParticipantsMethod, map[string]any{"sessionId": sessionID})
	if err != nil {
		return nil, err
	}
	return lo.Map(records(out["participants"]), func(rec map[string]any, _ int) domain.Participant { return codec.ToParticipant(rec) }), nil
}

func (c *CollabClient) AcquireLock(ctx context.Context, sessionID, userID string) (domain.FileLock, error) {
	out, err := c.call(ctx, pb.AcquireLockMethod, map[string]any{"sessionId": sessionID, "userId": userID})
	if err != nil {
		return domain.FileLock{}, err
	}
	return codec.ToLock(out), nil
}

func (c *CollabClient) ReleaseLock(ctx context.Context, sessionID, userID string) error {
	_, err := c.call(ctx, pb.ReleaseLockMethod, map[string]any{"sessionId": sessionID, "userId": userID})
	return err
}

func (c *CollabClient) ListLocks(ctx context.Context, page, limit int) (domain.LockPage, error) {
	out, err := c.call(ctx, pb.ListLocksMethod, map[string]any{"page": page, "limit": limit})
	if err != nil {
		return domain.LockPage{}, err
	}
	return codec.ToLockPage(out), nil
}

func (c *CollabClient) Edit(ctx context.Context, cmd domain.EditCommand) (domain.EditResult, error) {
	out, err := c.call(ctx, pb.EditMethod, map[string]any{
		"sessionId": cmd.SessionID,
		"userId":    cmd.UserID,
		"base":      map[string]any(cmd.Base),
		"changes":   map[string]any(cmd.Changes),
	})
	if err != nil {
		return domain.EditResult{}, err
	}
	return codec.ToEditResult(out), nil
}

func (c *CollabClient) ListEvents(ctx context.Context, sessionID string) ([]event.Event, error) {
	out, err := c.call(ctx, pb.ListEventsMethod, map[string]any{"sessionId": sessionID})
	if err != nil {
		return nil, err
	}
	events := make([]event.Event, 0)
	for _, rec := range records(out["events"]) {
		e, err := codec.ToEvent(rec)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func (c *CollabClient) SearchEvents(ctx context.Context, query string, limit int) ([]contract.SearchHit, error) {
	out, err := c.call(ctx, pb.SearchEventsMethod, map[string]any{"query": query, "limit": limit})
	if err != nil {
		return nil, err
	}
	return lo.Map(records(out["hits"]), func(rec map[string]any, _ int) contract.SearchHit { return codec.ToSearchHit(rec) }), nil
}

func (c *CollabClient) Metrics(ctx context.Context) (domain.Metrics, error) {
	out, err := c.call(ctx, pb.MetricsMethod, map[string]any{})
	if err != nil {
		return domain.Metrics{}, err
	}
	return codec.ToMetrics(out), nil
}

func (c *CollabClient) ResetMetrics(ctx context.Context) error {
	_, err := c.call(ctx, pb.ResetMetricsMethod, map[string]any{})
	return err
}

func (c *CollabClient) SessionDuration(ctx context.Context, sessionID string) (time.Duration, error) {
	out, err := c.call(ctx, pb.SessionDurationMethod, map[string]any{"sessionId": sessionID})
	if err != nil {
		return 0, err
	}
	return time.Duration(codec.Int(out["durationMs"])) * time.Millisecond, nil
}

func (c *CollabClient) AuditTail(ctx context.Context, limit int) ([]string, error) {
	out, err := c.call(ctx, pb.AuditTailMethod, map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	return codec.ToStrings(out["lines"]), nil
}

// Subscribe pushes the session's events to handle until ctx is cancelled,
// the stream ends or handle returns an error.
func (c *CollabClient) Subscribe(ctx context.Context, sessionID string, handle func(event.Event) error) error {
	in, err := codec.NewStruct(map[string]any{"sessionId": sessionID})
	if err != nil {
		return err
	}
	stream, err := c.client.Subscribe(c.withToken(ctx), in)
	if err != nil {
		return err
	}
	for {
		msg, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		e, err := codec.ToEvent(msg.AsMap())
		if err != nil {
			return fmt.Errorf("decode streamed event: %w", err)
		}
		if err := handle(e); err != nil {
			return err
		}
	}
}

func (c *CollabClient) call(ctx context.Context, method string, fields map[string]any) (map[string]any, error) {
	in, err := codec.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out, err := c.client.Call(c.withToken(ctx), method, in)
	if err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (c *CollabClient) withToken(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

func records(v any) []map[string]any {
	raw, _ := v.([]any)
	return lo.FilterMap(raw, func(item any, _ int) (map[string]any, bool) {
		m, ok := item.(map[string]any)
		return m, ok
	})
}
