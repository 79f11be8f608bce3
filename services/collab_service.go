package services

import (
	"collab-engine/audit"
	"collab-engine/auth"
	"collab-engine/contract"
	"collab-engine/domain"
	"collab-engine/domain/event"
	"collab-engine/errors"
	"collab-engine/sink"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

const (
	defaultSearchLimit = 20
	defaultAuditTail   = 100
	defaultLockPage    = 20
)

type ICollabService interface {
	CreateSession(ctx context.Context, cmd domain.CreateSessionCommand) (domain.Session, error)
	Join(ctx context.Context, cmd domain.JoinCommand) (domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	ListSessions() []domain.Session
	EndSession(ctx context.Context, sessionID string) error
	AddParticipant(ctx context.Context, cmd domain.ParticipantCommand) error
	RemoveParticipant(ctx context.Context, cmd domain.ParticipantCommand) error
	AssignRole(ctx context.Context, cmd domain.RoleCommand) error
	ListParticipants(sessionID string) []domain.Participant
	AcquireLock(ctx context.Context, cmd domain.LockCommand) (domain.FileLock, error)
	ReleaseLock(ctx context.Context, cmd domain.LockCommand) error
	ListLocks(page, limit int) domain.LockPage
	Edit(ctx context.Context, cmd domain.EditCommand) (domain.EditResult, error)
	ListEvents(ctx context.Context, sessionID string) ([]event.Event, error)
	SearchEvents(ctx context.Context, query string, limit int) ([]contract.SearchHit, error)
	Metrics() domain.Metrics
	ResetMetrics(ctx context.Context) error
	SessionDuration(ctx context.Context, sessionID string) (time.Duration, error)
	AuditTail(limit int) ([]string, error)
	Subscribe(ctx context.Context, subscriberID, sessionID string, s contract.EventSink) error
	Unsubscribe(subscriberID, sessionID string)
}

type lockLister interface {
	List(page, limit int) domain.LockPage
}

// CollabService validates transport commands, resolves the acting user and
// forwards to the engine. It holds no state of its own.
//
// Ending a session, adding participants, assigning roles and resetting
// metrics need an admin: either an admin token or an admin participant of
// the session. Calls without an identity come from inside the process and
// are trusted.
type CollabService struct {
	log    *slog.Logger
	engine contract.IEngine
	locks  lockLister
	index  contract.IEventIndex
	audit  *audit.Log
	hub    *sink.Hub
}

func NewCollabService(log *slog.Logger, engine contract.IEngine, locks lockLister, index contract.IEventIndex, auditLog *audit.Log, hub *sink.Hub) *CollabService {
	return &CollabService{log: log, engine: engine, locks: locks, index: index, audit: auditLog, hub: hub}
}

func (s *CollabService) CreateSession(ctx context.Context, cmd domain.CreateSessionCommand) (domain.Session, error) {
	if err := auth.ValidateCommand(cmd); err != nil {
		return domain.Session{}, err
	}
	return s.engine.CreateSession(ctx, cmd.FileID)
}

// Join defaults the participant role to the one carried by the caller's
// token and never grants more than it.
func (s *CollabService) Join(ctx context.Context, cmd domain.JoinCommand) (domain.Session, error) {
	cmd.UserID = actingUser(ctx, cmd.UserID)
	id, authenticated := auth.IdentityFromContext(ctx)
	if authenticated && cmd.Role == "" {
		cmd.Role = id.Role
	}
	if err := auth.ValidateCommand(cmd); err != nil {
		return domain.Session{}, err
	}
	if authenticated && !id.Role.Covers(cmd.Role) {
		return domain.Session{}, fmt.Errorf("%w: %s token cannot join as %s", errors.ErrForbidden, id.Role, cmd.Role)
	}
	return s.engine.Join(ctx, cmd.FileID, cmd.UserID, cmd.Role)
}

func (s *CollabService) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if sessionID == "" {
		return domain.Session{}, fmt.Errorf("%w: session id is required", errors.ErrInvalidCommand)
	}
	return s.engine.GetSession(ctx, sessionID)
}

func (s *CollabService) ListSessions() []domain.Session {
	return s.engine.ListSessions()
}

func (s *CollabService) EndSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", errors.ErrInvalidCommand)
	}
	if err := s.requireAdmin(ctx, sessionID); err != nil {
		return err
	}
	return s.engine.EndSession(ctx, sessionID)
}

func (s *CollabService) AddParticipant(ctx context.Context, cmd domain.ParticipantCommand) error {
	if err := auth.ValidateCommand(cmd); err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, cmd.SessionID); err != nil {
		return err
	}
	return s.engine.AddParticipant(ctx, cmd.SessionID, cmd.UserID, cmd.Role)
}

// RemoveParticipant lets anyone leave; removing somebody else needs an admin.
func (s *CollabService) RemoveParticipant(ctx context.Context, cmd domain.ParticipantCommand) error {
	if err := auth.ValidateCommand(cmd); err != nil {
		return err
	}
	if id, ok := auth.IdentityFromContext(ctx); !ok || id.UserID != cmd.UserID {
		if err := s.requireAdmin(ctx, cmd.SessionID); err != nil {
			return err
		}
	}
	s.engine.RemoveParticipant(ctx, cmd.SessionID, cmd.UserID)
	return nil
}

func (s *CollabService) AssignRole(ctx context.Context, cmd domain.RoleCommand) error {
	if err := auth.ValidateCommand(cmd); err != nil {
		return err
	}
	if err := s.requireAdmin(ctx, cmd.SessionID); err != nil {
		return err
	}
	return s.engine.AssignRole(ctx, cmd.SessionID, cmd.UserID, cmd.Role)
}

func (s *CollabService) ListParticipants(sessionID string) []domain.Participant {
	return s.engine.Participants(sessionID)
}

func (s *CollabService) AcquireLock(ctx context.Context, cmd domain.LockCommand) (domain.FileLock, error) {
	cmd.UserID = actingUser(ctx, cmd.UserID)
	if err := auth.ValidateCommand(cmd); err != nil {
		return domain.FileLock{}, err
	}
	return s.engine.AcquireLock(ctx, cmd.SessionID, cmd.UserID)
}

func (s *CollabService) ReleaseLock(ctx context.Context, cmd domain.LockCommand) error {
	cmd.UserID = actingUser(ctx, cmd.UserID)
	if err := auth.ValidateCommand(cmd); err != nil {
		return err
	}
	return s.engine.ReleaseLock(ctx, cmd.SessionID, cmd.UserID)
}

func (s *CollabService) ListLocks(page, limit int) domain.LockPage {
	if limit <= 0 {
		limit = defaultLockPage
	}
	return s.locks.List(page, limit)
}

func (s *CollabService) Edit(ctx context.Context, cmd domain.EditCommand) (domain.EditResult, error) {
	cmd.UserID = actingUser(ctx, cmd.UserID)
	if err := auth.ValidateCommand(cmd); err != nil {
		return domain.EditResult{}, err
	}
	return s.engine.Edit(ctx, cmd)
}

func (s *CollabService) ListEvents(ctx context.Context, sessionID string) ([]event.Event, error) {
	return s.engine.ListEvents(ctx, sessionID)
}

func (s *CollabService) SearchEvents(ctx context.Context, query string, limit int) ([]contract.SearchHit, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", errors.ErrInvalidCommand)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.index.Search(ctx, query, limit)
}

func (s *CollabService) Metrics() domain.Metrics {
	return s.engine.Metrics()
}

// ResetMetrics is global, so only an admin token may call it.
func (s *CollabService) ResetMetrics(ctx context.Context) error {
	if id, ok := auth.IdentityFromContext(ctx); ok && id.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: %s cannot reset metrics", errors.ErrForbidden, id.UserID)
	}
	s.engine.ResetMetrics()
	return nil
}

func (s *CollabService) SessionDuration(ctx context.Context, sessionID string) (time.Duration, error) {
	if sessionID == "" {
		return 0, fmt.Errorf("%w: session id is required", errors.ErrInvalidCommand)
	}
	return s.engine.SessionDuration(ctx, sessionID)
}

func (s *CollabService) AuditTail(limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultAuditTail
	}
	return s.audit.Tail(limit)
}

// Subscribe attaches a client sink after checking the session exists.
func (s *CollabService) Subscribe(ctx context.Context, subscriberID, sessionID string, es contract.EventSink) error {
	if _, err := s.engine.GetSession(ctx, sessionID); err != nil {
		return err
	}
	s.hub.Subscribe(subscriberID, sessionID, es)
	s.log.Debug("Client subscribed", "session_id", sessionID, "subscriber_id", subscriberID)
	return nil
}

func (s *CollabService) Unsubscribe(subscriberID, sessionID string) {
	s.hub.Unsubscribe(subscriberID, sessionID)
	s.log.Debug("Client unsubscribed", "session_id", sessionID, "subscriber_id", subscriberID)
}

// requireAdmin lets unknown and ended sessions through so the engine
// reports them as such instead of as a permission problem.
func (s *CollabService) requireAdmin(ctx context.Context, sessionID string) error {
	id, ok := auth.IdentityFromContext(ctx)
	if !ok || id.Role == domain.RoleAdmin {
		return nil
	}
	isAdmin := slices.ContainsFunc(s.engine.Participants(sessionID), func(p domain.Participant) bool {
		return p.UserID == id.UserID && p.Role == domain.RoleAdmin
	})
	if isAdmin {
		return nil
	}
	session, err := s.engine.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.IsEnded() {
		return nil
	}
	return fmt.Errorf("%w: %s is not an admin of %s", errors.ErrForbidden, id.UserID, sessionID)
}

// actingUser prefers the authenticated caller over the user named in the request.
func actingUser(ctx context.Context, requested string) string {
	if id, ok := auth.IdentityFromContext(ctx); ok {
		return id.UserID
	}
	return requested
}
