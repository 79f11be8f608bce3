//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"collab-engine/domain"
	"collab-engine/domain/event"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives every event leaving the engine, in order.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// Broadcaster delivers session events to connected clients.
// Best effort: errors are logged by the caller, never propagated.
type Broadcaster interface {
	Broadcast(ctx context.Context, sessionID string, e event.Event) error
}

// PersistenceStore is authoritative on restart; the engine memory is a cache.
type PersistenceStore interface {
	SaveSession(ctx context.Context, session domain.Session) error
	LoadSession(ctx context.Context, sessionID string) (domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	SaveParticipant(ctx context.Context, participant domain.Participant) error
	DeleteParticipant(ctx context.Context, sessionID, userID string) error
	LoadParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error)
	AppendEvent(ctx context.Context, e event.Event) error
	QueryEvents(ctx context.Context, sessionID string) ([]event.Event, error)
}

// AuthVerifier resolves the caller identity; the engine trusts the result.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// Job is a deferred side effect (store write, audit line) run by the pipeline.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Outbox takes side effects out of the engine's critical sections.
// Publish and Submit may block at most for the outbox's enqueue timeout.
type Outbox interface {
	Publish(ctx context.Context, e event.Event)
	Submit(ctx context.Context, job Job)
}

type IEngine interface {
	CreateSession(ctx context.Context, fileID string) (domain.Session, error)
	Join(ctx context.Context, fileID, userID string, role domain.Role) (domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	EndSession(ctx context.Context, sessionID string) error
	ListSessions() []domain.Session
	AddParticipant(ctx context.Context, sessionID, userID string, role domain.Role) error
	RemoveParticipant(ctx context.Context, sessionID, userID string)
	AssignRole(ctx context.Context, sessionID, userID string, role domain.Role) error
	ListParticipants(sessionID string) []string
	Participants(sessionID string) []domain.Participant
	AcquireLock(ctx context.Context, sessionID, userID string) (domain.FileLock, error)
	ReleaseLock(ctx context.Context, sessionID, userID string) error
	Edit(ctx context.Context, cmd domain.EditCommand) (domain.EditResult, error)
	ListEvents(ctx context.Context, sessionID string) ([]event.Event, error)
	Metrics() domain.Metrics
	ResetMetrics()
	SessionDuration(ctx context.Context, sessionID string) (time.Duration, error)
	ExpireLocks(ctx context.Context, now time.Time) []domain.FileLock
}

type IEventIndex interface {
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

type SearchHit struct {
	EventID   string
	SessionID string
	Type      string
	UserID    string
	Score     float64
}
