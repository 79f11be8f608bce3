package storage

import (
	"collab-engine/domain"
	"collab-engine/domain/event"
	"collab-engine/errors"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSessionRepository_SaveAndLoadSession(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewSessionRepository(openTestDB(t), slog.Default())
	at := time.Date(2026, 3, 4, 10, 0, 0, 123, time.UTC)

	s := domain.NewSession("s1", "doc-1", at)
	s.AddParticipant("u1")
	s.ApplyUpdate(domain.Update{
		UserID:    "u1",
		Fields:    domain.Fields{"title": "hello", "tags": []string{"go", "badger"}},
		Conflicts: []domain.ConflictRecord{{Field: "title", BaseValue: "a", UserValue: "hello", CollaboratorValue: "b"}},
		At:        at.Add(time.Second),
	})
	s.End(at.Add(time.Minute))

	// When the session is stored then read back
	req.NoError(repo.SaveSession(ctx, s.Snapshot()))
	got, err := repo.LoadSession(ctx, "s1")

	// Then every field survives, numbers and lists in their JSON shape
	req.NoError(err)
	req.Equal("doc-1", got.FileID)
	req.Equal([]string{"u1"}, got.Participants)
	req.Equal(domain.SessionEnded, got.State)
	req.Equal(at, got.CreatedAt)
	req.NotNil(got.EndedAt)
	req.Equal(at.Add(time.Minute), *got.EndedAt)
	req.Equal("hello", got.Content["title"])
	req.Equal([]any{"go", "badger"}, got.Content["tags"])
	req.Len(got.UpdateLog, 1)
	req.Equal("b", got.UpdateLog[0].Conflicts[0].CollaboratorValue)
}

func TestSessionRepository_LoadMissingSession(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), slog.Default())

	_, err := repo.LoadSession(context.Background(), "nope")

	require.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestSessionRepository_ListSessions(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewSessionRepository(openTestDB(t), slog.Default())
	now := time.Now().UTC()

	req.NoError(repo.SaveSession(ctx, domain.NewSession("s1", "doc-1", now).Snapshot()))
	req.NoError(repo.SaveSession(ctx, domain.NewSession("s2", "doc-2", now).Snapshot()))
	req.NoError(repo.SaveParticipant(ctx, domain.Participant{SessionID: "s1", UserID: "u1"}))

	sessions, err := repo.ListSessions(ctx)

	req.NoError(err)
	req.Len(sessions, 2)
}

func TestSessionRepository_Participants(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewSessionRepository(openTestDB(t), slog.Default())
	joined := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	req.NoError(repo.SaveParticipant(ctx, domain.Participant{SessionID: "s1", UserID: "u1", Role: domain.RoleEditor, JoinedAt: joined}))
	req.NoError(repo.SaveParticipant(ctx, domain.Participant{SessionID: "s1", UserID: "u2", Role: domain.RoleViewer, JoinedAt: joined}))
	req.NoError(repo.SaveParticipant(ctx, domain.Participant{SessionID: "s10", UserID: "u3"}))

	req.NoError(repo.DeleteParticipant(ctx, "s1", "u2"))
	req.NoError(repo.DeleteParticipant(ctx, "s1", "u2"))
	participants, err := repo.LoadParticipants(ctx, "s1")

	req.NoError(err)
	req.Equal([]domain.Participant{{SessionID: "s1", UserID: "u1", Role: domain.RoleEditor, JoinedAt: joined}}, participants)
}

func TestSessionRepository_EventsComeBackInSeqOrder(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repo := NewSessionRepository(openTestDB(t), slog.Default())
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	// Given events stored out of order, the later ones sharing a timestamp
	for _, seq := range []uint64{2, 0, 10, 1} {
		req.NoError(repo.AppendEvent(ctx, event.Event{
			ID: uuid.New(), SessionID: "s1", Type: event.EditType, UserID: "u1",
			Timestamp: at, Seq: seq, Payload: event.Edit(domain.Fields{"n": int(seq)}, nil),
		}))
	}

	events, err := repo.QueryEvents(ctx, "s1")

	req.NoError(err)
	req.Len(events, 4)
	for i, want := range []uint64{0, 1, 2, 10} {
		req.Equal(want, events[i].Seq)
	}
	req.Equal(float64(10), events[3].Payload["fields"].(map[string]any)["n"])
	req.Equal(at, events[0].Timestamp)
}

func TestSessionRepository_CanceledContext(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, repo.SaveSession(ctx, domain.Session{ID: "s1"}), context.Canceled)
}
