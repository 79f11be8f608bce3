package codec

import (
	"collab-engine/domain"
	"collab-engine/domain/event"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPlain_NormalizesNestedValues(t *testing.T) {
	req := require.New(t)

	type tag struct {
		Name string `json:"name"`
	}
	got := Plain(map[string]any{
		"tags":   []string{"a", "b"},
		"owner":  tag{Name: "u1"},
		"nested": domain.Fields{"n": 1},
	})

	req.Equal(map[string]any{
		"tags":   []any{"a", "b"},
		"owner":  map[string]any{"name": "u1"},
		"nested": map[string]any{"n": 1},
	}, got)
}

func TestSession_SurvivesEncoding(t *testing.T) {
	req := require.New(t)
	createdAt := time.Date(2026, 5, 1, 9, 0, 0, 123, time.UTC)
	endedAt := createdAt.Add(time.Hour)
	session := domain.Session{
		ID:           "s1",
		FileID:       "doc-1",
		Participants: []string{"u1", "u2"},
		Content:      domain.Fields{"title": "t", "count": float64(2)},
		State:        domain.SessionEnded,
		CreatedAt:    createdAt,
		EndedAt:      &endedAt,
		UpdateLog: []domain.Update{{
			UserID:    "u1",
			Fields:    domain.Fields{"title": "t"},
			Conflicts: []domain.ConflictRecord{{Field: "title", BaseValue: "a", UserValue: "b", CollaboratorValue: "c"}},
			At:        createdAt,
		}},
	}

	data, err := Marshal(FromSession(session))
	req.NoError(err)
	rec, err := Unmarshal(data)
	req.NoError(err)

	req.Equal(session, ToSession(rec))
}

func TestEvent_SeqAndPayloadSurviveEncoding(t *testing.T) {
	req := require.New(t)
	e := event.Event{
		ID:        uuid.New(),
		SessionID: "s1",
		Type:      event.LockAcquiredType,
		UserID:    "u1",
		Timestamp: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		Seq:       42,
		Payload:   event.LockAcquired("doc-1", "u1"),
	}

	data, err := Marshal(FromEvent(e))
	req.NoError(err)
	rec, err := Unmarshal(data)
	req.NoError(err)
	got, err := ToEvent(rec)

	req.NoError(err)
	req.Equal(e, got)
}

func TestToEvent_RejectsBadID(t *testing.T) {
	req := require.New(t)

	_, err := ToEvent(map[string]any{"id": "nope"})

	req.Error(err)
}

func TestLockPage_SurvivesStruct(t *testing.T) {
	req := require.New(t)
	expires := time.Date(2026, 5, 1, 9, 5, 0, 0, time.UTC)
	page := domain.LockPage{
		Locks: []domain.FileLock{
			{FileID: "doc-1", LockedBy: "u1", SessionID: "s1", LockedAt: expires.Add(-5 * time.Minute), ExpiresAt: &expires},
			{FileID: "doc-2", LockedBy: "u2", LockedAt: expires},
		},
		Total:      7,
		Page:       1,
		TotalPages: 4,
	}

	s, err := NewStruct(FromLockPage(page))
	req.NoError(err)

	req.Equal(page, ToLockPage(s.AsMap()))
}

func TestMetrics_SurvivesStruct(t *testing.T) {
	req := require.New(t)
	m := domain.Metrics{
		TotalSessions:    3,
		TotalEdits:       9,
		TotalConflicts:   2,
		AuditFailures:    1,
		DroppedEvents:    4,
		DroppedJobs:      5,
		PeakActiveUsers:  2,
		ActiveUsers:      []string{"u1"},
		SessionDurations: map[string]time.Duration{"s1": 90 * time.Second},
	}

	s, err := NewStruct(FromMetrics(m))
	req.NoError(err)

	req.Equal(m, ToMetrics(s.AsMap()))
}
