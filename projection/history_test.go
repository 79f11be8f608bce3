package projection

import (
	"collab-engine/domain/event"
	"collab-engine/errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHistory_AppendKeepsOrder(t *testing.T) {
	req := require.New(t)
	h := NewHistory(nil)

	e1, err := h.Append("s1", event.JoinType, "u1", event.Join("u1"))
	req.NoError(err)
	e2, err := h.Append("s1", event.LeaveType, "u1", event.Leave("u1"))
	req.NoError(err)

	events := h.ListForSession("s1")
	req.Len(events, 2)
	req.Equal(e1.ID, events[0].ID)
	req.Equal(e2.ID, events[1].ID)
	req.Equal(uint64(0), events[0].Seq)
	req.Equal(uint64(1), events[1].Seq)
}

func TestHistory_ClockGoingBackwardsIsClamped(t *testing.T) {
	req := require.New(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Minute)}
	i := 0
	h := NewHistory(func() time.Time {
		at := ticks[i]
		i++
		return at
	})

	_, err := h.Append("s1", event.JoinType, "u1", nil)
	req.NoError(err)
	second, err := h.Append("s1", event.JoinType, "u2", nil)
	req.NoError(err)

	// Then the second event is never before the first one
	req.Equal(base, second.Timestamp)
	events := h.ListForSession("s1")
	req.Equal("u1", events[0].UserID)
	req.Equal("u2", events[1].UserID)
}

func TestHistory_UnknownSessionIsEmptyNotNil(t *testing.T) {
	req := require.New(t)
	h := NewHistory(nil)

	events := h.ListForSession("missing")

	req.NotNil(events)
	req.Empty(events)
}

func TestHistory_InvalidEvent(t *testing.T) {
	req := require.New(t)
	h := NewHistory(nil)

	_, err := h.Append("", event.JoinType, "u1", nil)
	req.ErrorIs(err, errors.ErrInvalidEvent)
	_, err = h.Append("s1", "", "u1", nil)
	req.ErrorIs(err, errors.ErrInvalidEvent)
	_, err = h.Append("s1", event.JoinType, "", nil)
	req.ErrorIs(err, errors.ErrInvalidEvent)
}

func TestHistory_PayloadIsCopied(t *testing.T) {
	req := require.New(t)
	h := NewHistory(nil)
	payload := map[string]any{"userId": "u1"}

	_, err := h.Append("s1", event.JoinType, "u1", payload)
	req.NoError(err)
	payload["userId"] = "mutated"

	req.Equal("u1", h.ListForSession("s1")[0].Payload["userId"])
}

func TestHistory_ConcurrentAppendsPerSession(t *testing.T) {
	req := require.New(t)
	h := NewHistory(nil)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.Append("s1", event.EditType, fmt.Sprintf("u%d", i), nil)
			req.NoError(err)
		}(i)
	}
	wg.Wait()

	events := h.ListForSession("s1")
	req.Len(events, 20)
	for i := 1; i < len(events); i++ {
		req.False(events[i].Timestamp.Before(events[i-1].Timestamp))
		req.Equal(events[i-1].Seq+1, events[i].Seq)
	}
}

func TestHistory_LoadSortsAndContinuesSequence(t *testing.T) {
	req := require.New(t)
	h := NewHistory(nil)
	at := time.Now().UTC().Add(-time.Hour)

	// Given persisted events read back out of order
	h.Load("s1", []event.Event{
		{SessionID: "s1", Type: event.LeaveType, UserID: "u1", Timestamp: at, Seq: 1},
		{SessionID: "s1", Type: event.JoinType, UserID: "u1", Timestamp: at, Seq: 0},
	})

	// When a new event is appended
	next, err := h.Append("s1", event.JoinType, "u2", nil)
	req.NoError(err)

	events := h.ListForSession("s1")
	req.Len(events, 3)
	req.Equal(event.JoinType, events[0].Type)
	req.Equal(event.LeaveType, events[1].Type)
	req.Equal(uint64(2), next.Seq)
	req.True(h.Known("s1"))
}
