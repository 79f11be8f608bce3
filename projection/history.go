// Package projection builds per-session timelines from observed events.
// Handles ordering; does not emit events or touch the network.
package projection

import (
	"collab-engine/domain/event"
	"collab-engine/errors"
	"collab-engine/internal/shard"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
)

type timeline struct {
	events  []event.Event
	nextSeq uint64
}

// History is the ordered event log of every session.
// Appends for one session are serialized; timestamps never go backwards
// within a session, so insertion order and timestamp order agree.
type History struct {
	logs *shard.Table[*timeline]
	now  func() time.Time
}

func NewHistory(now func() time.Time) *History {
	if now == nil {
		now = time.Now
	}
	return &History{logs: shard.NewTable[*timeline](), now: now}
}

// Append records an event. The session does not have to exist so that late
// audit writes are still accepted.
func (h *History) Append(sessionID string, eventType event.Type, userID string, payload map[string]any) (event.Event, error) {
	switch {
	case sessionID == "":
		return event.Event{}, &errors.InvalidEventError{Field: "sessionId"}
	case eventType == "":
		return event.Event{}, &errors.InvalidEventError{Field: "eventType"}
	case userID == "":
		return event.Event{}, &errors.InvalidEventError{Field: "userId"}
	}
	if payload == nil {
		payload = map[string]any{}
	}

	var evt event.Event
	h.logs.Update(sessionID, func(items map[string]*timeline) {
		tl, ok := items[sessionID]
		if !ok {
			tl = &timeline{}
			items[sessionID] = tl
		}
		at := h.now().UTC()
		if n := len(tl.events); n > 0 && at.Before(tl.events[n-1].Timestamp) {
			at = tl.events[n-1].Timestamp
		}
		evt = event.Event{
			ID:        uuid.New(),
			SessionID: sessionID,
			Type:      eventType,
			UserID:    userID,
			Timestamp: at,
			Seq:       tl.nextSeq,
			Payload:   maps.Clone(payload),
		}
		tl.nextSeq++
		tl.events = append(tl.events, evt)
	})
	return evt, nil
}

// ListForSession returns the events of a session, oldest first. Never nil.
func (h *History) ListForSession(sessionID string) []event.Event {
	res := []event.Event{}
	h.logs.View(sessionID, func(items map[string]*timeline) {
		if tl, ok := items[sessionID]; ok {
			res = slices.Clone(tl.events)
		}
	})
	return res
}

// Known reports whether any event was appended or loaded for the session.
func (h *History) Known(sessionID string) bool {
	_, ok := h.logs.Get(sessionID)
	return ok
}

// Load seeds a session timeline from persisted events. Events already held
// in memory win: Load is a no-op for a known session.
func (h *History) Load(sessionID string, events []event.Event) {
	sorted := slices.Clone(events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	h.logs.Update(sessionID, func(items map[string]*timeline) {
		if _, ok := items[sessionID]; ok {
			return
		}
		tl := &timeline{events: sorted}
		for _, e := range sorted {
			if e.Seq >= tl.nextSeq {
				tl.nextSeq = e.Seq + 1
			}
		}
		items[sessionID] = tl
	})
}
