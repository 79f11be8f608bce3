// Package sink delivers session events to connected clients.
package sink

import (
	"collab-engine/contract"
	"collab-engine/domain/event"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
)

type subscribers map[string]contract.EventSink

// Hub is the real-time broadcaster: it keeps, per session, the sinks of the
// clients currently subscribed and pushes every session event to them.
type Hub struct {
	mu       sync.RWMutex
	log      *slog.Logger
	sessions map[string]subscribers
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{log: log, sessions: make(map[string]subscribers)}
}

// Subscribe attaches a client sink to a session. Subscribing the same id
// again replaces its sink.
func (h *Hub) Subscribe(subscriberID, sessionID string, sink contract.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[sessionID]; !ok {
		h.sessions[sessionID] = make(subscribers)
	}
	h.sessions[sessionID][subscriberID] = sink
}

// Unsubscribe detaches a client; no empty session entry is kept.
func (h *Hub) Unsubscribe(subscriberID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.sessions[sessionID]; ok {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(h.sessions, sessionID)
		}
	}
}

func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Broadcast pushes e to every subscriber of sessionID. One slow or failing
// client does not stop delivery to the others.
func (h *Hub) Broadcast(ctx context.Context, sessionID string, e event.Event) error {
	h.mu.RLock()
	targets := make(map[string]contract.EventSink, len(h.sessions[sessionID]))
	for id, s := range h.sessions[sessionID] {
		targets[id] = s
	}
	h.mu.RUnlock()

	var errs []error
	for id, s := range targets {
		if err := s.Consume(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("subscriber %s: %w", id, err))
		}
	}
	return stderrors.Join(errs...)
}
