package workers

import (
	"collab-engine/contract"
	"collab-engine/domain/event"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// EventFanout hands every published event to the broadcaster and to the
// permanent sinks (search index, ...), one event at a time and in order.
//
// Delivery is best effort: each call is bounded by sinkTimeout and failures
// are only logged. Nothing here feeds back into the engine.
type EventFanout struct {
	log         *slog.Logger
	events      <-chan event.Event
	broadcaster contract.Broadcaster
	sinks       []contract.EventSink
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, events <-chan event.Event,
	broadcaster contract.Broadcaster, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{log: log, events: events, broadcaster: broadcaster, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout delivers one event everywhere.
func (w *EventFanout) Fanout(ctx context.Context, evt event.Event) {
	if w.broadcaster != nil {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := w.broadcaster.Broadcast(sinkCtx, evt.SessionID, evt); err != nil {
			w.log.Warn("Broadcast failed", "session_id", evt.SessionID, "type", evt.Type, "error", err)
		}
		cancel()
	}
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink failed", "sink", fmt.Sprintf("%T", sink), "event_id", evt.ID, "error", err)
		}
		cancel()
	}
}
