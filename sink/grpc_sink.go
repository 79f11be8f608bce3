package sink

import (
	"collab-engine/domain/event"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// GrpcSink buffers the events of one streaming client. The stream handler
// drains Events; Consume never blocks longer than deliveryTimeout.
type GrpcSink struct {
	Events          chan event.Event
	log             *slog.Logger
	deliveryTimeout time.Duration
}

func NewGrpcSink(log *slog.Logger, bufferSize int, deliveryTimeout time.Duration) *GrpcSink {
	return &GrpcSink{Events: make(chan event.Event, bufferSize), log: log, deliveryTimeout: deliveryTimeout}
}

func (s *GrpcSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case s.Events <- e:
		return nil
	default:
	}
	timer := time.NewTimer(s.deliveryTimeout)
	defer timer.Stop()
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		s.log.Warn("Client too slow, event dropped", "session_id", e.SessionID, "event_id", e.ID)
		return fmt.Errorf("delivery of event %s timed out", e.ID)
	}
}
