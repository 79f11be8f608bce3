package workers

import (
	"collab-engine/domain/event"
	"collab-engine/mocks"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_BroadcastsThenFeedsSinks(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	broadcaster := mocks.NewMockBroadcaster(ctrl)
	sink := mocks.NewMockEventSink(ctrl)

	evt := event.Event{ID: uuid.New(), SessionID: "s1", Type: event.JoinType, UserID: "u1"}

	// Given the broadcaster fails and the sink succeeds
	consumed := make(chan struct{})
	gomock.InOrder(
		broadcaster.EXPECT().Broadcast(gomock.Any(), "s1", evt).Return(fmt.Errorf("client gone")),
		sink.EXPECT().Consume(gomock.Any(), evt).DoAndReturn(func(context.Context, event.Event) error {
			close(consumed)
			return nil
		}),
	)

	events := make(chan event.Event, 1)
	fanout := NewEventFanout(log, events, broadcaster, time.Second).Add(sink)

	// When one event is published
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- fanout.Run(ctx) }()
	events <- evt

	// Then both receive it and the broadcast failure is swallowed
	select {
	case <-consumed:
	case <-time.After(time.Second):
		req.Fail("sink never received the event")
	}
	cancel()
	req.NoError(<-done)
}

func TestEventFanout_SinkCallIsBounded(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	sink := mocks.NewMockEventSink(ctrl)

	// Given a sink that waits for its context
	sink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ event.Event) error {
			<-ctx.Done()
			return ctx.Err()
		})

	fanout := NewEventFanout(log, nil, nil, 30*time.Millisecond).Add(sink)

	// When fanning out
	start := time.Now()
	fanout.Fanout(context.Background(), event.Event{SessionID: "s1"})

	// Then the call returns after the sink timeout
	req.Less(time.Since(start), 500*time.Millisecond)
}
