package test

import (
	"collab-engine/audit"
	"collab-engine/contract"
	"collab-engine/domain"
	"collab-engine/domain/event"
	"collab-engine/infrastructure/storage"
	"collab-engine/mocks"
	"collab-engine/observability"
	"collab-engine/projection"
	"collab-engine/runtime"
	"collab-engine/runtime/workers"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type stack struct {
	engine *runtime.Engine
	audit  *audit.Log
	stop   func()
}

// startStack runs an engine backed by db with its workers. stop cancels the
// workers and waits for the persist queue to drain.
func startStack(t *testing.T, db *badger.DB, sinks ...contract.EventSink) stack {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics()
	pipeline := workers.NewPipeline(log, 256, time.Second).WithDropRecorder(metrics)
	auditLog := audit.NewLog(storage.NewAuditRepository(db, log), nil)
	engine := runtime.NewEngine(log, pipeline, runtime.NewLockManager(), projection.NewHistory(nil),
		metrics,
		runtime.WithStore(storage.NewSessionRepository(db, log)),
		runtime.WithAuditLog(auditLog),
	)
	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log), engine, pipeline,
		noopBroadcaster{}, runtime.OrchestratorConfig{SinkTimeout: time.Second, JobTimeout: time.Second})
	orchestrator.Add(sinks...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		orchestrator.Start(ctx)
	}()
	return stack{engine: engine, audit: auditLog, stop: func() {
		cancel()
		<-done
	}}
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(context.Context, string, event.Event) error { return nil }

func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	// 1. A timeline sink signals once the edit went through the fanout
	done := make(chan struct{})
	ctrl := gomock.NewController(t)
	timeline := mocks.NewMockEventSink(ctrl)
	timeline.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.Event) error {
			if e.Type == event.EditType {
				close(done)
			}
			return nil
		}).
		MinTimes(1)

	first := startStack(t, db, timeline)

	// 2. Two users collaborate on doc-1
	session, err := first.engine.Join(ctx, "doc-1", "u1", domain.RoleEditor)
	req.NoError(err)
	_, err = first.engine.Join(ctx, "doc-1", "u2", domain.RoleViewer)
	req.NoError(err)
	_, err = first.engine.AcquireLock(ctx, session.ID, "u1")
	req.NoError(err)
	_, err = first.engine.Edit(ctx, domain.EditCommand{
		SessionID: session.ID,
		UserID:    "u1",
		Base:      domain.Fields{},
		Changes:   domain.Fields{"title": "Roadmap", "owner": "u1"},
	})
	req.NoError(err)
	req.NoError(first.engine.ReleaseLock(ctx, session.ID, "u1"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: the edit never reached the timeline sink")
	}

	// 3. The process stops; queued store writes are drained
	first.stop()

	// When a fresh engine restores from the same database
	second := startStack(t, db)
	defer second.stop()
	req.NoError(second.engine.Restore(ctx))

	// Then the session, its content and its roster are back
	restored, err := second.engine.GetSession(ctx, session.ID)
	req.NoError(err)
	req.Equal(domain.SessionActive, restored.State)
	req.Equal([]string{"u1", "u2"}, restored.Participants)
	req.Equal(domain.Fields{"title": "Roadmap", "owner": "u1"}, restored.Content)
	req.Len(restored.UpdateLog, 1)

	participants := second.engine.Participants(session.ID)
	req.Len(participants, 2)
	req.Equal(domain.RoleViewer, participants[1].Role)

	// And the history is complete and ordered
	events, err := second.engine.ListEvents(ctx, session.ID)
	req.NoError(err)
	types := make([]event.Type, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	req.Equal([]event.Type{event.JoinType, event.JoinType, event.LockAcquiredType, event.EditType, event.LockReleasedType}, types)

	// And the file is still bound to the restored session
	again, err := second.engine.Join(ctx, "doc-1", "u3", domain.RoleEditor)
	req.NoError(err)
	req.Equal(session.ID, again.ID)

	// And the audit trail survived in badger
	lines, err := second.audit.Tail(10)
	req.NoError(err)
	req.Len(lines, 6)
	req.True(strings.Contains(lines[0], "Action: create-session"))
	req.True(strings.Contains(lines[5], "Action: unlock"))

	// When the session ends after the restart
	req.NoError(second.engine.EndSession(ctx, session.ID))
	_, err = second.engine.Edit(ctx, domain.EditCommand{SessionID: session.ID, UserID: "u1", Base: domain.Fields{}, Changes: domain.Fields{"a": 1}})
	req.Error(err)
}
