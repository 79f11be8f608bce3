package workers

import (
	"collab-engine/contract"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestPersistWorker_RunsJobsInOrderAndSurvivesFailures(t *testing.T) {
	req := require.New(t)
	jobs := make(chan contract.Job, 8)
	w := NewPersistWorker(logs.GetLoggerFromLevel(slog.LevelDebug), jobs, time.Second)

	var (
		mu  sync.Mutex
		ran []string
	)
	record := func(name string, err error) contract.Job {
		return contract.Job{Name: name, Run: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			ran = append(ran, name)
			return err
		}}
	}
	jobs <- record("save-session", nil)
	jobs <- record("audit", fmt.Errorf("disk full"))
	jobs <- record("append-event", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- w.Run(ctx) }()

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ran) == 3
	}, time.Second, 5*time.Millisecond)
	cancel()
	req.NoError(<-done)
	req.Equal([]string{"save-session", "audit", "append-event"}, ran)
}

func TestPersistWorker_DrainsOnShutdown(t *testing.T) {
	req := require.New(t)
	jobs := make(chan contract.Job, 2)
	w := NewPersistWorker(logs.GetLoggerFromLevel(slog.LevelDebug), jobs, time.Second)
	var ran int
	jobs <- contract.Job{Name: "late", Run: func(ctx context.Context) error {
		ran++
		return ctx.Err()
	}}

	// Given the context is already canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When the worker runs, queued jobs are still executed with a live context
	req.NoError(w.Run(ctx))
	req.Equal(1, ran)
}
