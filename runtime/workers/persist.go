package workers

import (
	"collab-engine/contract"
	"context"
	"log/slog"
	"time"
)

// PersistWorker runs deferred jobs (store writes, audit lines) in the order
// they were submitted. A failing job is logged and skipped; it never stops
// the queue.
type PersistWorker struct {
	log        *slog.Logger
	jobs       <-chan contract.Job
	jobTimeout time.Duration
}

func NewPersistWorker(log *slog.Logger, jobs <-chan contract.Job, jobTimeout time.Duration) *PersistWorker {
	return &PersistWorker{log: log, jobs: jobs, jobTimeout: jobTimeout}
}

func (w *PersistWorker) Run(ctx context.Context) error {
	for {
		select {
		case job := <-w.jobs:
			w.run(ctx, job)
		case <-ctx.Done():
			w.drain()
			return nil
		}
	}
}

func (w *PersistWorker) run(ctx context.Context, job contract.Job) {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()
	if err := job.Run(jobCtx); err != nil {
		w.log.Warn("Job failed", "job", job.Name, "error", err)
	}
}

// drain flushes what is already queued on shutdown, detached from the
// canceled context but still bounded per job.
func (w *PersistWorker) drain() {
	for {
		select {
		case job := <-w.jobs:
			w.run(context.Background(), job)
		default:
			w.log.Debug("Context done, persist queue drained")
			return
		}
	}
}
