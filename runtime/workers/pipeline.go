package workers

import (
	"collab-engine/contract"
	"collab-engine/domain/event"
	"context"
	"log/slog"
	"time"
)

// DropRecorder counts what the pipeline gave up on.
type DropRecorder interface {
	RecordDroppedEvent()
	RecordDroppedJob()
}

type noopDrops struct{}

func (noopDrops) RecordDroppedEvent() {}
func (noopDrops) RecordDroppedJob()   {}

// Pipeline is the outbound queue of the engine: events go to the fanout,
// jobs (store writes, audit lines) go to the persist worker.
// Enqueueing waits at most enqueueTimeout, then the item is dropped, logged and counted.
type Pipeline struct {
	log            *slog.Logger
	events         chan event.Event
	jobs           chan contract.Job
	enqueueTimeout time.Duration
	drops          DropRecorder
}

func NewPipeline(log *slog.Logger, bufferSize int, enqueueTimeout time.Duration) *Pipeline {
	return &Pipeline{
		log:            log,
		events:         make(chan event.Event, bufferSize),
		jobs:           make(chan contract.Job, bufferSize),
		enqueueTimeout: enqueueTimeout,
		drops:          noopDrops{},
	}
}

// WithDropRecorder must be called before the pipeline is shared.
func (p *Pipeline) WithDropRecorder(r DropRecorder) *Pipeline {
	p.drops = r
	return p
}

func (p *Pipeline) Events() <-chan event.Event { return p.events }

func (p *Pipeline) Jobs() <-chan contract.Job { return p.jobs }

// Channels exposes the queues for capacity reporting.
func (p *Pipeline) Channels() []NamedChannel {
	return []NamedChannel{
		{Name: "events", Channel: p.events},
		{Name: "jobs", Channel: p.jobs},
	}
}

func (p *Pipeline) Publish(ctx context.Context, e event.Event) {
	if !enqueue(ctx, p.events, e, p.enqueueTimeout) {
		p.drops.RecordDroppedEvent()
		p.log.Warn("Event dropped, outbound queue full",
			"session_id", e.SessionID, "type", e.Type, "event_id", e.ID)
	}
}

func (p *Pipeline) Submit(ctx context.Context, job contract.Job) {
	if !enqueue(ctx, p.jobs, job, p.enqueueTimeout) {
		p.drops.RecordDroppedJob()
		p.log.Warn("Job dropped, outbound queue full", "job", job.Name)
	}
}

func enqueue[T any](ctx context.Context, ch chan<- T, item T, timeout time.Duration) bool {
	select {
	case ch <- item:
		return true
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- item:
		return true
	case <-ctx.Done():
		return false
	case <-timer.C:
		return false
	}
}
