package runtime

import (
	"collab-engine/contract"
	"collab-engine/runtime/workers"
	"context"
	"log/slog"
	"sync"
	"time"
)

type OrchestratorConfig struct {
	SinkTimeout       time.Duration
	JobTimeout        time.Duration
	LockSweepInterval time.Duration
	ReportInterval    time.Duration
}

// Orchestrator assembles the background workers around an engine and runs
// them under the supervisor.
type Orchestrator struct {
	mu          sync.Mutex
	log         *slog.Logger
	cfg         OrchestratorConfig
	engine      *Engine
	pipeline    *workers.Pipeline
	supervisor  contract.ISupervisor
	broadcaster contract.Broadcaster
	sinks       []contract.EventSink
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, engine *Engine,
	pipeline *workers.Pipeline, broadcaster contract.Broadcaster, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		log:         log,
		cfg:         cfg,
		engine:      engine,
		pipeline:    pipeline,
		supervisor:  supervisor,
		broadcaster: broadcaster,
	}
}

// Add registers permanent sinks fed with every event after the broadcast.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sinks = append(o.sinks, sinks...)
}

// Start builds the workers then blocks in the supervisor until ctx ends or
// Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	fanout := workers.NewEventFanout(o.log, o.pipeline.Events(), o.broadcaster, o.cfg.SinkTimeout).
		Add(o.sinks...)
	o.supervisor.Add(fanout, workers.NewPersistWorker(o.log, o.pipeline.Jobs(), o.cfg.JobTimeout))
	if o.cfg.LockSweepInterval > 0 {
		o.supervisor.Add(workers.NewLockReaper(o.log, o.engine, o.cfg.LockSweepInterval))
	}
	if o.cfg.ReportInterval > 0 {
		o.supervisor.Add(workers.NewMetricsReporter(o.log, o.engine, o.pipeline.Channels(), o.cfg.ReportInterval))
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
}

// Stop cancels the supervised workers; queued jobs are drained first.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
