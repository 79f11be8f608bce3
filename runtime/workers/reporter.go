package workers

import (
	"collab-engine/domain"
	"context"
	"log/slog"
	"os"
	"reflect"
	"time"

	"github.com/shirou/gopsutil/process"
)

type NamedChannel struct {
	Name    string
	Channel any
}

type metricsSource interface {
	Metrics() domain.Metrics
}

// MetricsReporter periodically logs the engine counters, the fill level of
// the outbound queues and the resource usage of the current process.
// Reading len and cap of a channel never blocks.
type MetricsReporter struct {
	log      *slog.Logger
	source   metricsSource
	channels []NamedChannel
	interval time.Duration
	proc     *process.Process
}

func NewMetricsReporter(log *slog.Logger, source metricsSource,
	channels []NamedChannel, interval time.Duration) *MetricsReporter {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Debug("Process stats unavailable", "error", err)
	}
	return &MetricsReporter{log: log, source: source, channels: channels, interval: interval, proc: proc}
}

func (w *MetricsReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.report()
			w.log.Debug("Context done, stopping metrics reporter")
			return nil
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *MetricsReporter) report() {
	m := w.source.Metrics()
	attrs := []any{
		"total_sessions", m.TotalSessions,
		"total_edits", m.TotalEdits,
		"total_conflicts", m.TotalConflicts,
		"audit_failures", m.AuditFailures,
		"dropped_events", m.DroppedEvents,
		"dropped_jobs", m.DroppedJobs,
		"active_users", len(m.ActiveUsers),
		"peak_active_users", m.PeakActiveUsers,
	}
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		attrs = append(attrs, nc.Name+"_queued", v.Len(), nc.Name+"_capacity", v.Cap())
	}
	attrs = append(attrs, w.processStats()...)
	w.log.Info("Engine metrics", attrs...)
}

func (w *MetricsReporter) processStats() []any {
	if w.proc == nil {
		return nil
	}
	var attrs []any
	if mem, err := w.proc.MemoryInfo(); err == nil {
		attrs = append(attrs, "rss_mb", mem.RSS/1024/1024)
	} else {
		w.log.Debug("Error while finding process ram usage", "err", err)
	}
	if cpu, err := w.proc.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_percent", cpu)
	} else {
		w.log.Debug("Error while finding process cpu usage", "err", err)
	}
	return attrs
}
