package workers

import (
	"collab-engine/domain"
	"context"
	"log/slog"
	"time"
)

type lockExpirer interface {
	ExpireLocks(ctx context.Context, now time.Time) []domain.FileLock
}

// LockReaper periodically releases locks whose TTL elapsed.
type LockReaper struct {
	log      *slog.Logger
	engine   lockExpirer
	interval time.Duration
	now      func() time.Time
}

func NewLockReaper(log *slog.Logger, engine lockExpirer, interval time.Duration) *LockReaper {
	return &LockReaper{log: log, engine: engine, interval: interval, now: time.Now}
}

func (w *LockReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping lock reaper")
			return nil
		case <-ticker.C:
			if expired := w.engine.ExpireLocks(ctx, w.now()); len(expired) > 0 {
				w.log.Info("Expired locks released", "count", len(expired))
			}
		}
	}
}
