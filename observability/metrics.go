package observability

import (
	"collab-engine/domain"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// Metrics aggregates usage counters for the engine.
// Counters only grow until Reset; ActiveUsers mirrors current membership.
type Metrics struct {
	totalSessions  uint64
	totalEdits     uint64
	totalConflicts uint64
	auditFailures  uint64
	droppedEvents  uint64
	droppedJobs    uint64

	mu          sync.RWMutex
	activeUsers map[string]struct{}
	peakActive  int
	durations   map[string]time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{
		activeUsers: make(map[string]struct{}),
		durations:   make(map[string]time.Duration),
	}
}

func (m *Metrics) RecordSession() {
	atomic.AddUint64(&m.totalSessions, 1)
}

func (m *Metrics) RecordEdit() {
	atomic.AddUint64(&m.totalEdits, 1)
}

func (m *Metrics) RecordConflicts(n int) {
	if n <= 0 {
		return
	}
	atomic.AddUint64(&m.totalConflicts, uint64(n))
}

func (m *Metrics) RecordAuditFailure() {
	atomic.AddUint64(&m.auditFailures, 1)
}

// RecordDroppedEvent counts an event the pipeline gave up on.
func (m *Metrics) RecordDroppedEvent() {
	atomic.AddUint64(&m.droppedEvents, 1)
}

func (m *Metrics) RecordDroppedJob() {
	atomic.AddUint64(&m.droppedJobs, 1)
}

// RecordSessionEnd keeps how long the session stayed open.
func (m *Metrics) RecordSessionEnd(sessionID string, created, ended time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[sessionID] = ended.Sub(created)
}

// SessionDuration is false for sessions not ended since the last reset.
func (m *Metrics) SessionDuration(sessionID string) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.durations[sessionID]
	return d, ok
}

// AddActiveUser is idempotent.
func (m *Metrics) AddActiveUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeUsers[userID] = struct{}{}
	if len(m.activeUsers) > m.peakActive {
		m.peakActive = len(m.activeUsers)
	}
}

func (m *Metrics) RemoveActiveUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.activeUsers, userID)
}

// Reset zeroes the counters and forgets recorded durations.
// ActiveUsers is live membership and survives; the peak restarts from it.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.StoreUint64(&m.totalSessions, 0)
	atomic.StoreUint64(&m.totalEdits, 0)
	atomic.StoreUint64(&m.totalConflicts, 0)
	atomic.StoreUint64(&m.auditFailures, 0)
	atomic.StoreUint64(&m.droppedEvents, 0)
	atomic.StoreUint64(&m.droppedJobs, 0)
	m.durations = make(map[string]time.Duration)
	m.peakActive = len(m.activeUsers)
}

// Snapshot returns a copy; ActiveUsers is sorted.
func (m *Metrics) Snapshot() domain.Metrics {
	m.mu.RLock()
	users := lo.Keys(m.activeUsers)
	peak := m.peakActive
	durations := lo.Assign(m.durations)
	m.mu.RUnlock()
	sort.Strings(users)

	return domain.Metrics{
		TotalSessions:    atomic.LoadUint64(&m.totalSessions),
		TotalEdits:       atomic.LoadUint64(&m.totalEdits),
		TotalConflicts:   atomic.LoadUint64(&m.totalConflicts),
		AuditFailures:    atomic.LoadUint64(&m.auditFailures),
		DroppedEvents:    atomic.LoadUint64(&m.droppedEvents),
		DroppedJobs:      atomic.LoadUint64(&m.droppedJobs),
		PeakActiveUsers:  peak,
		ActiveUsers:      users,
		SessionDurations: durations,
	}
}
