package observability

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordEdit(t *testing.T) {
	req := require.New(t)
	m := NewMetrics()

	for i := 0; i < 5; i++ {
		m.RecordEdit()
	}

	req.Equal(uint64(5), m.Snapshot().TotalEdits)
}

func TestMetrics_ActiveUsersDeduplicated(t *testing.T) {
	req := require.New(t)
	m := NewMetrics()

	m.AddActiveUser("u1")
	m.AddActiveUser("u1")

	req.Equal([]string{"u1"}, m.Snapshot().ActiveUsers)

	m.RemoveActiveUser("u1")
	req.Empty(m.Snapshot().ActiveUsers)
}

func TestMetrics_SnapshotIsACopy(t *testing.T) {
	req := require.New(t)
	m := NewMetrics()
	m.AddActiveUser("u1")

	snap := m.Snapshot()
	snap.ActiveUsers[0] = "mutated"

	req.Equal([]string{"u1"}, m.Snapshot().ActiveUsers)
}

func TestMetrics_ConcurrentCounters(t *testing.T) {
	req := require.New(t)
	m := NewMetrics()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordSession()
			m.RecordConflicts(2)
			m.RecordConflicts(0)
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	req.Equal(uint64(50), snap.TotalSessions)
	req.Equal(uint64(100), snap.TotalConflicts)
}

func TestMetrics_PeakActiveUsers(t *testing.T) {
	req := require.New(t)
	m := NewMetrics()

	// Given three users who were online together
	m.AddActiveUser("u1")
	m.AddActiveUser("u2")
	m.AddActiveUser("u3")

	// When two of them leave
	m.RemoveActiveUser("u1")
	m.RemoveActiveUser("u2")

	// Then the peak keeps the high-water mark
	snap := m.Snapshot()
	req.Equal(3, snap.PeakActiveUsers)
	req.Equal([]string{"u3"}, snap.ActiveUsers)
}

func TestMetrics_SessionDuration(t *testing.T) {
	req := require.New(t)
	m := NewMetrics()
	created := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	_, ok := m.SessionDuration("s1")
	req.False(ok)

	m.RecordSessionEnd("s1", created, created.Add(90*time.Second))

	d, ok := m.SessionDuration("s1")
	req.True(ok)
	req.Equal(90*time.Second, d)
	req.Equal(map[string]time.Duration{"s1": 90 * time.Second}, m.Snapshot().SessionDurations)
}

func TestMetrics_Reset(t *testing.T) {
	req := require.New(t)
	m := NewMetrics()
	created := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	// Given counters, durations and a past peak
	m.RecordSession()
	m.RecordEdit()
	m.RecordConflicts(3)
	m.RecordAuditFailure()
	m.RecordDroppedEvent()
	m.RecordDroppedJob()
	m.RecordSessionEnd("s1", created, created.Add(time.Minute))
	m.AddActiveUser("u1")
	m.AddActiveUser("u2")
	m.RemoveActiveUser("u1")

	// When
	m.Reset()

	// Then counters restart while live membership stays
	snap := m.Snapshot()
	req.Zero(snap.TotalSessions)
	req.Zero(snap.TotalEdits)
	req.Zero(snap.TotalConflicts)
	req.Zero(snap.AuditFailures)
	req.Zero(snap.DroppedEvents)
	req.Zero(snap.DroppedJobs)
	req.Empty(snap.SessionDurations)
	req.Equal(1, snap.PeakActiveUsers)
	req.Equal([]string{"u2"}, snap.ActiveUsers)
}
