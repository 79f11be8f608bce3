package domain

import "time"

// ConflictRecord notes a field where both sides diverged from the base
// and from each other. It is data, never an error.
type ConflictRecord struct {
	Field             string
	BaseValue         any
	UserValue         any
	CollaboratorValue any
}

// Metrics is a read-only snapshot of the usage counters.
// SessionDurations holds sessions ended since the last reset.
type Metrics struct {
	TotalSessions    uint64
	TotalEdits       uint64
	TotalConflicts   uint64
	AuditFailures    uint64
	DroppedEvents    uint64
	DroppedJobs      uint64
	PeakActiveUsers  int
	ActiveUsers      []string
	SessionDurations map[string]time.Duration
}
