// Package audit keeps an append-only, human-readable trail of engine actions.
package audit

import (
	"collab-engine/errors"
	"fmt"
	"time"
)

// Sink is the durable append-only storage behind the audit log.
type Sink interface {
	Append(line string) error
	Tail(limit int) ([]string, error)
	Clear() error
}

// Entry is one audit record before formatting.
type Entry struct {
	SessionID string
	UserID    string
	Action    string
	Details   string
	At        time.Time
}

// Format renders "<ts> | Session: <id> | User: <id> | Action: <a> | Details: <d>".
func (e Entry) Format() string {
	return fmt.Sprintf("%s | Session: %s | User: %s | Action: %s | Details: %s",
		e.At.UTC().Format(time.RFC3339Nano), e.SessionID, e.UserID, e.Action, e.Details)
}

type Log struct {
	sink Sink
	now  func() time.Time
}

func NewLog(sink Sink, now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{sink: sink, now: now}
}

// Append writes one line. Sink failures come back as *errors.AuditWriteError.
func (l *Log) Append(sessionID, userID, action, details string) error {
	return l.Write(Entry{
		SessionID: sessionID,
		UserID:    userID,
		Action:    action,
		Details:   details,
		At:        l.now(),
	})
}

func (l *Log) Write(e Entry) error {
	if e.At.IsZero() {
		e.At = l.now()
	}
	if err := l.sink.Append(e.Format()); err != nil {
		return &errors.AuditWriteError{Cause: err}
	}
	return nil
}

// Tail returns the most recent limit lines, oldest first.
func (l *Log) Tail(limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	return l.sink.Tail(limit)
}

func (l *Log) Clear() error {
	if err := l.sink.Clear(); err != nil {
		return &errors.AuditWriteError{Cause: err}
	}
	return nil
}
