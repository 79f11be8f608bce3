package domain

import "time"

// FileLock is an exclusivity guarantee over a file.
// SessionID is set when the lock was taken through a session.
type FileLock struct {
	FileID    string
	LockedBy  string
	SessionID string
	LockedAt  time.Time
	ExpiresAt *time.Time
}

func (l FileLock) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

type LockPage struct {
	Locks      []FileLock
	Total      int
	Page       int
	TotalPages int
}
