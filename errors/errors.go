package errors

import (
	"fmt"
	"time"
)

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrSessionNotFound     = fmt.Errorf("session not found")
	ErrSessionEnded        = fmt.Errorf("session ended")
	ErrSessionActive       = fmt.Errorf("session has not ended")
	ErrDuplicateSession    = fmt.Errorf("an active session already exists for this file")
	ErrFileLocked          = fmt.Errorf("file is locked")
	ErrLockNotHeld         = fmt.Errorf("lock not held by user")
	ErrInvalidMergeInput   = fmt.Errorf("invalid merge input")
	ErrInvalidEvent        = fmt.Errorf("invalid event")
	ErrAuditWrite          = fmt.Errorf("audit write failed")
	ErrInvalidCommand      = fmt.Errorf("invalid command")
	ErrNotParticipant      = fmt.Errorf("user is not a participant of the session")
	ErrReadOnlyParticipant = fmt.Errorf("participant role does not allow edits")
	ErrUnauthenticated     = fmt.Errorf("unauthenticated")
	ErrForbidden           = fmt.Errorf("caller is not allowed to perform this action")
)

// SessionNotFoundError is returned when no session exists for the given id.
// Ending a session twice also returns it, with EndedAt set; it then matches
// ErrSessionEnded too.
type SessionNotFoundError struct {
	SessionID string
	EndedAt   *time.Time
}

func (e *SessionNotFoundError) Error() string {
	if e.EndedAt != nil {
		return fmt.Sprintf("session %s not found: ended at %s", e.SessionID, e.EndedAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("session %s not found", e.SessionID)
}

func (e *SessionNotFoundError) Is(target error) bool {
	return target == ErrSessionNotFound || (target == ErrSessionEnded && e.EndedAt != nil)
}

// SessionEndedError is returned for any mutation attempted on an ended session.
type SessionEndedError struct {
	SessionID string
	EndedAt   time.Time
}

func (e *SessionEndedError) Error() string {
	return fmt.Sprintf("session %s ended at %s", e.SessionID, e.EndedAt.Format(time.RFC3339))
}

func (e *SessionEndedError) Is(target error) bool { return target == ErrSessionEnded }

type DuplicateSessionError struct {
	FileID    string
	SessionID string
}

func (e *DuplicateSessionError) Error() string {
	return fmt.Sprintf("file %s already has active session %s", e.FileID, e.SessionID)
}

func (e *DuplicateSessionError) Is(target error) bool { return target == ErrDuplicateSession }

// FileLockedError carries the current owner so clients can show "locked by X".
type FileLockedError struct {
	FileID string
	Owner  string
}

func (e *FileLockedError) Error() string {
	return fmt.Sprintf("file %s is locked by %s", e.FileID, e.Owner)
}

func (e *FileLockedError) Is(target error) bool { return target == ErrFileLocked }

type InvalidMergeInputError struct {
	Argument string
}

func (e *InvalidMergeInputError) Error() string {
	return fmt.Sprintf("invalid merge input: %s is missing", e.Argument)
}

func (e *InvalidMergeInputError) Is(target error) bool { return target == ErrInvalidMergeInput }

type InvalidEventError struct {
	Field string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid event: %s is required", e.Field)
}

func (e *InvalidEventError) Is(target error) bool { return target == ErrInvalidEvent }

// AuditWriteError wraps the sink failure.
type AuditWriteError struct {
	Cause error
}

func (e *AuditWriteError) Error() string {
	return fmt.Sprintf("audit write failed: %v", e.Cause)
}

func (e *AuditWriteError) Is(target error) bool { return target == ErrAuditWrite }

func (e *AuditWriteError) Unwrap() error { return e.Cause }
