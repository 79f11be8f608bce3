package runtime

import (
	"collab-engine/domain"
	"collab-engine/errors"
	"collab-engine/internal/shard"
	"fmt"
	"sort"
	"time"
)

// LockManager is the exclusive-lock table keyed by file id.
// At most one live lock exists per file; operations on one file serialize
// on its shard while other files proceed.
type LockManager struct {
	locks *shard.Table[domain.FileLock]
	ttl   time.Duration
	now   func() time.Time
}

type LockOption func(*LockManager)

// WithLockTTL makes every acquired lock expire after ttl. Zero disables expiry.
func WithLockTTL(ttl time.Duration) LockOption {
	return func(m *LockManager) { m.ttl = ttl }
}

func WithLockClock(now func() time.Time) LockOption {
	return func(m *LockManager) { m.now = now }
}

func NewLockManager(opts ...LockOption) *LockManager {
	m := &LockManager{locks: shard.NewTable[domain.FileLock](), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *LockManager) Acquire(fileID, userID string) (domain.FileLock, error) {
	return m.AcquireFor(fileID, userID, "")
}

// AcquireFor locks fileID for userID on behalf of sessionID (may be empty).
// Re-acquiring by the current owner refreshes LockedAt and the expiry.
func (m *LockManager) AcquireFor(fileID, userID, sessionID string) (domain.FileLock, error) {
	if fileID == "" || userID == "" {
		return domain.FileLock{}, fmt.Errorf("%w: fileId and userId are required", errors.ErrInvalidCommand)
	}

	var (
		lock domain.FileLock
		err  error
	)
	m.locks.Update(fileID, func(items map[string]domain.FileLock) {
		now := m.now()
		current, held := items[fileID]
		if held && current.ExpiredAt(now) {
			held = false
		}
		if held && current.LockedBy != userID {
			err = &errors.FileLockedError{FileID: fileID, Owner: current.LockedBy}
			return
		}
		if held && sessionID == "" {
			sessionID = current.SessionID
		}
		lock = domain.FileLock{
			FileID:    fileID,
			LockedBy:  userID,
			SessionID: sessionID,
			LockedAt:  now,
			ExpiresAt: m.expiry(now, m.ttl),
		}
		items[fileID] = lock
	})
	return lock, err
}

// Release drops the lock on fileID if any. It never fails.
func (m *LockManager) Release(fileID string) (domain.FileLock, bool) {
	var (
		previous domain.FileLock
		existed  bool
	)
	m.locks.Update(fileID, func(items map[string]domain.FileLock) {
		previous, existed = items[fileID]
		delete(items, fileID)
	})
	return previous, existed
}

// ReleaseOwned drops the lock only when userID owns it.
// No lock is not an error; a lock owned by someone else is.
func (m *LockManager) ReleaseOwned(fileID, userID string) (domain.FileLock, bool, error) {
	var (
		previous domain.FileLock
		released bool
		err      error
	)
	m.locks.Update(fileID, func(items map[string]domain.FileLock) {
		current, held := items[fileID]
		if !held || current.ExpiredAt(m.now()) {
			delete(items, fileID)
			return
		}
		if current.LockedBy != userID {
			err = &errors.FileLockedError{FileID: fileID, Owner: current.LockedBy}
			return
		}
		delete(items, fileID)
		previous, released = current, true
	})
	return previous, released, err
}

func (m *LockManager) IsLocked(fileID string) bool {
	_, ok := m.Get(fileID)
	return ok
}

// Get returns the live lock on fileID, ignoring expired ones.
func (m *LockManager) Get(fileID string) (domain.FileLock, bool) {
	lock, ok := m.locks.Get(fileID)
	if !ok || lock.ExpiredAt(m.now()) {
		return domain.FileLock{}, false
	}
	return lock, true
}

func (m *LockManager) Owner(fileID string) (string, bool) {
	lock, ok := m.Get(fileID)
	return lock.LockedBy, ok
}

// Extend pushes the expiry of a lock held by userID to now+ttl.
func (m *LockManager) Extend(fileID, userID string, ttl time.Duration) (domain.FileLock, error) {
	if ttl <= 0 {
		return domain.FileLock{}, fmt.Errorf("%w: ttl must be positive", errors.ErrInvalidCommand)
	}
	var (
		lock domain.FileLock
		err  error
	)
	m.locks.Update(fileID, func(items map[string]domain.FileLock) {
		now := m.now()
		current, held := items[fileID]
		switch {
		case !held || current.ExpiredAt(now):
			err = fmt.Errorf("%w: %s on %s", errors.ErrLockNotHeld, userID, fileID)
		case current.LockedBy != userID:
			err = &errors.FileLockedError{FileID: fileID, Owner: current.LockedBy}
		default:
			current.ExpiresAt = m.expiry(now, ttl)
			items[fileID] = current
			lock = current
		}
	})
	return lock, err
}

// ReleaseWhere drops every lock matching pred and returns them.
func (m *LockManager) ReleaseWhere(pred func(domain.FileLock) bool) []domain.FileLock {
	var released []domain.FileLock
	m.locks.Range(func(items map[string]domain.FileLock) {
		for fileID, lock := range items {
			if pred(lock) {
				delete(items, fileID)
				released = append(released, lock)
			}
		}
	})
	return released
}

// Sweep drops locks expired at now.
func (m *LockManager) Sweep(now time.Time) []domain.FileLock {
	return m.ReleaseWhere(func(l domain.FileLock) bool { return l.ExpiredAt(now) })
}

// List pages through live locks ordered by acquisition time.
func (m *LockManager) List(page, limit int) domain.LockPage {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	now := m.now()
	var all []domain.FileLock
	m.locks.Each(func(_ string, lock domain.FileLock) bool {
		if !lock.ExpiredAt(now) {
			all = append(all, lock)
		}
		return true
	})
	sort.Slice(all, func(i, j int) bool {
		if !all[i].LockedAt.Equal(all[j].LockedAt) {
			return all[i].LockedAt.Before(all[j].LockedAt)
		}
		return all[i].FileID < all[j].FileID
	})

	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))
	return domain.LockPage{
		Locks:      append([]domain.FileLock{}, all[start:end]...),
		Total:      len(all),
		Page:       page,
		TotalPages: (len(all) + limit - 1) / limit,
	}
}

// Clear drops every lock and returns how many were held.
func (m *LockManager) Clear() int {
	return len(m.ReleaseWhere(func(domain.FileLock) bool { return true }))
}

func (m *LockManager) expiry(now time.Time, ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	at := now.Add(ttl)
	return &at
}
