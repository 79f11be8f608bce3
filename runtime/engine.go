// Package runtime owns the live state of the collaboration engine: sessions,
// rosters, file locks and their per-key serialization.
// Side effects are queued on the outbox before the key lock is released, so
// the events and store writes of one session leave in the order they happened.
// The outbox bounds each enqueue; the I/O itself runs in the workers.
package runtime

import (
	"collab-engine/audit"
	"collab-engine/contract"
	"collab-engine/domain"
	"collab-engine/domain/event"
	"collab-engine/errors"
	"collab-engine/internal/shard"
	"collab-engine/merge"
	"collab-engine/observability"
	"collab-engine/projection"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// systemUser authors events no participant triggered (session end, lock expiry).
const systemUser = "system"

const defaultStoreTimeout = 2 * time.Second

// Engine is the session registry. Every operation on one session runs under
// that session's key; session creation and ending also hold the file key.
// Key order is always file then session.
type Engine struct {
	log          *slog.Logger
	keys         *KeyedMutex
	sessions     *shard.Table[*domain.Session]
	active       *shard.Table[string]
	directory    *Directory
	locks        *LockManager
	history      *projection.History
	resolver     merge.Resolver
	metrics      *observability.Metrics
	audit        *audit.Log
	store        contract.PersistenceStore
	outbox       contract.Outbox
	storeTimeout time.Duration
	now          func() time.Time
	newID        func() string
}

type EngineOption func(*Engine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) EngineOption {
	return func(e *Engine) { e.newID = newID }
}

func WithStoreTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.storeTimeout = d }
}

func WithResolver(r merge.Resolver) EngineOption {
	return func(e *Engine) { e.resolver = r }
}

func WithAuditLog(l *audit.Log) EngineOption {
	return func(e *Engine) { e.audit = l }
}

// WithStore makes the engine read through to store on cache misses and
// persist every mutation through the outbox.
func WithStore(store contract.PersistenceStore) EngineOption {
	return func(e *Engine) { e.store = store }
}

func NewEngine(log *slog.Logger, outbox contract.Outbox, locks *LockManager,
	history *projection.History, metrics *observability.Metrics, opts ...EngineOption) *Engine {
	e := &Engine{
		log:          log,
		keys:         NewKeyedMutex(),
		sessions:     shard.NewTable[*domain.Session](),
		active:       shard.NewTable[string](),
		directory:    NewDirectory(),
		locks:        locks,
		history:      history,
		resolver:     merge.NewResolver(),
		metrics:      metrics,
		outbox:       outbox,
		storeTimeout: defaultStoreTimeout,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// effects collects what a critical section wants to send out.
type effects struct {
	events []event.Event
	jobs   []contract.Job
}

func (e *Engine) flush(ctx context.Context, fx effects) {
	for _, evt := range fx.events {
		e.outbox.Publish(ctx, evt)
	}
	for _, job := range fx.jobs {
		e.outbox.Submit(ctx, job)
	}
}

func sessionKey(id string) string { return "session:" + id }
func fileKey(id string) string    { return "file:" + id }

func (e *Engine) Locks() *LockManager { return e.locks }

func (e *Engine) Directory() *Directory { return e.directory }

// CreateSession opens a session for fileID. Only one active session may
// exist per file.
func (e *Engine) CreateSession(ctx context.Context, fileID string) (domain.Session, error) {
	if fileID == "" {
		return domain.Session{}, fmt.Errorf("%w: fileId is required", errors.ErrInvalidCommand)
	}
	var fx effects
	unlockFile := e.keys.Lock(fileKey(fileID))
	defer unlockFile()
	if id, ok := e.active.Get(fileID); ok {
		return domain.Session{}, &errors.DuplicateSessionError{FileID: fileID, SessionID: id}
	}
	id := e.newID()
	unlockSession := e.keys.Lock(sessionKey(id))
	defer unlockSession()

	s := e.createLocked(fileID, id, &fx)
	e.flush(ctx, fx)
	return s.Snapshot(), nil
}

// createLocked runs under the file key and the key of the new session id,
// so nobody can reach the session before its creation is queued. The active
// table is authoritative under the file key since EndSession also holds it.
func (e *Engine) createLocked(fileID, id string, fx *effects) *domain.Session {
	s := domain.NewSession(id, fileID, e.now().UTC())
	e.sessions.Update(s.ID, func(items map[string]*domain.Session) { items[s.ID] = s })
	e.active.Update(fileID, func(items map[string]string) { items[fileID] = s.ID })
	e.metrics.RecordSession()

	e.log.Info("Session created", "session_id", s.ID, "file_id", fileID)
	fx.jobs = append(fx.jobs, e.saveSessionJob(s.Snapshot()))
	fx.jobs = append(fx.jobs, e.auditJob(s.ID, systemUser, "create-session", "fileId="+fileID)...)
	return s
}

// Join returns the active session of fileID, creating it on first join,
// and adds userID to it.
func (e *Engine) Join(ctx context.Context, fileID, userID string, role domain.Role) (domain.Session, error) {
	if fileID == "" || userID == "" {
		return domain.Session{}, fmt.Errorf("%w: fileId and userId are required", errors.ErrInvalidCommand)
	}
	var fx effects
	unlockFile := e.keys.Lock(fileKey(fileID))
	defer unlockFile()
	var s *domain.Session
	if id, ok := e.active.Get(fileID); ok {
		s, _ = e.sessions.Get(id)
	}
	var id string
	if s != nil {
		id = s.ID
	} else {
		id = e.newID()
	}
	unlockSession := e.keys.Lock(sessionKey(id))
	defer unlockSession()
	if s == nil {
		s = e.createLocked(fileID, id, &fx)
	}

	err := e.addLocked(s, userID, role, &fx)
	e.flush(ctx, fx)
	if err != nil {
		return domain.Session{}, err
	}
	return s.Snapshot(), nil
}

func (e *Engine) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	s, err := e.lookup(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	unlock := e.keys.Lock(sessionKey(sessionID))
	defer unlock()
	return s.Snapshot(), nil
}

// ActiveSession returns the live session of fileID, if any.
func (e *Engine) ActiveSession(fileID string) (domain.Session, bool) {
	id, ok := e.active.Get(fileID)
	if !ok {
		return domain.Session{}, false
	}
	s, ok := e.sessions.Get(id)
	if !ok {
		return domain.Session{}, false
	}
	unlock := e.keys.Lock(sessionKey(id))
	defer unlock()
	return s.Snapshot(), true
}

// ListSessions returns every known session, oldest first.
func (e *Engine) ListSessions() []domain.Session {
	var cached []*domain.Session
	e.sessions.Each(func(_ string, s *domain.Session) bool {
		cached = append(cached, s)
		return true
	})
	res := make([]domain.Session, 0, len(cached))
	for _, s := range cached {
		unlock := e.keys.Lock(sessionKey(s.ID))
		res = append(res, s.Snapshot())
		unlock()
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res
}

// EndSession marks the session ended, empties its roster and releases the
// locks its participants hold before returning.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	s, err := e.lookup(ctx, sessionID)
	if err != nil {
		return err
	}
	var fx effects
	unlockFile := e.keys.Lock(fileKey(s.FileID))
	defer unlockFile()
	unlockSession := e.keys.Lock(sessionKey(sessionID))
	defer unlockSession()
	if err := e.endLocked(s, &fx); err != nil {
		return err
	}
	e.flush(ctx, fx)
	return nil
}

// endLocked treats an ended session as gone: the error matches both
// ErrSessionNotFound and ErrSessionEnded.
func (e *Engine) endLocked(s *domain.Session, fx *effects) error {
	if s.IsEnded() {
		endedAt := *s.EndedAt
		return &errors.SessionNotFoundError{SessionID: s.ID, EndedAt: &endedAt}
	}
	released := e.locks.ReleaseWhere(func(l domain.FileLock) bool {
		return l.SessionID == s.ID || (l.FileID == s.FileID && s.HasParticipant(l.LockedBy))
	})
	at := e.now().UTC()
	s.End(at)
	s.Participants = []string{}
	e.active.Update(s.FileID, func(items map[string]string) {
		if items[s.FileID] == s.ID {
			delete(items, s.FileID)
		}
	})
	e.metrics.RecordSessionEnd(s.ID, s.CreatedAt, at)

	for _, l := range released {
		e.record(s.ID, event.LockReleasedType, l.LockedBy, event.LockReleased(l.FileID), fx)
	}

	for _, p := range e.directory.Drop(s.ID) {
		if !e.directory.IsMember(p.UserID) {
			e.metrics.RemoveActiveUser(p.UserID)
		}
		fx.jobs = append(fx.jobs, e.deleteParticipantJob(s.ID, p.UserID))
	}

	e.record(s.ID, event.SessionEndedType, systemUser, event.SessionEnded(), fx)
	fx.jobs = append(fx.jobs, e.saveSessionJob(s.Snapshot()))
	fx.jobs = append(fx.jobs, e.auditJob(s.ID, systemUser, "end-session",
		fmt.Sprintf("releasedLocks=%d", len(released)))...)
	e.log.Info("Session ended", "session_id", s.ID, "released_locks", len(released))
	return nil
}

// AddParticipant adds userID to the session. Adding someone already there
// changes nothing and emits nothing.
func (e *Engine) AddParticipant(ctx context.Context, sessionID, userID string, role domain.Role) error {
	if userID == "" {
		return fmt.Errorf("%w: userId is required", errors.ErrInvalidCommand)
	}
	s, err := e.lookup(ctx, sessionID)
	if err != nil {
		return err
	}
	var fx effects
	unlock := e.keys.Lock(sessionKey(sessionID))
	defer unlock()
	err = e.addLocked(s, userID, role, &fx)
	e.flush(ctx, fx)
	return err
}

func (e *Engine) addLocked(s *domain.Session, userID string, role domain.Role, fx *effects) error {
	if s.IsEnded() {
		return &errors.SessionEndedError{SessionID: s.ID, EndedAt: *s.EndedAt}
	}
	if role == "" {
		role = domain.RoleViewer
	}
	if !s.AddParticipant(userID) {
		return nil
	}
	p := domain.Participant{SessionID: s.ID, UserID: userID, Role: role, JoinedAt: e.now().UTC()}
	e.directory.Add(p)
	e.metrics.AddActiveUser(userID)

	e.record(s.ID, event.JoinType, userID, event.Join(userID), fx)
	fx.jobs = append(fx.jobs, e.saveSessionJob(s.Snapshot()), e.saveParticipantJob(p))
	fx.jobs = append(fx.jobs, e.auditJob(s.ID, userID, "join", "role="+string(role))...)
	return nil
}

// RemoveParticipant never fails: unknown sessions or users are ignored.
// The leaver's lock on the session file goes with them.
func (e *Engine) RemoveParticipant(ctx context.Context, sessionID, userID string) {
	s, err := e.lookup(ctx, sessionID)
	if err != nil {
		return
	}
	var fx effects
	unlock := e.keys.Lock(sessionKey(sessionID))
	defer unlock()
	e.removeLocked(s, userID, &fx)
	e.flush(ctx, fx)
}

func (e *Engine) removeLocked(s *domain.Session, userID string, fx *effects) {
	if s.IsEnded() || !s.RemoveParticipant(userID) {
		return
	}
	e.directory.Remove(s.ID, userID)
	if !e.directory.IsMember(userID) {
		e.metrics.RemoveActiveUser(userID)
	}

	if lock, released, _ := e.locks.ReleaseOwned(s.FileID, userID); released {
		e.record(s.ID, event.LockReleasedType, userID, event.LockReleased(lock.FileID), fx)
	}
	e.record(s.ID, event.LeaveType, userID, event.Leave(userID), fx)
	fx.jobs = append(fx.jobs, e.saveSessionJob(s.Snapshot()), e.deleteParticipantJob(s.ID, userID))
	fx.jobs = append(fx.jobs, e.auditJob(s.ID, userID, "leave", "")...)
}

// AssignRole changes the role of a participant. Assigning the role a user
// already has changes nothing and emits nothing.
func (e *Engine) AssignRole(ctx context.Context, sessionID, userID string, role domain.Role) error {
	if userID == "" {
		return fmt.Errorf("%w: userId is required", errors.ErrInvalidCommand)
	}
	if _, err := domain.ParseRole(string(role)); err != nil || role == "" {
		return fmt.Errorf("%w: role %q", errors.ErrInvalidCommand, role)
	}
	s, err := e.lookup(ctx, sessionID)
	if err != nil {
		return err
	}
	var fx effects
	unlock := e.keys.Lock(sessionKey(sessionID))
	defer unlock()
	if err := e.memberLocked(s, userID); err != nil {
		return err
	}
	if current, ok := e.directory.Participant(s.ID, userID); ok && current.Role == role {
		return nil
	}
	p, ok := e.directory.SetRole(s.ID, userID, role)
	if !ok {
		return fmt.Errorf("%w: %s in %s", errors.ErrNotParticipant, userID, s.ID)
	}

	e.record(s.ID, event.RoleChangedType, userID, event.RoleChanged(userID, role), &fx)
	fx.jobs = append(fx.jobs, e.saveParticipantJob(p))
	fx.jobs = append(fx.jobs, e.auditJob(s.ID, userID, "assign-role", "role="+string(role))...)
	e.flush(ctx, fx)
	return nil
}

// ListParticipants returns the roster in join order. Never nil.
func (e *Engine) ListParticipants(sessionID string) []string {
	return e.directory.List(sessionID)
}

func (e *Engine) Participants(sessionID string) []domain.Participant {
	return e.directory.Participants(sessionID)
}

// AcquireLock locks the session file for a participant.
func (e *Engine) AcquireLock(ctx context.Context, sessionID, userID string) (domain.FileLock, error) {
	s, err := e.lookup(ctx, sessionID)
	if err != nil {
		return domain.FileLock{}, err
	}
	var (
		fx   effects
		lock domain.FileLock
	)
	unlock := e.keys.Lock(sessionKey(sessionID))
	defer unlock()
	if err := e.memberLocked(s, userID); err != nil {
		return domain.FileLock{}, err
	}
	lock, err = e.locks.AcquireFor(s.FileID, userID, s.ID)
	if err != nil {
		return domain.FileLock{}, err
	}
	e.record(s.ID, event.LockAcquiredType, userID, event.LockAcquired(s.FileID, userID), &fx)
	fx.jobs = append(fx.jobs, e.auditJob(s.ID, userID, "lock", "fileId="+s.FileID)...)
	e.flush(ctx, fx)
	return lock, nil
}

// ReleaseLock drops userID's lock on the session file. Releasing a lock
// that is not held is a no-op; releasing someone else's lock fails.
func (e *Engine) ReleaseLock(ctx context.Context, sessionID, userID string) error {
	s, err := e.lookup(ctx, sessionID)
	if err != nil {
		return err
	}
	var fx effects
	unlock := e.keys.Lock(sessionKey(sessionID))
	defer unlock()
	lock, released, err := e.locks.ReleaseOwned(s.FileID, userID)
	if err != nil {
		return err
	}
	if released {
		e.record(s.ID, event.LockReleasedType, userID, event.LockReleased(lock.FileID), &fx)
		fx.jobs = append(fx.jobs, e.auditJob(s.ID, userID, "unlock", "fileId="+s.FileID)...)
	}
	e.flush(ctx, fx)
	return nil
}

// Edit merges cmd.Changes, made on top of cmd.Base, into the current
// session content. Only the fields the user touched are written back.
func (e *Engine) Edit(ctx context.Context, cmd domain.EditCommand) (domain.EditResult, error) {
	if cmd.UserID == "" {
		return domain.EditResult{}, fmt.Errorf("%w: userId is required", errors.ErrInvalidCommand)
	}
	s, err := e.lookup(ctx, cmd.SessionID)
	if err != nil {
		return domain.EditResult{}, err
	}
	var (
		fx     effects
		result domain.EditResult
	)
	unlock := e.keys.Lock(sessionKey(cmd.SessionID))
	defer unlock()
	result, err = e.editLocked(s, cmd, &fx)
	if err != nil {
		return domain.EditResult{}, err
	}
	e.flush(ctx, fx)
	return result, nil
}

func (e *Engine) editLocked(s *domain.Session, cmd domain.EditCommand, fx *effects) (domain.EditResult, error) {
	if err := e.memberLocked(s, cmd.UserID); err != nil {
		return domain.EditResult{}, err
	}
	if p, ok := e.directory.Participant(s.ID, cmd.UserID); ok && !p.Role.CanEdit() {
		return domain.EditResult{}, fmt.Errorf("%w: %s is %s", errors.ErrReadOnlyParticipant, cmd.UserID, p.Role)
	}
	if owner, locked := e.locks.Owner(s.FileID); locked && owner != cmd.UserID {
		return domain.EditResult{}, &errors.FileLockedError{FileID: s.FileID, Owner: owner}
	}

	current := s.Content
	if current == nil {
		current = domain.Fields{}
	}
	merged, err := e.resolver.Resolve(cmd.Base, cmd.Changes, current)
	if err != nil {
		return domain.EditResult{}, err
	}

	touched := lo.PickByKeys(merged.Content, lo.Keys(map[string]any(cmd.Changes)))
	s.ApplyUpdate(domain.Update{
		UserID:    cmd.UserID,
		Fields:    touched,
		Conflicts: merged.Conflicts,
		At:        e.now().UTC(),
	})
	e.metrics.RecordEdit()
	e.metrics.RecordConflicts(len(merged.Conflicts))

	e.record(s.ID, event.EditType, cmd.UserID, event.Edit(touched, merged.Conflicts), fx)
	fx.jobs = append(fx.jobs, e.saveSessionJob(s.Snapshot()))
	fx.jobs = append(fx.jobs, e.auditJob(s.ID, cmd.UserID, "edit",
		fmt.Sprintf("fields=%d conflicts=%d", len(touched), len(merged.Conflicts)))...)

	if len(merged.Conflicts) > 0 {
		e.log.Debug("Edit merged with conflicts", "session_id", s.ID, "user_id", cmd.UserID,
			"conflicts", len(merged.Conflicts))
	}
	return domain.EditResult{
		Resolved:  merged.Content,
		Conflicts: merged.Conflicts,
		Content:   s.Content.Clone(),
	}, nil
}

func (e *Engine) memberLocked(s *domain.Session, userID string) error {
	if s.IsEnded() {
		return &errors.SessionEndedError{SessionID: s.ID, EndedAt: *s.EndedAt}
	}
	if !s.HasParticipant(userID) {
		return fmt.Errorf("%w: %s in %s", errors.ErrNotParticipant, userID, s.ID)
	}
	return nil
}

// ListEvents returns the session timeline, oldest first.
func (e *Engine) ListEvents(ctx context.Context, sessionID string) ([]event.Event, error) {
	if _, err := e.lookup(ctx, sessionID); err != nil {
		return nil, err
	}
	return e.history.ListForSession(sessionID), nil
}

func (e *Engine) Metrics() domain.Metrics {
	return e.metrics.Snapshot()
}

// ResetMetrics zeroes the usage counters. Live membership is kept.
func (e *Engine) ResetMetrics() {
	e.metrics.Reset()
	e.log.Info("Metrics reset")
}

// SessionDuration is how long an ended session stayed open.
func (e *Engine) SessionDuration(ctx context.Context, sessionID string) (time.Duration, error) {
	s, err := e.lookup(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	unlock := e.keys.Lock(sessionKey(sessionID))
	defer unlock()
	if !s.IsEnded() {
		return 0, fmt.Errorf("%w: %s", errors.ErrSessionActive, sessionID)
	}
	return s.EndedAt.Sub(s.CreatedAt), nil
}

// ExpireLocks releases every lock whose TTL elapsed at now.
func (e *Engine) ExpireLocks(ctx context.Context, now time.Time) []domain.FileLock {
	expired := e.locks.Sweep(now)
	for _, l := range expired {
		e.log.Info("Lock expired", "file_id", l.FileID, "user_id", l.LockedBy)
		if l.SessionID == "" {
			continue
		}
		var fx effects
		unlock := e.keys.Lock(sessionKey(l.SessionID))
		e.record(l.SessionID, event.LockReleasedType, l.LockedBy, event.LockReleased(l.FileID), &fx)
		fx.jobs = append(fx.jobs, e.auditJob(l.SessionID, systemUser, "lock-expired", "fileId="+l.FileID)...)
		e.flush(ctx, fx)
		unlock()
	}
	return expired
}

// Restore loads every stored session into memory. The store is
// authoritative; sessions already cached are kept.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	sessions, err := e.store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}
	for _, s := range sessions {
		if _, err := e.hydrate(ctx, s); err != nil {
			return err
		}
	}
	e.log.Info(fmt.Sprintf("%d sessions restored", len(sessions)))
	return nil
}

// lookup returns the cached session, reading it from the store on a miss.
func (e *Engine) lookup(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", errors.ErrInvalidCommand)
	}
	if s, ok := e.sessions.Get(sessionID); ok {
		return s, nil
	}
	if e.store == nil {
		return nil, &errors.SessionNotFoundError{SessionID: sessionID}
	}

	ctx, cancel := context.WithTimeout(ctx, e.storeTimeout)
	defer cancel()
	loaded, err := e.store.LoadSession(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, errors.ErrSessionNotFound) {
			return nil, &errors.SessionNotFoundError{SessionID: sessionID}
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return e.hydrate(ctx, loaded)
}

// hydrate installs a stored session with its roster and timeline.
// When another caller got there first, its copy wins.
func (e *Engine) hydrate(ctx context.Context, loaded domain.Session) (*domain.Session, error) {
	if s, ok := e.sessions.Get(loaded.ID); ok {
		return s, nil
	}
	participants, err := e.store.LoadParticipants(ctx, loaded.ID)
	if err != nil {
		return nil, fmt.Errorf("load participants of %s: %w", loaded.ID, err)
	}
	events, err := e.store.QueryEvents(ctx, loaded.ID)
	if err != nil {
		return nil, fmt.Errorf("load events of %s: %w", loaded.ID, err)
	}
	if loaded.Content == nil {
		loaded.Content = domain.Fields{}
	}

	var (
		winner    *domain.Session
		installed bool
	)
	e.sessions.Update(loaded.ID, func(items map[string]*domain.Session) {
		if existing, ok := items[loaded.ID]; ok {
			winner = existing
			return
		}
		s := loaded
		items[loaded.ID] = &s
		winner, installed = &s, true
	})
	if !installed {
		return winner, nil
	}

	e.history.Load(loaded.ID, events)
	if !loaded.IsEnded() {
		e.directory.Load(loaded.ID, participants)
		for _, p := range participants {
			e.metrics.AddActiveUser(p.UserID)
		}
		e.active.Update(loaded.FileID, func(items map[string]string) {
			if _, ok := items[loaded.FileID]; !ok {
				items[loaded.FileID] = loaded.ID
			}
		})
	}
	return winner, nil
}

// record appends to the history and queues the event for delivery and storage.
func (e *Engine) record(sessionID string, t event.Type, userID string, payload map[string]any, fx *effects) {
	evt, err := e.history.Append(sessionID, t, userID, payload)
	if err != nil {
		e.log.Error("Unable to append event", "session_id", sessionID, "type", t, "error", err)
		return
	}
	fx.events = append(fx.events, evt)
	if e.store != nil {
		fx.jobs = append(fx.jobs, contract.Job{
			Name: "append-event",
			Run:  func(ctx context.Context) error { return e.store.AppendEvent(ctx, evt) },
		})
	}
}

func (e *Engine) saveSessionJob(s domain.Session) contract.Job {
	return contract.Job{
		Name: "save-session",
		Run: func(ctx context.Context) error {
			if e.store == nil {
				return nil
			}
			return e.store.SaveSession(ctx, s)
		},
	}
}

func (e *Engine) saveParticipantJob(p domain.Participant) contract.Job {
	return contract.Job{
		Name: "save-participant",
		Run: func(ctx context.Context) error {
			if e.store == nil {
				return nil
			}
			return e.store.SaveParticipant(ctx, p)
		},
	}
}

func (e *Engine) deleteParticipantJob(sessionID, userID string) contract.Job {
	return contract.Job{
		Name: "delete-participant",
		Run: func(ctx context.Context) error {
			if e.store == nil {
				return nil
			}
			return e.store.DeleteParticipant(ctx, sessionID, userID)
		},
	}
}

// auditJob returns nothing when no audit log is configured.
func (e *Engine) auditJob(sessionID, userID, action, details string) []contract.Job {
	if e.audit == nil {
		return nil
	}
	entry := audit.Entry{SessionID: sessionID, UserID: userID, Action: action, Details: details, At: e.now()}
	return []contract.Job{{
		Name: "audit",
		Run: func(context.Context) error {
			if err := e.audit.Write(entry); err != nil {
				e.metrics.RecordAuditFailure()
				return err
			}
			return nil
		},
	}}
}
