package storage

import (
	"collab-engine/domain"
	"collab-engine/domain/event"
	"collab-engine/errors"
	"collab-engine/infrastructure/codec"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

const (
	sessionPrefix     = "session:"
	participantPrefix = "participant:"
	eventPrefix       = "event:"
)

// SessionRepository is the badger-backed PersistenceStore.
//
// Keys:
//
//	session:{id}
//	participant:{sessionId}:{userId}
//	event:{sessionId}:{seq padded to 19 digits}:{eventId}
//
// The padded sequence keeps a session's events in insertion order under a
// plain prefix scan.
type SessionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSessionRepository(db *badger.DB, log *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, log: log}
}

func sessionKey(id string) []byte {
	return []byte(sessionPrefix + id)
}

func participantKey(sessionID, userID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", participantPrefix, sessionID, userID))
}

func eventKey(e event.Event) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", eventPrefix, e.SessionID, e.Seq, e.ID))
}

func (r *SessionRepository) SaveSession(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := codec.Marshal(codec.FromSession(session))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(session.ID), data)
	})
}

func (r *SessionRepository) LoadSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	var session domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(sessionID))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return &errors.SessionNotFoundError{SessionID: sessionID}
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			rec, err := codec.Unmarshal(v)
			if err != nil {
				return err
			}
			session = codec.ToSession(rec)
			return nil
		})
	})
	return session, err
}

func (r *SessionRepository) ListSessions(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.scan(ctx, []byte(sessionPrefix), func(rec map[string]any) error {
		sessions = append(sessions, codec.ToSession(rec))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error during session scan: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) SaveParticipant(ctx context.Context, participant domain.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := codec.Marshal(codec.FromParticipant(participant))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(participantKey(participant.SessionID, participant.UserID), data)
	})
}

// DeleteParticipant is idempotent.
func (r *SessionRepository) DeleteParticipant(ctx context.Context, sessionID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(participantKey(sessionID, userID))
	})
}

func (r *SessionRepository) LoadParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	participants := []domain.Participant{}
	prefix := []byte(fmt.Sprintf("%s%s:", participantPrefix, sessionID))
	err := r.scan(ctx, prefix, func(rec map[string]any) error {
		participants = append(participants, codec.ToParticipant(rec))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error during participant scan: %w", err)
	}
	return participants, nil
}

func (r *SessionRepository) AppendEvent(ctx context.Context, e event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := codec.Marshal(codec.FromEvent(e))
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(e), data)
	})
}

// QueryEvents returns the stored events of a session in insertion order.
func (r *SessionRepository) QueryEvents(ctx context.Context, sessionID string) ([]event.Event, error) {
	events := []event.Event{}
	prefix := []byte(fmt.Sprintf("%s%s:", eventPrefix, sessionID))
	err := r.scan(ctx, prefix, func(rec map[string]any) error {
		e, err := codec.ToEvent(rec)
		if err != nil {
			return err
		}
		events = append(events, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error during event scan: %w", err)
	}
	return events, nil
}

// scan decodes every record under prefix in key order.
func (r *SessionRepository) scan(ctx context.Context, prefix []byte, fn func(rec map[string]any) error) error {
	return r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(v []byte) error {
				rec, err := codec.Unmarshal(v)
				if err != nil {
					return err
				}
				return fn(rec)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
