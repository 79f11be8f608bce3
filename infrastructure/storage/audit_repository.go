package storage

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const auditPrefix = "audit:"

// AuditRepository is an append-only audit sink on badger.
// Keys are "audit:{unix nanos padded}:{counter padded}" so that a reverse
// scan yields the newest lines first.
type AuditRepository struct {
	db      *badger.DB
	log     *slog.Logger
	now     func() time.Time
	counter atomic.Uint64
}

func NewAuditRepository(db *badger.DB, log *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, log: log, now: time.Now}
}

func (r *AuditRepository) Append(line string) error {
	key := fmt.Sprintf("%s%019d:%019d", auditPrefix, r.now().UnixNano(), r.counter.Add(1))
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(line))
	})
}

// Tail returns the last limit lines, oldest first.
func (r *AuditRepository) Tail(limit int) ([]string, error) {
	lines := []string{}
	if limit <= 0 {
		return lines, nil
	}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(auditPrefix)
		// Reverse iteration starts at the greatest key below the seek key.
		seekKey := append([]byte(auditPrefix), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(lines) < limit; it.Next() {
			err := it.Item().Value(func(v []byte) error {
				lines = append(lines, string(v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error during audit scan: %w", err)
	}
	slices.Reverse(lines)
	return lines, nil
}

func (r *AuditRepository) Clear() error {
	if err := r.db.DropPrefix([]byte(auditPrefix)); err != nil {
		return err
	}
	r.log.Info("Audit trail cleared")
	return nil
}
