package storage

import (
	"collab-engine/audit"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuditRepository_TailReturnsNewestOldestFirst(t *testing.T) {
	req := require.New(t)
	repo := NewAuditRepository(openTestDB(t), slog.Default())
	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := 1; i <= 5; i++ {
		req.NoError(repo.Append(fmt.Sprintf("line %d", i)))
	}

	lines, err := repo.Tail(3)
	req.NoError(err)
	req.Equal([]string{"line 3", "line 4", "line 5"}, lines)

	all, err := repo.Tail(100)
	req.NoError(err)
	req.Len(all, 5)

	none, err := repo.Tail(0)
	req.NoError(err)
	req.Empty(none)
}

func TestAuditRepository_SameInstantKeepsOrder(t *testing.T) {
	req := require.New(t)
	repo := NewAuditRepository(openTestDB(t), slog.Default())
	frozen := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return frozen }

	req.NoError(repo.Append("first"))
	req.NoError(repo.Append("second"))

	lines, err := repo.Tail(2)
	req.NoError(err)
	req.Equal([]string{"first", "second"}, lines)
}

func TestAuditRepository_BacksAuditLog(t *testing.T) {
	req := require.New(t)
	repo := NewAuditRepository(openTestDB(t), slog.Default())
	log := audit.NewLog(repo, func() time.Time { return time.Date(2026, 3, 4, 10, 20, 30, 0, time.UTC) })

	// Given two audit lines
	req.NoError(log.Append("s1", "u1", "join", "role=editor"))
	req.NoError(log.Append("s1", "u1", "edit", "fields=1 conflicts=0"))

	// When clearing the trail
	req.NoError(log.Clear())

	// Then nothing is left
	lines, err := log.Tail(10)
	req.NoError(err)
	req.Empty(lines)
}
