package runtime

import (
	"collab-engine/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDirectory_AddIsIdempotent(t *testing.T) {
	req := require.New(t)
	d := NewDirectory()

	// Given u1 joined as editor
	req.True(d.Add(domain.Participant{SessionID: "s1", UserID: "u1", Role: domain.RoleEditor}))

	// When u1 is added again with another role
	added := d.Add(domain.Participant{SessionID: "s1", UserID: "u1", Role: domain.RoleViewer})

	// Then the roster is unchanged
	req.False(added)
	req.Equal([]string{"u1"}, d.List("s1"))
	p, ok := d.Participant("s1", "u1")
	req.True(ok)
	req.Equal(domain.RoleEditor, p.Role)
}

func TestDirectory_ListKeepsJoinOrder(t *testing.T) {
	req := require.New(t)
	d := NewDirectory()
	for _, id := range []string{"u3", "u1", "u2"} {
		d.Add(domain.Participant{SessionID: "s1", UserID: id})
	}

	_, ok := d.Remove("s1", "u1")

	req.True(ok)
	req.Equal([]string{"u3", "u2"}, d.List("s1"))
}

func TestDirectory_UnknownSessionIsEmptyNotNil(t *testing.T) {
	req := require.New(t)
	d := NewDirectory()

	req.NotNil(d.List("missing"))
	req.Empty(d.List("missing"))
	req.NotNil(d.Participants("missing"))
	_, ok := d.Remove("missing", "u1")
	req.False(ok)
}

func TestDirectory_RemovingLastMemberDropsRoster(t *testing.T) {
	req := require.New(t)
	d := NewDirectory()
	d.Add(domain.Participant{SessionID: "s1", UserID: "u1"})

	d.Remove("s1", "u1")

	req.Equal(0, d.rosters.Len())
	req.False(d.IsMember("u1"))
}

func TestDirectory_DropAndIsMember(t *testing.T) {
	req := require.New(t)
	d := NewDirectory()
	d.Add(domain.Participant{SessionID: "s1", UserID: "u1"})
	d.Add(domain.Participant{SessionID: "s2", UserID: "u1"})
	d.Add(domain.Participant{SessionID: "s1", UserID: "u2"})

	dropped := d.Drop("s1")

	req.Len(dropped, 2)
	req.True(d.IsMember("u1"))
	req.False(d.IsMember("u2"))
}

func TestDirectory_LoadOrdersByJoinTime(t *testing.T) {
	req := require.New(t)
	d := NewDirectory()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	d.Load("s1", []domain.Participant{
		{UserID: "late", JoinedAt: t0.Add(time.Minute)},
		{UserID: "early", JoinedAt: t0},
	})

	req.Equal([]string{"early", "late"}, d.List("s1"))
	p, _ := d.Participant("s1", "late")
	req.Equal("s1", p.SessionID)
}

func TestDirectory_SetRole(t *testing.T) {
	req := require.New(t)
	d := NewDirectory()
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	d.Add(domain.Participant{SessionID: "s1", UserID: "u1", Role: domain.RoleViewer, JoinedAt: at})

	p, ok := d.SetRole("s1", "u1", domain.RoleAdmin)
	req.True(ok)
	req.Equal(domain.RoleAdmin, p.Role)
	req.Equal(at, p.JoinedAt)
	got, _ := d.Participant("s1", "u1")
	req.Equal(domain.RoleAdmin, got.Role)

	_, ok = d.SetRole("s1", "stranger", domain.RoleAdmin)
	req.False(ok)
	_, ok = d.SetRole("missing", "u1", domain.RoleAdmin)
	req.False(ok)
}
