package runtime

import (
	"collab-engine/domain"
	"collab-engine/internal/shard"
	"slices"
)

type roster struct {
	order   []string
	members map[string]domain.Participant
}

// Directory keeps the participant roster of every live session.
// A roster preserves join order and holds each user at most once.
type Directory struct {
	rosters *shard.Table[*roster]
}

func NewDirectory() *Directory {
	return &Directory{rosters: shard.NewTable[*roster]()}
}

// Add registers p in its session. It reports false when the user was
// already there, in which case the stored role is kept.
func (d *Directory) Add(p domain.Participant) bool {
	added := false
	d.rosters.Update(p.SessionID, func(items map[string]*roster) {
		r, ok := items[p.SessionID]
		if !ok {
			r = &roster{members: make(map[string]domain.Participant)}
			items[p.SessionID] = r
		}
		if _, exists := r.members[p.UserID]; exists {
			return
		}
		r.members[p.UserID] = p
		r.order = append(r.order, p.UserID)
		added = true
	})
	return added
}

// Remove drops userID from the session. No entry is left behind for an
// empty roster.
func (d *Directory) Remove(sessionID, userID string) (domain.Participant, bool) {
	var (
		removed domain.Participant
		ok      bool
	)
	d.rosters.Update(sessionID, func(items map[string]*roster) {
		r, exists := items[sessionID]
		if !exists {
			return
		}
		removed, ok = r.members[userID]
		if !ok {
			return
		}
		delete(r.members, userID)
		r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == userID })
		if len(r.order) == 0 {
			delete(items, sessionID)
		}
	})
	return removed, ok
}

// SetRole changes the role of a member. It returns the updated participant,
// or false when userID is not in the session.
func (d *Directory) SetRole(sessionID, userID string, role domain.Role) (domain.Participant, bool) {
	var (
		updated domain.Participant
		ok      bool
	)
	d.rosters.Update(sessionID, func(items map[string]*roster) {
		r, exists := items[sessionID]
		if !exists {
			return
		}
		if updated, ok = r.members[userID]; ok {
			updated.Role = role
			r.members[userID] = updated
		}
	})
	return updated, ok
}

// Drop forgets the whole roster and returns who was in it.
func (d *Directory) Drop(sessionID string) []domain.Participant {
	var dropped []domain.Participant
	d.rosters.Update(sessionID, func(items map[string]*roster) {
		if r, ok := items[sessionID]; ok {
			dropped = r.participants()
			delete(items, sessionID)
		}
	})
	return dropped
}

// List returns user ids in join order. Never nil.
func (d *Directory) List(sessionID string) []string {
	ids := []string{}
	d.rosters.View(sessionID, func(items map[string]*roster) {
		if r, ok := items[sessionID]; ok {
			ids = append(ids, r.order...)
		}
	})
	return ids
}

func (d *Directory) Participant(sessionID, userID string) (domain.Participant, bool) {
	var (
		p  domain.Participant
		ok bool
	)
	d.rosters.View(sessionID, func(items map[string]*roster) {
		if r, exists := items[sessionID]; exists {
			p, ok = r.members[userID]
		}
	})
	return p, ok
}

func (d *Directory) Participants(sessionID string) []domain.Participant {
	res := []domain.Participant{}
	d.rosters.View(sessionID, func(items map[string]*roster) {
		if r, ok := items[sessionID]; ok {
			res = r.participants()
		}
	})
	return res
}

// Load seeds a roster from stored participants ordered by JoinedAt.
func (d *Directory) Load(sessionID string, participants []domain.Participant) {
	sorted := slices.Clone(participants)
	slices.SortStableFunc(sorted, func(a, b domain.Participant) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	for _, p := range sorted {
		p.SessionID = sessionID
		d.Add(p)
	}
}

// IsMember reports whether userID belongs to any live roster.
func (d *Directory) IsMember(userID string) bool {
	found := false
	d.rosters.Each(func(_ string, r *roster) bool {
		_, found = r.members[userID]
		return !found
	})
	return found
}

func (r *roster) participants() []domain.Participant {
	res := make([]domain.Participant, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.members[id])
	}
	return res
}
