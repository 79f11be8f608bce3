// Package domain contains core concepts of the collaboration engine.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"maps"
	"slices"
	"time"
)

type SessionState string

const (
	SessionCreated SessionState = "created"
	SessionActive  SessionState = "active"
	SessionEnded   SessionState = "ended"
)

// Fields is a document expressed as a flat field map.
type Fields map[string]any

func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}

// Update is one accepted edit, as merged into the session content.
type Update struct {
	UserID    string
	Fields    Fields
	Conflicts []ConflictRecord
	At        time.Time
}

// Session is a bounded collaborative editing context tied to one file.
// Participants keeps join order and never holds the same user twice.
type Session struct {
	ID           string
	FileID       string
	Participants []string
	UpdateLog    []Update
	Content      Fields
	State        SessionState
	CreatedAt    time.Time
	EndedAt      *time.Time
}

func NewSession(id, fileID string, at time.Time) *Session {
	return &Session{
		ID:           id,
		FileID:       fileID,
		Participants: []string{},
		UpdateLog:    nil,
		Content:      Fields{},
		State:        SessionCreated,
		CreatedAt:    at,
	}
}

func (s *Session) IsEnded() bool {
	return s.EndedAt != nil
}

func (s *Session) HasParticipant(userID string) bool {
	return slices.Contains(s.Participants, userID)
}

// AddParticipant appends userID once. The first participant activates the session.
func (s *Session) AddParticipant(userID string) bool {
	if s.HasParticipant(userID) {
		return false
	}
	s.Participants = append(s.Participants, userID)
	if s.State == SessionCreated {
		s.State = SessionActive
	}
	return true
}

func (s *Session) RemoveParticipant(userID string) bool {
	idx := slices.Index(s.Participants, userID)
	if idx < 0 {
		return false
	}
	s.Participants = slices.Delete(s.Participants, idx, idx+1)
	return true
}

// ApplyUpdate records the update and overlays its fields on the content.
func (s *Session) ApplyUpdate(u Update) {
	if s.Content == nil {
		s.Content = Fields{}
	}
	for k, v := range u.Fields {
		s.Content[k] = v
	}
	s.UpdateLog = append(s.UpdateLog, u)
}

func (s *Session) End(at time.Time) {
	s.EndedAt = &at
	s.State = SessionEnded
}

// Snapshot returns a copy that shares no mutable state with s.
func (s *Session) Snapshot() Session {
	cp := *s
	cp.Participants = slices.Clone(s.Participants)
	if cp.Participants == nil {
		cp.Participants = []string{}
	}
	cp.UpdateLog = make([]Update, len(s.UpdateLog))
	for i, u := range s.UpdateLog {
		u.Fields = u.Fields.Clone()
		u.Conflicts = slices.Clone(u.Conflicts)
		cp.UpdateLog[i] = u
	}
	cp.Content = s.Content.Clone()
	if s.EndedAt != nil {
		endedAt := *s.EndedAt
		cp.EndedAt = &endedAt
	}
	return cp
}
