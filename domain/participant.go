package domain

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleViewer, nil
	case RoleViewer, RoleEditor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) CanEdit() bool {
	return r == RoleEditor || r == RoleAdmin
}

var roleRank = map[Role]int{RoleViewer: 1, RoleEditor: 2, RoleAdmin: 3}

// Covers reports whether r grants at least what other grants.
// Unknown roles cover nothing.
func (r Role) Covers(other Role) bool {
	rank, ok := roleRank[r]
	return ok && rank >= roleRank[other]
}

// Participant is unique per (SessionID, UserID) and never outlives its session.
type Participant struct {
	SessionID string
	UserID    string
	Role      Role
	JoinedAt  time.Time
}

// Identity is what the AuthVerifier resolved for a request.
type Identity struct {
	UserID string
	Role   Role
}
