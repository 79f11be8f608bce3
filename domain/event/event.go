package event

import (
	"collab-engine/domain"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Type string

const (
	JoinType         Type = "join"
	LeaveType        Type = "leave"
	EditType         Type = "edit"
	LockAcquiredType Type = "lock-acquired"
	LockReleasedType Type = "lock-released"
	SessionEndedType Type = "session-ended"
	RoleChangedType  Type = "role-changed"
)

// Event is an immutable, timestamped record of a session-affecting action.
// Seq is the per-session insertion order and breaks timestamp ties.
type Event struct {
	ID        uuid.UUID
	SessionID string
	Type      Type
	UserID    string
	Timestamp time.Time
	Seq       uint64
	Payload   map[string]any
}

func Join(userID string) map[string]any {
	return map[string]any{"userId": userID}
}

func Leave(userID string) map[string]any {
	return map[string]any{"userId": userID}
}

func Edit(fields domain.Fields, conflicts []domain.ConflictRecord) map[string]any {
	return map[string]any{
		"fields":    map[string]any(fields.Clone()),
		"conflicts": lo.Map(conflicts, func(c domain.ConflictRecord, _ int) any { return ConflictPayload(c) }),
	}
}

func ConflictPayload(c domain.ConflictRecord) map[string]any {
	return map[string]any{
		"field":             c.Field,
		"baseValue":         c.BaseValue,
		"userValue":         c.UserValue,
		"collaboratorValue": c.CollaboratorValue,
	}
}

func LockAcquired(fileID, userID string) map[string]any {
	return map[string]any{"fileId": fileID, "userId": userID}
}

func LockReleased(fileID string) map[string]any {
	return map[string]any{"fileId": fileID}
}

func RoleChanged(userID string, role domain.Role) map[string]any {
	return map[string]any{"userId": userID, "role": string(role)}
}

func SessionEnded() map[string]any {
	return map[string]any{}
}
