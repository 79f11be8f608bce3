package domain

// Commands are what the transport layer hands to the service layer.
// They carry validate tags checked before reaching the engine.

type CreateSessionCommand struct {
	FileID string `validate:"required,max=256"`
}

type JoinCommand struct {
	FileID string `validate:"required,max=256"`
	UserID string `validate:"required,max=128"`
	Role   Role   `validate:"omitempty,oneof=viewer editor admin"`
}

type ParticipantCommand struct {
	SessionID string `validate:"required"`
	UserID    string `validate:"required,max=128"`
	Role      Role   `validate:"omitempty,oneof=viewer editor admin"`
}

type RoleCommand struct {
	SessionID string `validate:"required"`
	UserID    string `validate:"required,max=128"`
	Role      Role   `validate:"required,oneof=viewer editor admin"`
}

type LockCommand struct {
	SessionID string `validate:"required"`
	UserID    string `validate:"required,max=128"`
}

// EditCommand submits Changes made by UserID on top of Base.
// The session's current content is the collaborator side of the merge.
type EditCommand struct {
	SessionID string `validate:"required"`
	UserID    string `validate:"required,max=128"`
	Base      Fields `validate:"required"`
	Changes   Fields `validate:"required"`
}

// EditResult is the outcome of an accepted edit.
type EditResult struct {
	Resolved  Fields
	Conflicts []ConflictRecord
	Content   Fields
}
