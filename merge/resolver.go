// Package merge implements field-level three-way merging of document edits.
// It is pure: no locking, no I/O. Callers serialize calls per file.
package merge

import (
	"collab-engine/domain"
	"collab-engine/errors"
	"fmt"
	"reflect"
	"sort"
)

// MarkerFunc builds the value stored for a conflicting field.
type MarkerFunc func(userValue, collaboratorValue any) any

// LiteralMarker renders "<user> | CONFLICT | <collaborator>".
func LiteralMarker(userValue, collaboratorValue any) any {
	return fmt.Sprintf("%v | CONFLICT | %v", userValue, collaboratorValue)
}

type Result struct {
	Content   domain.Fields
	Conflicts []domain.ConflictRecord
}

type Resolver struct {
	marker MarkerFunc
}

type Option func(*Resolver)

func WithMarker(marker MarkerFunc) Option {
	return func(r *Resolver) {
		if marker != nil {
			r.marker = marker
		}
	}
}

func NewResolver(opts ...Option) Resolver {
	r := Resolver{marker: LiteralMarker}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Resolve merges user and collaborator changes made on top of base.
// Only keys present in user are considered; every other key of base is
// carried over untouched. Conflicts are returned sorted by field.
func (r Resolver) Resolve(base, user, collaborator domain.Fields) (Result, error) {
	switch {
	case base == nil:
		return Result{}, &errors.InvalidMergeInputError{Argument: "baseContent"}
	case user == nil:
		return Result{}, &errors.InvalidMergeInputError{Argument: "userChanges"}
	case collaborator == nil:
		return Result{}, &errors.InvalidMergeInputError{Argument: "collaboratorChanges"}
	}

	resolved := base.Clone()
	conflicts := []domain.ConflictRecord{}

	for _, key := range sortedKeys(user) {
		userValue := user[key]
		baseValue, inBase := base[key]
		collabValue, inCollab := collaborator[key]

		switch {
		case !inCollab || (inBase && equal(collabValue, baseValue)):
			resolved[key] = userValue
		case inBase && equal(userValue, baseValue):
			resolved[key] = collabValue
		case equal(collabValue, userValue):
			resolved[key] = userValue
		default:
			conflicts = append(conflicts, domain.ConflictRecord{
				Field:             key,
				BaseValue:         baseValue,
				UserValue:         userValue,
				CollaboratorValue: collabValue,
			})
			resolved[key] = r.marker(userValue, collabValue)
		}
	}

	return Result{Content: resolved, Conflicts: conflicts}, nil
}

func equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func sortedKeys(f domain.Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
