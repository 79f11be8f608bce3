package merge

import (
	"collab-engine/domain"
	"collab-engine/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolver_NoChanges(t *testing.T) {
	req := require.New(t)
	base := domain.Fields{"title": "Draft", "body": "hello", "version": 3}

	result, err := NewResolver().Resolve(base, base, base)

	req.NoError(err)
	req.Equal(base, result.Content)
	req.NotNil(result.Conflicts)
	req.Empty(result.Conflicts)
}

func TestResolver_BothChangedSameField(t *testing.T) {
	req := require.New(t)

	// Given both sides changed "a" to different values
	result, err := NewResolver().Resolve(
		domain.Fields{"a": 1},
		domain.Fields{"a": 2},
		domain.Fields{"a": 3},
	)

	// Then a conflict is recorded and the marker combines both values
	req.NoError(err)
	req.Len(result.Conflicts, 1)
	req.Equal(domain.ConflictRecord{Field: "a", BaseValue: 1, UserValue: 2, CollaboratorValue: 3}, result.Conflicts[0])
	req.Equal("2 | CONFLICT | 3", result.Content["a"])
}

func TestResolver_CollaboratorUnchanged(t *testing.T) {
	req := require.New(t)

	result, err := NewResolver().Resolve(
		domain.Fields{"a": 1},
		domain.Fields{"a": 2},
		domain.Fields{"a": 1},
	)

	req.NoError(err)
	req.Equal(2, result.Content["a"])
	req.Empty(result.Conflicts)
}

func TestResolver_UserUnchangedTakesCollaborator(t *testing.T) {
	req := require.New(t)

	result, err := NewResolver().Resolve(
		domain.Fields{"a": 1},
		domain.Fields{"a": 1},
		domain.Fields{"a": 5},
	)

	req.NoError(err)
	req.Equal(5, result.Content["a"])
	req.Empty(result.Conflicts)
}

func TestResolver_ConvergedChanges(t *testing.T) {
	req := require.New(t)

	result, err := NewResolver().Resolve(
		domain.Fields{"a": "x"},
		domain.Fields{"a": "y"},
		domain.Fields{"a": "y"},
	)

	req.NoError(err)
	req.Equal("y", result.Content["a"])
	req.Empty(result.Conflicts)
}

func TestResolver_CarriesOverUntouchedFields(t *testing.T) {
	req := require.New(t)

	// Given the user only touched "title" and added "tags"
	// And the collaborator rewrote "body"
	result, err := NewResolver().Resolve(
		domain.Fields{"title": "old", "body": "b0"},
		domain.Fields{"title": "new", "tags": []string{"go"}},
		domain.Fields{"body": "b1"},
	)

	// Then body keeps its base value since the user never changed it
	req.NoError(err)
	req.Equal(domain.Fields{"title": "new", "body": "b0", "tags": []string{"go"}}, result.Content)
	req.Empty(result.Conflicts)
}

func TestResolver_ConflictsSortedByField(t *testing.T) {
	req := require.New(t)

	result, err := NewResolver().Resolve(
		domain.Fields{"z": 0, "a": 0},
		domain.Fields{"z": 1, "a": 1},
		domain.Fields{"z": 2, "a": 2},
	)

	req.NoError(err)
	req.Len(result.Conflicts, 2)
	req.Equal("a", result.Conflicts[0].Field)
	req.Equal("z", result.Conflicts[1].Field)
}

func TestResolver_CustomMarker(t *testing.T) {
	req := require.New(t)
	structured := func(u, c any) any { return map[string]any{"user": u, "collaborator": c} }

	result, err := NewResolver(WithMarker(structured)).Resolve(
		domain.Fields{"a": 1}, domain.Fields{"a": 2}, domain.Fields{"a": 3},
	)

	req.NoError(err)
	req.Equal(map[string]any{"user": 2, "collaborator": 3}, result.Content["a"])
}

func TestResolver_MissingInput(t *testing.T) {
	req := require.New(t)
	r := NewResolver()

	_, err := r.Resolve(nil, domain.Fields{}, domain.Fields{})
	req.ErrorIs(err, errors.ErrInvalidMergeInput)
	_, err = r.Resolve(domain.Fields{}, nil, domain.Fields{})
	req.ErrorIs(err, errors.ErrInvalidMergeInput)
	_, err = r.Resolve(domain.Fields{}, domain.Fields{}, nil)
	req.ErrorIs(err, errors.ErrInvalidMergeInput)
}

func TestResolver_DoesNotMutateInputs(t *testing.T) {
	req := require.New(t)
	base := domain.Fields{"a": 1}

	_, err := NewResolver().Resolve(base, domain.Fields{"a": 2}, domain.Fields{"a": 3})

	req.NoError(err)
	req.Equal(domain.Fields{"a": 1}, base)
}
