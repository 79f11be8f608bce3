package auth

import (
	"collab-engine/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateCommand checks the validate tags of a command struct.
// Failures match errors.ErrInvalidCommand.
func ValidateCommand(cmd any) error {
	if err := validate.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrInvalidCommand, err)
	}
	return nil
}
