package profile

import (
	"errors"
	"fmt"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Domain errors for profiles.
var (
	ErrProfileNotFound = fmt.Errorf("%w: profile not found", shared.ErrNotFound)
	ErrEmailExists     = fmt.Errorf("%w: email already registered", shared.ErrAlreadyExists)
	ErrLastAdmin       = fmt.Errorf("%w: cannot remove the last administrator", shared.ErrValidation)
	ErrSelfAction      = fmt.Errorf("%w: cannot perform this action on your own account", shared.ErrValidation)
	ErrInactiveAccount = fmt.Errorf("%w: account is disabled", shared.ErrForbidden)
)

// IsProfileNotFound checks if the error is a profile not found error.
func IsProfileNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}

// IsGuardViolation checks if the error is a last-admin or self-action guard.
func IsGuardViolation(err error) bool {
	return errors.Is(err, ErrLastAdmin) || errors.Is(err, ErrSelfAction)
}
