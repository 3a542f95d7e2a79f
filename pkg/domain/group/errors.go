package group

import (
	"errors"
	"fmt"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Domain errors for groups.
var (
	ErrGroupNotFound = fmt.Errorf("%w: group not found", shared.ErrNotFound)
	ErrNameExists    = fmt.Errorf("%w: group name already exists", shared.ErrAlreadyExists)
	ErrGrantNotFound = fmt.Errorf("%w: group grant not found", shared.ErrNotFound)
)

// IsGroupNotFound checks if the error is a group not found error.
func IsGroupNotFound(err error) bool {
	return errors.Is(err, ErrGroupNotFound)
}

// IsNameExists checks if the error is a name exists error.
func IsNameExists(err error) bool {
	return errors.Is(err, ErrNameExists)
}
