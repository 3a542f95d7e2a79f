package permission

import (
	"fmt"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Domain errors for permission grants.
var (
	ErrGrantNotFound      = fmt.Errorf("%w: permission grant not found", shared.ErrNotFound)
	ErrInvalidAccessLevel = fmt.Errorf("%w: invalid access level", shared.ErrValidation)
)
