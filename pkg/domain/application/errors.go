package application

import (
	"fmt"

	"github.com/apphubio/api/pkg/domain/shared"
)

// Domain errors for applications.
var (
	ErrApplicationNotFound = fmt.Errorf("%w: application not found", shared.ErrNotFound)
	ErrNameExists          = fmt.Errorf("%w: application name already exists", shared.ErrAlreadyExists)
)
