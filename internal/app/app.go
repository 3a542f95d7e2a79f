// Package app contains the application services that orchestrate domain
// operations: authentication, profile and application administration,
// groups, individual grants, and access resolution.
package app

import (
	"fmt"

	"github.com/apphubio/api/pkg/domain/shared"
)

// parseID converts a string ID to a shared.ID, mapping parse failures to a
// validation error callers can translate to a 400.
func parseID(s string) (shared.ID, error) {
	id, err := shared.IDFromString(s)
	if err != nil {
		return shared.ID{}, fmt.Errorf("%w: invalid id %q", shared.ErrValidation, s)
	}
	return id, nil
}
