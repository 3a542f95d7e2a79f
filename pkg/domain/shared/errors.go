// Package shared holds the identifier type and error sentinels common to
// every domain package.
package shared

import "errors"

// Sentinel errors. Domain packages wrap these with entity-specific
// messages; handlers classify on them with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrForbidden     = errors.New("forbidden")
)
