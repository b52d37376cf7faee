package shared

import "errors"

var (
	// ErrNotFound indicates the entity is absent or belongs to another tenant.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument indicates a validation failure the caller must fix.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict indicates a uniqueness or concurrent-update violation.
	ErrConflict = errors.New("conflict")
	// ErrInternal indicates a storage or transaction failure.
	ErrInternal = errors.New("internal error")
)
