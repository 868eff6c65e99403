package services

import (
	"time"

	"github.com/pkg/errors"

	"SmartHealth/access"
)

// Error taxonomy surfaced to handlers.
var (
	ErrAccessDenied    = errors.New("Access denied.")
	ErrUnauthenticated = errors.New("authentication required")
	ErrNotFound        = errors.New("record not found")
	ErrStateConflict   = errors.New("state conflict")
)

// ConflictError is a request that was understood but does not apply to the
// record's current state. Nothing was changed.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrStateConflict }

func conflict(message string) error {
	return &ConflictError{Message: message}
}

// authorize maps access decisions onto the service taxonomy. A record owned
// by someone else is reported as not found.
func authorize(p access.Principal, action access.Action, res access.Resource) error {
	err := access.Authorize(p, action, res)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, access.ErrUnauthenticated):
		return ErrUnauthenticated
	case errors.Is(err, access.ErrNotOwner):
		return ErrNotFound
	default:
		return ErrAccessDenied
	}
}

// Clock is swapped in tests.
type Clock func() time.Time
