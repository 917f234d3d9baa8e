package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by mutations and locator lookups when no song has the
// requested id. GetSongByID reports absence as (nil, nil) instead.
var ErrNotFound = errors.New("song not found")

// ValidationError reports a missing or malformed required field. It is the
// caller's fault and never worth retrying.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid song: %s is required", e.Field)
	}
	return fmt.Sprintf("invalid song: %s %s", e.Field, e.Reason)
}

// PersistenceError wraps a backing-store failure (I/O, constraint, driver).
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence reports whether err is (or wraps) a *PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
