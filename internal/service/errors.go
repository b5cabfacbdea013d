package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/endotrace/endotrace/internal/database"
	"github.com/endotrace/endotrace/internal/metrics"
	"github.com/endotrace/endotrace/internal/policy"
)

var (
	// ErrNotFound is returned when the addressed record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConstraintViolation is returned when a write collides with a unique key
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrPermissionDenied is returned when the policy rejects the actor
	ErrPermissionDenied = policy.ErrPermissionDenied
	// ErrUnauthenticated is returned when no valid identity is supplied
	ErrUnauthenticated = policy.ErrUnauthenticated

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", policy.ErrUnauthenticated)
	ErrSetupComplete      = fmt.Errorf("%w: setup already complete", ErrConstraintViolation)
	ErrProtectedAccount   = fmt.Errorf("%w: the admin account cannot be deleted or demoted", policy.ErrPermissionDenied)
)

// ValidationError reports a rejected input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StoreError wraps an unexpected persistence failure
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeError classifies an error returned by the database package.
// duplicate is the message used when a unique key is violated.
func storeError(op string, err error, duplicate string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, database.ErrDuplicate):
		return fmt.Errorf("%w: %s", ErrConstraintViolation, duplicate)
	}
	return &StoreError{Op: op, Err: err}
}

// Outcome names the class of err for metrics and logs
func Outcome(err error) string {
	var verr *ValidationError
	var serr *StoreError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "validation_error"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint_violation"
	case errors.As(err, &serr):
		return "store_error"
	}
	return "error"
}

func observe(m *metrics.Metrics, kind policy.Kind, action policy.Action, err error) {
	m.ObserveOperation(string(kind), string(action), Outcome(err))
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
