// Package apperror defines the error kinds handlers return and the single place
// where they are turned into HTTP responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind classifies an error for the HTTP layer
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindStorage        Kind = "storage"
)

var defaultStatus = map[Kind]int{
	KindValidation:     http.StatusBadRequest,
	KindConflict:       http.StatusBadRequest,
	KindAuthentication: http.StatusUnauthorized,
	KindAuthorization:  http.StatusForbidden,
	KindNotFound:       http.StatusNotFound,
	KindStorage:        http.StatusInternalServerError,
}

// Error is a classified application error
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithStatus overrides the HTTP status for routes that document a different code
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Status: defaultStatus[kind], Message: message, Err: err}
}

// Validation reports a missing or malformed input
func Validation(format string, args ...any) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...), nil)
}

// Conflict reports a uniqueness violation
func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, fmt.Sprintf(format, args...), nil)
}

// Authentication reports bad or missing credentials
func Authentication(format string, args ...any) *Error {
	return newError(KindAuthentication, fmt.Sprintf(format, args...), nil)
}

// Authorization reports that the caller does not own the resource
func Authorization(format string, args ...any) *Error {
	return newError(KindAuthorization, fmt.Sprintf(format, args...), nil)
}

// NotFound reports a missing resource
func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, fmt.Sprintf(format, args...), nil)
}

// Storage wraps an unexpected database or object storage failure
func Storage(message string, err error) *Error {
	return newError(KindStorage, message, err)
}

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// IsDuplicateKey reports whether err comes from a unique constraint
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Classify turns any error into an *Error. Errors that are already classified pass
// through unchanged.
func Classify(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return newError(KindNotFound, "resource not found", err)
	case IsDuplicateKey(err):
		return newError(KindConflict, "resource already exists", err)
	default:
		return Storage("internal server error", err)
	}
}
