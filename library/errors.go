package library

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by LibraryManager matches exactly one of
// these with errors.Is.
var (
	ErrInvalidQuery        = errors.New("invalid query")
	ErrUserNotFound        = errors.New("user not found")
	ErrBookNotFound        = errors.New("book not found")
	ErrBookUnavailable     = errors.New("book unavailable")
	ErrDuplicateActiveLoan = errors.New("duplicate active loan")
	ErrNoActiveLoan        = errors.New("no active loan")
	ErrStorage             = errors.New("storage error")
)

var kinds = []error{
	ErrInvalidQuery,
	ErrUserNotFound,
	ErrBookNotFound,
	ErrBookUnavailable,
	ErrDuplicateActiveLoan,
	ErrNoActiveLoan,
	ErrStorage,
}

var kindCodes = map[error]string{
	ErrInvalidQuery:        "invalid_query",
	ErrUserNotFound:        "user_not_found",
	ErrBookNotFound:        "book_not_found",
	ErrBookUnavailable:     "book_unavailable",
	ErrDuplicateActiveLoan: "duplicate_active_loan",
	ErrNoActiveLoan:        "no_active_loan",
	ErrStorage:             "storage_error",
}

// Error carries an error kind, the message shown to the patron and the
// underlying cause, if any.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Is matches the error kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.Cause }

// Code returns the snake_case identifier of the kind.
func (e *Error) Code() string {
	if code, ok := kindCodes[e.Kind]; ok {
		return code
	}
	return kindCodes[ErrStorage]
}

func newError(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// classify turns any error that reached the manager boundary into an *Error.
// Library errors pass through, errors wrapping a kind sentinel take that
// kind, everything else is a storage failure.
func classify(err error) *Error {
	if err == nil {
		return nil
	}
	var libErr *Error
	if errors.As(err, &libErr) {
		return libErr
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return &Error{Kind: kind, Message: err.Error(), Cause: err}
		}
	}
	return newError(ErrStorage, err, "Erro ao acessar o banco: %v", err)
}
