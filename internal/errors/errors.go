// Package errors defines the typed failures returned by the fulfillment core.
// Every failure carries a stable Kind so transports can map it to a status
// code without inspecting message text.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindStorage       Kind = "storage"
)

// ErrNotFound matches any not-found Error through errors.Is.
var ErrNotFound = &Error{Kind: KindNotFound, Message: "not found"}

// Error is the single concrete failure type of the core.
type Error struct {
	Kind    Kind
	Field   string
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

// Is reports kind equality so that errors.Is(err, ErrNotFound) holds for
// every not-found failure regardless of entity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t == ErrNotFound && e.Kind == KindNotFound
}

// NewValidationError reports malformed or out-of-range input.
func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// NewNotFoundError reports a referenced entity that does not exist.
func NewNotFoundError(entity string, id interface{}) *Error {
	return &Error{
		Kind:    KindNotFound,
		Field:   entity,
		Message: fmt.Sprintf("%s %v not found", entity, id),
	}
}

// NewAuthorizationError reports an entity the caller does not own.
func NewAuthorizationError(entity string, id interface{}) *Error {
	return &Error{
		Kind:    KindAuthorization,
		Field:   entity,
		Message: fmt.Sprintf("%s %v does not belong to the caller", entity, id),
	}
}

// NewConflictError reports a state-dependent failure such as insufficient stock.
func NewConflictError(field, message string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

// NewStorageError wraps a collaborator failure.
func NewStorageError(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op + " failed", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindStorage
// for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == kind
}

// As exposes the standard library helper so callers need a single import.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Is exposes the standard library helper so callers need a single import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// New exposes the standard library constructor.
func New(text string) error {
	return stderrors.New(text)
}
