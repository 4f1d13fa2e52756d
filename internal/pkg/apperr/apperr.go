// Package apperr classifies domain errors so transport layers can map them
// without knowing every sentinel of every domain package.
package apperr

import (
	"errors"
)

// Kind is the category of a domain error.
type Kind int

const (
	// KindPersistence is the zero value: anything unclassified is treated as a
	// storage or programming failure and surfaced as a generic error.
	KindPersistence Kind = iota
	KindValidation
	KindAuthorization
	KindInvalidTransition
	KindConflict
	KindNotFound
	KindExternalDegraded
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindExternalDegraded:
		return "external_degraded"
	default:
		return "persistence"
	}
}

// Kinded is implemented by errors that know their own category.
type Kinded interface {
	ErrorKind() Kind
}

// Error is a categorised error. Sentinels are declared per domain with New and
// compared with errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// New creates a sentinel error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewWithCode creates a sentinel that carries a specific response code.
func NewWithCode(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrorKind() Kind { return e.Kind }

// KindOf returns the kind of the first categorised error in err's chain.
func KindOf(err error) Kind {
	var k Kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindPersistence
}

// CodeOf returns the explicit response code carried by err, if any.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns a caller-safe message. Persistence errors never leak
// their underlying cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	var k Kinded
	if errors.As(err, &k) {
		return err.Error()
	}
	return "An unexpected error occurred"
}

// Is reports whether err belongs to kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
