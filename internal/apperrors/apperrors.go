// Package apperrors defines the error taxonomy shared by the repository,
// service and handler layers. Every error that crosses a layer boundary is
// classified by Kind so that handlers can map it to a response without
// string-matching messages.
package apperrors

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type Kind int

const (
	// KindUnknown is the zero value; errors.As on a non-*Error yields it.
	KindUnknown Kind = iota
	// KindValidation: malformed or missing input, duplicate template parameter.
	KindValidation
	// KindNotFound: a referenced entity is absent.
	KindNotFound
	// KindConflict: an invariant was violated (duplicate primary member,
	// zero-row mutation, unsatisfied cascade).
	KindConflict
	// KindTransient: connection/transaction acquisition failure or
	// cancellation. Safe to retry.
	KindTransient
	// KindFatal: unexpected store error. Not retried.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two taxonomy errors by Kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Transient(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}

func Fatal(msg string, err error) *Error {
	return &Error{Kind: KindFatal, Message: msg, Err: err}
}

// KindOf classifies any error. Context cancellation counts as transient:
// the transaction was rolled back and the caller may retry.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindFatal
}

// Postgres error codes that map onto the taxonomy.
const (
	pqForeignKeyViolation = "23503"
	pqNotNullViolation    = "23502"
	pqUniqueViolation     = "23505"
	pqSerializationFail   = "40001"
)

// FromStore classifies an error returned by statement execution. Constraint
// violations become conflicts, serialization failures are retryable, and
// anything unrecognised is fatal.
func FromStore(msg string, err error) *Error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqForeignKeyViolation, pqNotNullViolation, pqUniqueViolation:
			return &Error{Kind: KindConflict, Message: msg, Err: err}
		case pqSerializationFail:
			return &Error{Kind: KindTransient, Message: msg, Err: err}
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTransient, Message: msg, Err: err}
	}
	return &Error{Kind: KindFatal, Message: msg, Err: err}
}
