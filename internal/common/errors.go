// Package common defines shared constants and sentinel errors used across
// CloudConfig server and client layers. Callers should use errors.Is to
// match these values, or KindOf to classify an arbitrary wrapped error.
package common

import "errors"

var (
	// Authentication: missing or malformed headers, unknown identity,
	// bad signature, timestamp outside the drift window, replayed nonce.
	ErrorUnauthorized = errors.New("unauthorized")

	// Authorization: administrator required, or a read/write grant missing.
	ErrorForbidden = errors.New("forbidden")

	// Validation: malformed JSON value, oversized body, malformed identifiers.
	ErrorValidation = errors.New("validation error")

	// Conflict: duplicate project name, self-deletion.
	ErrorConflict = errors.New("conflict")

	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Storage or crypto failures. Never disclosed beyond a generic message.
	ErrorInternal = errors.New("internal error")
)

// Kind is the boundary-level classification of an error.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindValidation
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// KindOf classifies err. Anything that does not wrap one of the sentinel
// errors above is treated as an internal failure.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrorUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrorForbidden):
		return KindForbidden
	case errors.Is(err, ErrorValidation):
		return KindValidation
	case errors.Is(err, ErrorConflict):
		return KindConflict
	case errors.Is(err, ErrorNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
