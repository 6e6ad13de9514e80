// Package apperr defines the typed errors the service layer reports.
// Every failure carries a machine-checkable Kind; the HTTP layer maps
// kinds to status codes and nothing below it knows about HTTP.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation covers bad input and bad entity state (order not
	// pending, unsupported provider, qty <= 0).
	KindValidation
	KindNotFound
	// KindForbidden: the caller does not own the entity.
	KindForbidden
	// KindConflict: terminal-state violation, out-of-stock, duplicate SKU.
	// The enclosing transaction has been rolled back.
	KindConflict
	// KindProvider: the external gateway failed (network, non-2xx, token grant).
	KindProvider
	// KindSignature: an inbound webhook payload did not authenticate.
	KindSignature
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindProvider:
		return "provider"
	case KindSignature:
		return "signature"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
