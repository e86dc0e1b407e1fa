package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies ledger errors so callers can decide whether a retry makes sense.
type Kind string

const (
	// KindValidation marks bad input, rejected before any state mutation.
	KindValidation Kind = "validation"
	// KindConflict marks a state/ordering violation; callers must re-check state.
	KindConflict Kind = "conflict"
	// KindUnauthorized marks a privileged call from a non-authority caller.
	KindUnauthorized Kind = "unauthorized"
	// KindTransferFailed marks a failed external funds movement; the triggering
	// operation rolls back fully.
	KindTransferFailed Kind = "transfer_failed"
)

// Error is the ledger error type. It carries a kind and a message and may wrap
// an underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a validation error.
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Conflict returns a state-conflict error.
func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Unauthorized returns an authorization error.
func Unauthorized(format string, args ...interface{}) error {
	return &Error{Kind: KindUnauthorized, Msg: fmt.Sprintf(format, args...)}
}

// TransferFailed wraps a failed funds-forward.
func TransferFailed(msg string, cause error) error {
	return &Error{Kind: KindTransferFailed, Msg: msg, Err: cause}
}

// KindOf returns the kind of err, or "" when err is not a ledger error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a ledger error of the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// HTTPStatus maps an error to the HTTP status its handler should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindTransferFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
