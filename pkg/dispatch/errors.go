package dispatch

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the engine can observe.
type Kind uint8

const (
	// KindIgnored marks input that is intentionally not handled.
	KindIgnored Kind = iota
	// KindValidation covers an unresolvable guild or an unknown command.
	KindValidation
	// KindAuthorizationDenied means the invoker has none of the required roles.
	KindAuthorizationDenied
	// KindAuthorizationError means the role check could not be performed.
	KindAuthorizationError
	// KindHookVeto means the global hook declined the invocation.
	KindHookVeto
	// KindHandlerFault covers errors and panics raised by handlers and hooks.
	KindHandlerFault
	// KindDeliveryFault means a reply could not be sent.
	KindDeliveryFault
	// KindBulkFailure means a bulk write failed as a whole.
	KindBulkFailure
	// KindBulkPartialFailure means some targets of a guild sweep failed.
	KindBulkPartialFailure
)

func (k Kind) String() string {
	switch k {
	case KindIgnored:
		return "ignored"
	case KindValidation:
		return "validation"
	case KindAuthorizationDenied:
		return "authorization denied"
	case KindAuthorizationError:
		return "authorization error"
	case KindHookVeto:
		return "hook veto"
	case KindHandlerFault:
		return "handler fault"
	case KindDeliveryFault:
		return "delivery fault"
	case KindBulkFailure:
		return "bulk failure"
	case KindBulkPartialFailure:
		return "bulk partial failure"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Severity controls how a failure is presented to the invoker.
type Severity uint8

const (
	// SeverityNone is never shown to a user.
	SeverityNone Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// Severity maps a kind to its presentation.
func (k Kind) Severity() Severity {
	switch k {
	case KindIgnored, KindDeliveryFault, KindBulkFailure, KindBulkPartialFailure:
		return SeverityNone
	case KindAuthorizationDenied, KindHookVeto:
		return SeverityWarning
	case KindValidation, KindAuthorizationError, KindHandlerFault:
		return SeverityError
	}
	return SeverityError
}

// Error is the engine's error type.
type Error struct {
	Kind    Kind
	Target  string // command name or guild, when relevant
	Message string // user-facing text for interaction failures
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Target != "" {
		msg += " " + e.Target
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, target, message string, cause error) *Error {
	return &Error{Kind: kind, Target: target, Message: message, Cause: cause}
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrAuthorizationDenied = &Error{Kind: KindAuthorizationDenied}
	ErrAuthorizationError  = &Error{Kind: KindAuthorizationError}
	ErrHookVeto            = &Error{Kind: KindHookVeto}
	ErrHandlerFault        = &Error{Kind: KindHandlerFault}
	ErrDeliveryFault       = &Error{Kind: KindDeliveryFault}
	ErrBulkFailure         = &Error{Kind: KindBulkFailure}
	ErrBulkPartialFailure  = &Error{Kind: KindBulkPartialFailure}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

// userError carries a message meant to be shown to the invoker as is.
type userError struct {
	msg string
}

func (e *userError) Error() string { return e.msg }

// UserError returns an error whose message is shown to the invoker verbatim
// instead of the generic failure text.
func UserError(msg string) error { return &userError{msg: msg} }

// UserErrorf is UserError with formatting.
func UserErrorf(format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...)}
}

// IsUserError reports whether err's chain holds a UserError.
func IsUserError(err error) bool {
	var ue *userError
	return errors.As(err, &ue)
}
