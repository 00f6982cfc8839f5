// Package idiserr defines the typed error kinds the core surfaces across its
// service boundaries (spec §7). Internal code mostly uses sentinel errors and
// fmt.Errorf wrapping; idiserr.Error exists only where a caller outside the
// core (the transport layer) needs a stable, switchable discriminant.
package idiserr

import "fmt"

// Kind is a stable, transport-mappable error discriminant.
type Kind string

const (
	Unauthenticated        Kind = "UNAUTHENTICATED"
	RBACDenied             Kind = "RBAC_DENIED"
	ABACDeniedNoAssignment Kind = "ABAC_DENIED_NO_ASSIGNMENT"
	ABACDeniedAuditor      Kind = "ABAC_DENIED_AUDITOR_MUTATION"
	ABACDeniedBreakGlass   Kind = "ABAC_DENIED_BREAK_GLASS_REQUIRED"
	ABACDeniedUnknownDeal  Kind = "ABAC_DENIED_UNKNOWN_DEAL"
	NotFound               Kind = "NOT_FOUND"
	InvalidInput           Kind = "INVALID_INPUT"
	NoFreeFactsViolation   Kind = "NO_FREE_FACTS_VIOLATION"
	MuhasabahRejected      Kind = "MUHASABAH_REJECTED"
	CalcIntegrity          Kind = "CALC_INTEGRITY"
	SagaCompensated        Kind = "SAGA_COMPENSATED"
	SagaCompensationFailed Kind = "SAGA_COMPENSATION_FAILED"
	AuditEmitFailed        Kind = "AUDIT_EMIT_FAILED"
	Conflict               Kind = "CONFLICT"
	Blocked                Kind = "BLOCKED"
)

// Error is the typed error carried across a core service boundary.
type Error struct {
	Kind    Kind
	Message string
	Path    string // first failing field path, for INVALID_INPUT (deterministic traversal order)
	Cause   error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind, chaining cause for %w unwrapping.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Invalid builds an INVALID_INPUT error carrying the first failing field path.
func Invalid(path, message string) *Error {
	return &Error{Kind: InvalidInput, Message: message, Path: path}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if err == nil {
		return "", false
	}
	if asError(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
