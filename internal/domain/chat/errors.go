package chat

import (
	"errors"
	"fmt"
)

// Kind classifies chat failures so transport layers can map them without
// string matching.
type Kind string

const (
	KindInvalidRequest   Kind = "invalid_request"
	KindPermissionDenied Kind = "permission_denied"
	KindAccessDenied     Kind = "access_denied"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindInternal         Kind = "internal"
)

// Error carries a kind alongside the message. It wraps an optional cause.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("chat: %s: %v", e.Message, e.cause)
	}
	return "chat: " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

func InvalidRequest(msg string) *Error   { return newError(KindInvalidRequest, msg) }
func PermissionDenied(msg string) *Error { return newError(KindPermissionDenied, msg) }
func AccessDenied(msg string) *Error     { return newError(KindAccessDenied, msg) }
func NotFound(msg string) *Error         { return newError(KindNotFound, msg) }
func Conflict(msg string) *Error         { return newError(KindConflict, msg) }

func Internal(msg string, cause error) *Error { return wrapError(KindInternal, msg, cause) }

// KindOf extracts the kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var chatErr *Error
	if errors.As(err, &chatErr) {
		return chatErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
