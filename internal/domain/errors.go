package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures surfaced by the generation core.
type Kind string

const (
	KindProvider        Kind = "provider_error"
	KindMalformedOutput Kind = "malformed_output"
	KindAuthorization   Kind = "authorization"
	KindTimedOut        Kind = "timed_out"
	KindAbandoned       Kind = "abandoned"
)

// Sentinels usable with errors.Is; an *Error matches the sentinel of its kind.
var (
	ErrProvider        = &Error{Kind: KindProvider, Message: "provider error"}
	ErrMalformedOutput = &Error{Kind: KindMalformedOutput, Message: "malformed output"}
	ErrAuthorization   = &Error{Kind: KindAuthorization, Message: "authorization required"}
	ErrTimedOut        = &Error{Kind: KindTimedOut, Message: "timed out"}
	ErrAbandoned       = &Error{Kind: KindAbandoned, Message: "credential selection abandoned"}

	ErrInvalidRequest = errors.New("invalid request")
)

// Error is the classified failure returned to hosts. Message is safe to
// display; Err keeps the underlying cause.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && (e.Message == "" || !strings.Contains(e.Message, e.Err.Error())) {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return e.Kind == t.Kind
}

// NewError builds a classified error.
func NewError(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// KindOf returns the kind of the first *Error in the chain, or "" when err is
// not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Reclassify copies err under a new kind while keeping its message, status
// and cause.
func Reclassify(err error, kind Kind) *Error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: kind, Op: e.Op, Status: e.Status, Message: e.Message, Err: e.Err}
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// InvalidRequest wraps ErrInvalidRequest with a reason.
func InvalidRequest(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, reason)
}
