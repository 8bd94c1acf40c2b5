// Package apperror defines the two error kinds this service distinguishes
// anywhere a stage, handler, or reconciliation step can fail: InvalidInput
// and Internal. It follows the shape of the gomind core foundation's
// FrameworkError (Op/Kind/Message/Err, Unwrap support) generalized to carry
// a pipeline stage tag instead of an operation name.
package apperror

import (
	"errors"
	"fmt"
)

// Kind distinguishes a client-caused failure from everything else.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindInternal     Kind = "internal"
)

// Error is the only error type stages, the admission layer, and the offer
// reconciliation state machine raise. Stage names the pipeline stage (or
// subsystem) that failed; Detail is a human-readable message safe to return
// to callers.
type Error struct {
	Stage  string
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidInput builds a client-fault error for the given stage.
func InvalidInput(stage, detail string) *Error {
	return &Error{Stage: stage, Kind: KindInvalidInput, Detail: detail}
}

// Internal builds a server-fault error for the given stage, optionally
// wrapping the underlying cause.
func Internal(stage, detail string, cause error) *Error {
	return &Error{Stage: stage, Kind: KindInternal, Detail: detail, Err: cause}
}

// InternalMsg is Internal without a wrapped cause, for cases where the
// detail string is itself the only information available.
func InternalMsg(stage, detail string) *Error {
	return &Error{Stage: stage, Kind: KindInternal, Detail: detail}
}

// IsInvalidInput reports whether err (or something it wraps) is an
// InvalidInput Error.
func IsInvalidInput(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindInvalidInput
}
