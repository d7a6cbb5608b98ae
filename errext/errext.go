// Package errext provides common interfaces for augmenting errors with
// additional context - hints for the end-user, an AbortReason for panics
// that should assign a particular process exit code, etc. It intentionally
// favors plain-value error wrapping over panics: every failure kind from the
// scheduler's error-handling design (spec §7) is represented by a value the
// caller inspects with errors.As, never by control-flow via exceptions.
package errext

import (
	"errors"
	"fmt"

	"github.com/aw32/hetsched/errext/exitcodes"
)

// HasHint is an error that has some additional hint data attached to it, to
// be shown to the end user.
type HasHint interface {
	error
	Hint() string
}

// HasExitCode is an error that can specify an unique exit code for this type
// of errors.
type HasExitCode interface {
	error
	ExitCode() exitcodes.ExitCode
}

// AbortReason is the reason a run was aborted.
type AbortReason uint8

// Possible abort reasons.
const (
	AbortedUnexpected AbortReason = iota // default, equivalent to an unknown error
	AbortedByUser
	AbortedByTimeout
	AbortedByInterrupt
	AbortedByScriptError
)

// Exception is an error that has an attached human-readable stack trace and
// an AbortReason. It is used to mark errors that escaped from deep within a
// mapping algorithm's search loop (e.g. the genetic/SA/migration-LP loops).
type Exception interface {
	error
	StackTrace() string
	AbortReason() AbortReason
}

type hintError struct {
	error
	hint string
}

// Hint implements the HasHint interface.
func (e hintError) Hint() string {
	return e.hint
}

// Unwrap implements the errors.Unwrap interface.
func (e hintError) Unwrap() error {
	return e.error
}

// WithHint wraps the given error, adding a hint to it that can be shown to
// the end user, but doesn't change the behavior of errors.Is(), errors.As()
// and calling Error() on the result. If the given error already has a hint,
// the new hint is prepended and the old one is kept in parentheses.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	newHint := hint
	var prevHint HasHint
	if errors.As(err, &prevHint) {
		newHint = fmt.Sprintf("%s (%s)", hint, prevHint.Hint())
	}
	return hintError{error: err, hint: newHint}
}

type exitCodeError struct {
	error
	exitCode exitcodes.ExitCode
}

// ExitCode implements the HasExitCode interface.
func (e exitCodeError) ExitCode() exitcodes.ExitCode {
	return e.exitCode
}

// Unwrap implements the errors.Unwrap interface.
func (e exitCodeError) Unwrap() error {
	return e.error
}

// WithExitCodeIfNone wraps the given error to have the given exit code, but
// only if it doesn't already have a different exit code attached to it. It
// doesn't change the behavior of errors.Is(), errors.As() and calling
// Error() on the result.
func WithExitCodeIfNone(err error, exitCode exitcodes.ExitCode) error {
	if err == nil {
		return nil
	}
	var hasExitCode HasExitCode
	if errors.As(err, &hasExitCode) {
		return err
	}
	return exitCodeError{error: err, exitCode: exitCode}
}
