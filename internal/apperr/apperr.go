// Package apperr defines the error taxonomy shared by the geocoding pipeline.
// Core packages return these typed errors; the CLI and HTTP boundaries map the
// Kind to an exit code or status.
package apperr

import (
	"errors"
	"fmt"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is any error that did not originate from the pipeline.
	KindUnknown Kind = iota
	// KindValidation indicates bad local input, e.g. an empty or oversized batch.
	KindValidation
	// KindConfig indicates a missing or inconsistent configuration value.
	KindConfig
	// KindResponse indicates malformed or out-of-range upstream data.
	KindResponse
	// KindNetwork indicates a transport failure, including TLS verification.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindResponse:
		return "response"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is a pipeline error with a typed Kind.
type Error struct {
	Kind    Kind
	Op      string // Operation that failed (optional)
	Message string
	Err     error // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates a KindValidation error.
func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Config creates a KindConfig error.
func Config(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Response creates a KindResponse error.
func Response(op, format string, args ...any) *Error {
	return &Error{Kind: KindResponse, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Network wraps a transport failure.
func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "request failed", Err: err}
}

// Wrap attaches an underlying error to e and returns it.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindValidation, KindConfig:
		return 2
	case KindResponse:
		return 3
	case KindNetwork:
		return 4
	default:
		return 1
	}
}
