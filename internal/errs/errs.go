package errs

import (
	"errors"
)

// Code is an application error code.
type Code string

const (
	InvalidArgument Code = "invalid_argument"
	Launch          Code = "launch"
	Navigation      Code = "navigation"
	Timeout         Code = "timeout"
	Interaction     Code = "interaction"
	Artifact        Code = "artifact"
	Canceled        Code = "canceled"
	Internal        Code = "internal"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// MessageOf returns the outermost coded message without its cause chain.
// Untyped errors report "internal error".
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	for err != nil {
		var coded *Error
		if !errors.As(err, &coded) {
			return false
		}
		if coded.Code == code {
			return true
		}
		err = coded.Err
	}
	return false
}

// Recoverable reports whether err is an expected absence: an element did
// not show up within its wait. Only such errors may be absorbed by a step.
func Recoverable(err error) bool {
	return err != nil && CodeOf(err) == Timeout
}

// ExitCode maps error code to process exit status.
func ExitCode(code Code) int {
	switch code {
	case InvalidArgument:
		return ExitUsage
	case Canceled:
		return ExitInterrupted
	default:
		return ExitFailed
	}
}

// ExitCodeOf returns the process exit status for err, ExitOK for nil.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitCode(CodeOf(err))
}
