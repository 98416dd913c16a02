package errors

import "fmt"

// Kind classifies an application error
type Kind int

const (
	ErrInternal Kind = iota
	ErrInvalidTransition
	ErrUnknownParticipant
	ErrMalformedWager
	ErrValidation
)

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Constructor functions for common error types

func InvalidTransition(msg string) *Error {
	return &Error{Kind: ErrInvalidTransition, Message: msg}
}

func InvalidTransitionf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func UnknownParticipant(msg string) *Error {
	return &Error{Kind: ErrUnknownParticipant, Message: msg}
}

func UnknownParticipantf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrUnknownParticipant, Message: fmt.Sprintf(format, args...)}
}

func MalformedWager(msg string) *Error {
	return &Error{Kind: ErrMalformedWager, Message: msg}
}

func MalformedWagerf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrMalformedWager, Message: fmt.Sprintf(format, args...)}
}

func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

func Internalf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// IsKind reports whether err is an application Error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := err.(*Error)
	return ok && appErr.Kind == kind
}
