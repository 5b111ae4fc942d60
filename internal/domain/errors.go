package domain

import "fmt"

// ErrorKind is the taxonomy of spec.md §7: the HTTP surface maps each
// kind to one status code without ever inspecting the wrapped cause.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindInvalid          ErrorKind = "invalid"
	KindUnauthorised     ErrorKind = "unauthorised"
	KindGenerationFailed ErrorKind = "generation_failed"
	KindTransient        ErrorKind = "transient"
)

// Error is the core's error type. Message is safe to surface to a
// client; Err (when set) is logged but never returned over HTTP.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func NotFound(message string) *Error { return NewError(KindNotFound, message, nil) }

func Invalid(message string) *Error { return NewError(KindInvalid, message, nil) }

func Unauthorised(message string) *Error { return NewError(KindUnauthorised, message, nil) }

func GenerationFailed(message string, cause error) *Error {
	return NewError(KindGenerationFailed, message, cause)
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, and
// reports ok=false otherwise so callers can fall back to a 500.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			e = asErr
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Kind, true
}
