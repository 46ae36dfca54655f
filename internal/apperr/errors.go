package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for the API boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindAuth:
		return "AUTH"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus returns the response status used for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure with a stable code and a human-readable message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error. Values created at package level act as sentinels for errors.Is.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, code, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Validation builds a validation failure for a malformed or missing field.
func Validation(message string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: "invalid_argument", Message: fmt.Sprintf(message, args...)}
}

// Internal wraps an unexpected storage or infrastructure failure.
func Internal(message string, err error) error {
	return Wrap(KindInternal, "internal", message, err)
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code, "internal" for unclassified errors.
func CodeOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Code
	}
	return "internal"
}

// MessageOf returns the client-safe message. Unclassified errors never leak their text.
func MessageOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Message
	}
	return "internal server error"
}
