package templates

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindValidation ErrorKind = "validation"
	KindSyntax     ErrorKind = "syntax"
	KindRender     ErrorKind = "render"
	KindCache      ErrorKind = "cache"
)

// Error carries the failure kind so callers can map it to a transport
// status without string matching. Field is set for validation failures.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewNotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewConflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewValidation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NewSyntax(format string, args ...any) *Error {
	return &Error{Kind: KindSyntax, Message: fmt.Sprintf(format, args...)}
}

func NewRender(format string, args ...any) *Error {
	return &Error{Kind: KindRender, Message: fmt.Sprintf(format, args...)}
}

func NewCacheError(err error) *Error {
	return &Error{Kind: KindCache, Message: "cache backend unavailable", Err: err}
}

// IsKind reports whether err is (or wraps) a template error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}
