package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes. These are part of the public API response envelope and must stay stable.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_ERROR"
)

// Error is the typed failure raised by the core.
//
// Code is machine readable and safe to show to callers. Msg is the human-readable
// message shown to callers. Op and Err carry internal detail for logs only.
type Error struct {
	Code string
	Msg  string
	Op   string
	Err  error
}

// Error implements the error interface by writing out the recursive messages.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(fmt.Sprintf("<%s>", e.Code))
	}
	return b.String()
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// PublicMessage returns the message that may be shown to a caller.
// Internal errors never expose their wrapped detail.
func (e *Error) PublicMessage() string {
	if e.Code == CodeInternal || e.Code == "" {
		return "internal server error"
	}
	if e.Msg != "" {
		return e.Msg
	}
	return strings.ToLower(strings.ReplaceAll(e.Code, "_", " "))
}

// ErrorCode returns the code of the first taxonomy error in the chain, or CodeInternal.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error code to its HTTP status
func HTTPStatus(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAuthentication:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Validation creates a validation error
func Validation(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidation, Msg: fmt.Sprintf(format, args...)}
}

// Authentication creates an authentication error
func Authentication(msg string) *Error {
	return &Error{Code: CodeAuthentication, Msg: msg}
}

// Forbidden creates a forbidden error
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Msg: msg}
}

// NotFound creates a not found error for a resource kind. The message never includes
// the tenant or any hint about why the record was not visible.
func NotFound(kind string) *Error {
	return &Error{Code: CodeNotFound, Msg: kind + " not found"}
}

// Conflict creates a conflict error
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Code: CodeConflict, Msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a collaborator failure
func Persistence(op string, err error) *Error {
	return &Error{Code: CodeInternal, Op: op, Err: err}
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return ErrorCode(err) == CodeValidation }

// IsAuthentication reports whether err is an authentication error
func IsAuthentication(err error) bool { return ErrorCode(err) == CodeAuthentication }

// IsForbidden reports whether err is a forbidden error
func IsForbidden(err error) bool { return ErrorCode(err) == CodeForbidden }

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool { return ErrorCode(err) == CodeNotFound }

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool { return ErrorCode(err) == CodeConflict }
