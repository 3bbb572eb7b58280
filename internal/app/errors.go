package app

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode int

const (
	CodeValidation ErrorCode = iota // missing or malformed request fields
	CodeAuth                        // missing credential
	CodeForbidden                   // invalid/expired credential, or insufficient claim
	CodePolicy                      // business-rule rejection
	CodeProvider                    // external media-service failure
	CodeInternal                    // unexpected
)

// Error is the handler-facing failure: a taxonomy code plus the message the
// client is allowed to see. Provider detail passes through; internal detail
// does not.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodePolicy:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HTTPError maps any failure to the status and client message a handler
// should answer with. Errors outside the taxonomy stay generic.
func HTTPError(err error) (int, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus(), e.Message
	}
	return http.StatusInternalServerError, "Internal server error."
}
