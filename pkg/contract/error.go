package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode mirrors the error codes of the MLflow REST protocol.
type ErrorCode string

const (
	ErrorCodeInternalError           ErrorCode = "INTERNAL_ERROR"
	ErrorCodeTemporarilyUnavailable  ErrorCode = "TEMPORARILY_UNAVAILABLE"
	ErrorCodeBadRequest              ErrorCode = "BAD_REQUEST"
	ErrorCodeInvalidParameterValue   ErrorCode = "INVALID_PARAMETER_VALUE"
	ErrorCodeEndpointNotFound        ErrorCode = "ENDPOINT_NOT_FOUND"
	ErrorCodeInvalidState            ErrorCode = "INVALID_STATE"
	ErrorCodePermissionDenied        ErrorCode = "PERMISSION_DENIED"
	ErrorCodeResourceAlreadyExists   ErrorCode = "RESOURCE_ALREADY_EXISTS"
	ErrorCodeResourceDoesNotExist    ErrorCode = "RESOURCE_DOES_NOT_EXIST"
	ErrorCodeServiceUnderMaintenance ErrorCode = "SERVICE_UNDER_MAINTENANCE"
)

type Error struct {
	Code    ErrorCode
	Message string
	Inner   error
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func NewErrorWith(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Inner:   err,
	}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Inner != nil {
		return fmt.Sprintf("%s: %s", msg, e.Inner)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) MarshalJSON() ([]byte, error) {
	msg := e.Message
	if e.Inner != nil {
		msg += ": " + e.Inner.Error()
	}

	return json.Marshal(struct {
		Code    ErrorCode `json:"error_code"`
		Message string    `json:"message"`
	}{e.Code, msg})
}

//nolint:cyclop
func (e *Error) StatusCode() int {
	switch e.Code {
	case ErrorCodeBadRequest,
		ErrorCodeInvalidParameterValue,
		ErrorCodeResourceAlreadyExists:
		return http.StatusBadRequest
	case ErrorCodePermissionDenied:
		return http.StatusForbidden
	case ErrorCodeEndpointNotFound, ErrorCodeResourceDoesNotExist:
		return http.StatusNotFound
	case ErrorCodeTemporarilyUnavailable, ErrorCodeServiceUnderMaintenance:
		return http.StatusServiceUnavailable
	case ErrorCodeInternalError, ErrorCodeInvalidState:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HasCode reports whether err wraps a contract error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}

	return false
}
