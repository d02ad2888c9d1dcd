// Package errors defines the error vocabulary shared by the storefront
// services and its mapping onto HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrNotReady       = errors.New("not ready")
)

// kind describes how a sentinel surfaces to HTTP clients. message is the
// generic text used when the sentinel arrives bare, without an AppError.
type kind struct {
	sentinel error
	code     string
	status   int
	message  string
}

// Order matters only for errors that wrap more than one sentinel.
var kinds = []kind{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found"},
	{ErrAlreadyExists, "ALREADY_EXISTS", http.StatusConflict, "resource already exists"},
	{ErrConflict, "CONFLICT", http.StatusConflict, "resource was modified concurrently"},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest, ""},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, "authentication required"},
	{ErrForbidden, "FORBIDDEN", http.StatusForbidden, "access denied"},
	{ErrNotReady, "NOT_READY", http.StatusServiceUnavailable, "resource is still loading"},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "a dependency is unavailable"},
}

var internal = kind{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, "an internal error occurred"}

func kindOf(err error) kind {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k
		}
	}
	return internal
}

// AppError is an error with a client-facing code, message and status.
// Err is the sentinel (or cause) it wraps.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(sentinel error, message string) *AppError {
	k := kindOf(sentinel)
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
}

// NotFound reports a missing resource by type and id.
func NotFound(resource, id string) *AppError {
	return newAppError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

func InvalidInput(message string) *AppError {
	return newAppError(ErrInvalidInput, message)
}

func Unauthorized(message string) *AppError {
	return newAppError(ErrUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return newAppError(ErrForbidden, message)
}

func Conflict(message string) *AppError {
	return newAppError(ErrConflict, message)
}

// ServiceUnavailable reports a dependency that is down or shedding load.
func ServiceUnavailable(message string) *AppError {
	return newAppError(ErrServiceUnavail, message)
}

// NotReady reports a component that has not finished loading its state.
func NotReady(message string) *AppError {
	return newAppError(ErrNotReady, message)
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	return &AppError{Code: internal.code, Message: internal.message, Status: internal.status, Err: err}
}

// HTTPStatus returns the status an error should be reported with.
func HTTPStatus(err error) int {
	status, _, _ := Describe(err)
	return status
}

// Describe returns the status, code and client-facing message for err.
// Bare sentinels get a generic message, except invalid input, which
// echoes err since it only ever carries caller-supplied detail.
func Describe(err error) (status int, code, message string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}
	k := kindOf(err)
	message = k.message
	if k.sentinel == ErrInvalidInput {
		message = err.Error()
	}
	return k.status, k.code, message
}
