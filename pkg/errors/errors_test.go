package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	withCause := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: fmt.Errorf("redis connection lost")}
	assert.Equal(t, "INTERNAL_ERROR: something broke: redis connection lost", withCause.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "slot not found"}
	assert.Equal(t, "NOT_FOUND: slot not found", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"invalid input", InvalidInput("color name is required"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("missing user id"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("cart belongs to another user"), "FORBIDDEN", http.StatusForbidden, ErrForbidden},
		{"conflict", Conflict("cart is being modified"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"unavailable", ServiceUnavailable("product service is down"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
		{"not ready", NotReady("cart has not been loaded"), "NOT_READY", http.StatusServiceUnavailable, ErrNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("product", "sheet-001")
	require.NotNil(t, err)
	assert.Equal(t, "product with id sheet-001 not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotReady_IsNotServiceUnavailable(t *testing.T) {
	assert.False(t, errors.Is(NotReady("loading"), ErrServiceUnavail))
}

func TestInternal_HidesCause(t *testing.T) {
	err := Internal(fmt.Errorf("segfault"))
	assert.Equal(t, "an internal error occurred", err.Message)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Contains(t, err.Error(), "segfault")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"app error", NotFound("slot", "cart:u1"), http.StatusNotFound, "NOT_FOUND", "slot with id cart:u1 not found"},
		{"wrapped app error", fmt.Errorf("load: %w", InvalidInput("bad size")), http.StatusBadRequest, "INVALID_INPUT", "bad size"},
		{"not found", ErrNotFound, http.StatusNotFound, "NOT_FOUND", "resource not found"},
		{"exists", ErrAlreadyExists, http.StatusConflict, "ALREADY_EXISTS", "resource already exists"},
		{"conflict", ErrConflict, http.StatusConflict, "CONFLICT", "resource was modified concurrently"},
		{"invalid echoes", fmt.Errorf("quantity: %w", ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT", "quantity: invalid input"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN", "access denied"},
		{"not ready", ErrNotReady, http.StatusServiceUnavailable, "NOT_READY", "resource is still loading"},
		{"unavailable", ErrServiceUnavail, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "a dependency is unavailable"},
		{"internal", ErrInternal, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"},
		{"unknown", fmt.Errorf("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := Describe(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.message, message)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}
