package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Response is the standard JSON response envelope.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err through apperrors.Describe and writes the envelope.
// 500s are logged with the request-scoped logger when RequestLogger is
// mounted, else with fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	status, code, message := apperrors.Describe(err)
	if status == http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{
		Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID},
	})
}

// WriteValidationError writes a 400 for a request that failed to decode or
// validate. A *validator.ValidationError is reported field by field.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:      "VALIDATION_ERROR",
				Message:   "request validation failed",
				Fields:    valErr.Fields(),
				RequestID: requestID,
			},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error(), RequestID: requestID},
	})
}
