package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// maxErrorBody caps how much of a failed response body is read.
const maxErrorBody = 1 << 20

// downstreamError is the {"error":{"code","message"}} body written by
// httputil.WriteError in every storefront service.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError turns a non-2xx response into an error, keeping the
// downstream code and message when the body is a structured error. The body
// is consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream downstreamError
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, serviceName)
	}

	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	qualified := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case status == http.StatusServiceUnavailable:
		appErr := apperrors.ServiceUnavailable(qualified)
		if code != "" {
			appErr.Code = code
		}
		return appErr
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	default:
		return &apperrors.AppError{
			Code:    code,
			Message: qualified,
			Status:  status,
		}
	}
}
