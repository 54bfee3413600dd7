package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/reviewregistry/pkg/errors"
)

// downstreamError mirrors the httputil error envelope.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// maps it to an error. Structured error envelopes keep their code and message.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", serviceName, resp.StatusCode, err)
	}

	var env downstreamError
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return mapDownstreamError(resp.StatusCode, env.Error.Code, env.Error.Message, serviceName)
	}
	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	msg := serviceName + ": " + message

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case status == http.StatusConflict:
		return apperrors.Conflict(msg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case status == http.StatusUnprocessableEntity:
		return apperrors.Unprocessable(msg)
	case status == http.StatusServiceUnavailable:
		return &apperrors.AppError{Code: code, Message: msg, Status: status, Err: apperrors.ErrServiceUnavail}
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: msg, Status: status}
	}
}

// IsClientError reports whether status is 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
