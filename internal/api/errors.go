package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

const internalMessage = "an unexpected error occurred"

// RegisterErrorHandler configures huma to render domain errors. Call this
// after creating the huma.API but before serving requests. Causes of 5xx
// responses are logged and never sent to the client.
func RegisterErrorHandler(logger *slog.Logger) {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		return newAPIError(logger, status, message, errs...)
	}
}

func newAPIError(logger *slog.Logger, status int, message string, errs ...error) *APIError {
	for _, err := range errs {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			if domainErr.Code == domainerrors.CodeInternal {
				break
			}
			return &APIError{
				status:  domainErr.HTTPStatus(),
				Code:    string(domainErr.Code),
				Message: domainErr.Message,
				Details: domainErr.Details,
			}
		}

		if apiErr := mapStoreError(err); apiErr != nil {
			return apiErr
		}
	}

	// Schema violations detected by huma are reported like service
	// validation failures.
	if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
		return &APIError{
			status:  http.StatusBadRequest,
			Code:    string(domainerrors.CodeValidation),
			Message: validationMessage(message),
			Details: schemaErrorDetails(errs),
		}
	}

	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "status", status, "message", message, "error", errors.Join(errs...))
		}
		return &APIError{
			status:  http.StatusInternalServerError,
			Code:    string(domainerrors.CodeInternal),
			Message: internalMessage,
		}
	}

	return &APIError{
		status:  status,
		Code:    statusToCode(status),
		Message: message,
	}
}

// mapStoreError converts persistence sentinels that escaped a service.
func mapStoreError(err error) *APIError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &APIError{status: http.StatusNotFound, Code: string(domainerrors.CodeNotFound), Message: "resource not found"}
	case errors.Is(err, store.ErrAlreadyExists):
		return &APIError{status: http.StatusConflict, Code: string(domainerrors.CodeConflict), Message: "resource already exists"}
	case errors.Is(err, store.ErrTokenMismatch):
		return &APIError{status: http.StatusUnauthorized, Code: string(domainerrors.CodeInvalidToken), Message: domainerrors.ErrInvalidToken.Message}
	}
	return nil
}

func validationMessage(message string) string {
	if message == "" {
		return "request validation failed"
	}
	return message
}

// schemaErrorDetails turns huma's per-field errors into a location to message map.
func schemaErrorDetails(errs []error) any {
	details := make(map[string]string)
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) {
			loc := detail.Location
			if loc == "" {
				loc = "body"
			}
			details[loc] = detail.Message
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	default:
		return string(domainerrors.CodeInternal)
	}
}
