package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInternal         = "INTERNAL_ERROR"
	CodeStorage          = "STORAGE_ERROR"
	CodeTimeout          = "TIMEOUT"
	CodeConflict         = "CONFLICT"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
)

// AppError is an error that knows how it should be rendered over HTTP.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

// ErrorResponse is the JSON body clients receive.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func newAppError(code string, status int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error   { return e.Err }
func (e *AppError) StatusCode() int { return e.HTTPStatus }

func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{Error: e.Message, Code: e.Code, Details: e.Details}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func Validation(message string, details map[string]any) *AppError {
	return newAppError(CodeValidation, http.StatusUnprocessableEntity, message, nil).WithDetails(details)
}

func InvalidInput(message string) *AppError {
	return newAppError(CodeInvalidInput, http.StatusBadRequest, message, nil)
}

func Internal(message string, err error) *AppError {
	return newAppError(CodeInternal, http.StatusInternalServerError, message, err)
}

// Storage reports a failure of the backing store. Callers may retry these,
// unlike validation failures.
func Storage(message string, err error) *AppError {
	return newAppError(CodeStorage, http.StatusInternalServerError, message, err)
}

func Timeout(message string) *AppError {
	return newAppError(CodeTimeout, http.StatusServiceUnavailable, message, nil)
}

// Conflict reports a request that collides with one still in progress.
func Conflict(message string) *AppError {
	return newAppError(CodeConflict, http.StatusConflict, message, nil)
}

func RateLimited() *AppError {
	return newAppError(CodeRateLimited, http.StatusTooManyRequests, "Rate limit exceeded", nil)
}

func UnsupportedMediaType(message string) *AppError {
	return newAppError(CodeUnsupportedMedia, http.StatusUnsupportedMediaType, message, nil)
}

func PayloadTooLarge(limit int64) *AppError {
	return newAppError(CodePayloadTooLarge, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Request body exceeds %d bytes", limit), nil)
}

// AsAppError finds the AppError in err's chain. Anything else is reported
// as an internal error so no raw error text reaches clients.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
