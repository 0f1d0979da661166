package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	apperrors "remoteassist/pkg/errors"
)

var (
	ErrStoreUnavailable = errors.New("booking store is unavailable")

	ErrInvalidBody = errors.New("request body must be a JSON object")
)

// StorageError reports a failed repository operation. Op names the
// operation ("create", "list").
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s bookings: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Fields lists the offending field names in order.
func (v ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(v))
	for _, err := range v {
		fields = append(fields, err.Field)
	}
	return fields
}

func IsValidationError(err error) bool {
	var validationErrs ValidationErrors
	return errors.As(err, &validationErrs)
}

// ToAppError maps a booking failure onto the transport error model.
// Validation and storage failures keep distinct codes and statuses.
func ToAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr := apperrors.AsAppError(err); appErr != nil {
		return appErr
	}

	var validationErrs ValidationErrors
	if errors.As(err, &validationErrs) {
		return apperrors.Validation("Booking validation failed", map[string]any{
			"errors": []ValidationError(validationErrs),
		})
	}

	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		message := fmt.Sprintf("Failed to %s bookings", storageErr.Op)
		if errors.Is(err, ErrStoreUnavailable) {
			message = "Booking store is unavailable"
		}
		return apperrors.Storage(message, err).WithDetails(map[string]any{
			"reason": storageErr.Err.Error(),
		})
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return apperrors.PayloadTooLarge(maxBytesErr.Limit)
	}

	if errors.Is(err, ErrInvalidBody) {
		return apperrors.InvalidInput(err.Error())
	}

	return apperrors.Internal("Unexpected booking failure", err)
}
