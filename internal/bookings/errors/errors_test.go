package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	apperrors "remoteassist/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("wrapped: %w", NewStorageError("create", cause))

	assert.True(t, IsStorageError(err))
	assert.False(t, IsValidationError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to create bookings: connection refused")
}

func TestStorageError_Unavailable(t *testing.T) {
	err := NewStorageError("list", ErrStoreUnavailable)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestValidationErrors(t *testing.T) {
	err := ValidationErrors{
		{Field: "name", Message: "name is required"},
		{Field: "email", Message: "email must be a string"},
	}

	assert.True(t, IsValidationError(err))
	assert.False(t, IsStorageError(err))
	assert.Equal(t, []string{"name", "email"}, err.Fields())
	assert.Equal(t, "validation failed: 2 error(s): [name: name is required; email: email must be a string]", err.Error())
	assert.Empty(t, ValidationErrors{}.Error())
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"validation", ValidationErrors{{Field: "name", Message: "name is required"}}, apperrors.CodeValidation, http.StatusUnprocessableEntity},
		{"storage", NewStorageError("create", errors.New("timeout")), apperrors.CodeStorage, http.StatusInternalServerError},
		{"store unavailable", NewStorageError("list", ErrStoreUnavailable), apperrors.CodeStorage, http.StatusInternalServerError},
		{"invalid body", fmt.Errorf("%w: unexpected EOF", ErrInvalidBody), apperrors.CodeInvalidInput, http.StatusBadRequest},
		{"body too large", &http.MaxBytesError{Limit: 10}, apperrors.CodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"already mapped", apperrors.Timeout("slow"), apperrors.CodeTimeout, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), apperrors.CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
		})
	}

	assert.Nil(t, ToAppError(nil))
}

func TestToAppError_StorageDetails(t *testing.T) {
	appErr := ToAppError(NewStorageError("create", errors.New("server selection timeout")))

	assert.Equal(t, "Failed to create bookings", appErr.Message)
	assert.Equal(t, "server selection timeout", appErr.Details["reason"])
}
