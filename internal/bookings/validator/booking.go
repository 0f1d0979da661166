package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	bookingserrors "remoteassist/internal/bookings/errors"
	"remoteassist/pkg/logger"
	"remoteassist/pkg/model"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	// report json names ("service_type") instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

// Decode reads a booking payload. A body that is not a single JSON object
// yields ErrInvalidBody. Every field of the wrong JSON type is reported in
// ValidationErrors, together with any required fields left missing.
func (v *BookingValidator) Decode(r io.Reader) (*model.BookingRequest, error) {
	var raw map[string]json.RawMessage

	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", bookingserrors.ErrInvalidBody, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", bookingserrors.ErrInvalidBody)
	}

	req, typeErrs := bindRequest(raw)
	if len(typeErrs) > 0 {
		return nil, merge(typeErrs, v.Validate(req))
	}
	return req, nil
}

// bindRequest copies string and null values into the request. Keys are
// matched exactly; unknown keys are ignored.
func bindRequest(raw map[string]json.RawMessage) (*model.BookingRequest, bookingserrors.ValidationErrors) {
	req := &model.BookingRequest{}
	fields := []struct {
		name string
		dst  **string
	}{
		{"name", &req.Name},
		{"email", &req.Email},
		{"phone", &req.Phone},
		{"service_type", &req.ServiceType},
		{"issue_description", &req.IssueDescription},
		{"preferred_datetime", &req.PreferredDatetime},
		{"status", &req.Status},
		{"meeting_link", &req.MeetingLink},
	}

	var typeErrs bookingserrors.ValidationErrors
	for _, f := range fields {
		value, ok := raw[f.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, f.dst); err != nil {
			typeErrs = append(typeErrs, bookingserrors.ValidationError{
				Field:   f.name,
				Message: fmt.Sprintf("%s must be a string, got %s", f.name, jsonKind(value)),
			})
		}
	}
	return req, typeErrs
}

func jsonKind(value json.RawMessage) string {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return "nothing"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	default:
		return "number"
	}
}

// Validate checks required-field presence. Empty strings are accepted.
func (v *BookingValidator) Validate(req *model.BookingRequest) error {
	if req == nil {
		return bookingserrors.ValidationErrors{{Field: "body", Message: "booking is required"}}
	}

	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return nil
}

// merge appends required-field failures for fields not already reported
// as having the wrong type.
func merge(typeErrs bookingserrors.ValidationErrors, err error) error {
	var requiredErrs bookingserrors.ValidationErrors
	if !errors.As(err, &requiredErrs) {
		return typeErrs
	}

	seen := make(map[string]struct{}, len(typeErrs))
	for _, e := range typeErrs {
		seen[e.Field] = struct{}{}
	}
	for _, e := range requiredErrs {
		if _, ok := seen[e.Field]; !ok {
			typeErrs = append(typeErrs, e)
		}
	}
	return typeErrs
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) bookingserrors.ValidationErrors {
	var validationErrors bookingserrors.ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		}

		validationErrors = append(validationErrors, bookingserrors.ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
