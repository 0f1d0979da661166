package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	bookingserrors "remoteassist/internal/bookings/errors"
	"remoteassist/internal/bookings/service"
	"remoteassist/internal/bookings/validator"
	"remoteassist/pkg/config"
	apperrors "remoteassist/pkg/errors"
	"remoteassist/pkg/logger"
	"remoteassist/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBookingService struct {
	createFunc func(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	listFunc   func(ctx context.Context, status string) ([]*model.Booking, error)
}

func (m *mockBookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	booking := req.ToBooking()
	booking.ID = "65f1c0ffee0000000000abcd"
	return booking, nil
}

func (m *mockBookingService) List(ctx context.Context, status string) ([]*model.Booking, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, status)
	}
	return nil, nil
}

func (m *mockBookingService) WaitForEvents(context.Context) error {
	return nil
}

// memoryRepository backs the real service in end-to-end handler tests.
type memoryRepository struct {
	bookings []*model.Booking
	err      error
}

func (m *memoryRepository) Create(_ context.Context, booking *model.Booking) (string, error) {
	if m.err != nil {
		return "", bookingserrors.NewStorageError("create", m.err)
	}
	booking.ID = strings.Repeat("0", 23) + string(rune('a'+len(m.bookings)))
	stored := *booking
	m.bookings = append(m.bookings, &stored)
	return booking.ID, nil
}

func (m *memoryRepository) List(_ context.Context, status string) ([]*model.Booking, error) {
	if m.err != nil {
		return nil, bookingserrors.NewStorageError("list", m.err)
	}
	out := []*model.Booking{}
	for _, b := range m.bookings {
		if status == "" || b.Status == status {
			out = append(out, b)
		}
	}
	return out, nil
}

const anaPayload = `{"name":"Ana","email":"ana@x.com","phone":null,"service_type":"network",
	"issue_description":"no wifi","preferred_datetime":"2024-05-01T10:00","status":"pending","meeting_link":null}`

func newRouter(svc service.BookingService) *httprouter.Router {
	log := logger.NewNop()
	router := httprouter.New()
	NewBookingHandler(svc, validator.NewBookingValidator(log), log).RegisterRoutes(router)
	return router
}

func newServiceRouter(repo *memoryRepository) *httprouter.Router {
	log := logger.NewNop()
	v := validator.NewBookingValidator(log)
	svc := service.NewBookingService(repo, v, nil, &config.Config{Log: log})
	return newRouter(svc)
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreate_ReturnsBookingWithID(t *testing.T) {
	rec := do(newRouter(&mockBookingService{}), http.MethodPost, "/api/bookings", anaPayload)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "65f1c0ffee0000000000abcd", body["id"])
	assert.Equal(t, "Ana", body["name"])
	assert.Equal(t, "ana@x.com", body["email"])
	assert.Equal(t, "pending", body["status"])
	assert.Contains(t, body, "phone")
	assert.Nil(t, body["phone"])
	assert.Contains(t, body, "meeting_link")
	assert.Nil(t, body["meeting_link"])
}

func TestCreate_InvalidBody(t *testing.T) {
	called := false
	svc := &mockBookingService{
		createFunc: func(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
			called = true
			return nil, nil
		},
	}

	rec := do(newRouter(svc), http.MethodPost, "/api/bookings", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidInput, decodeError(t, rec).Code)
	assert.False(t, called)
}

func TestCreate_WrongFieldType(t *testing.T) {
	payload := strings.Replace(anaPayload, `"name":"Ana"`, `"name":7`, 1)

	rec := do(newRouter(&mockBookingService{}), http.MethodPost, "/api/bookings", payload)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, apperrors.CodeValidation, resp.Code)
	assert.Contains(t, rec.Body.String(), `"field":"name"`)
}

func TestCreate_MissingFieldIsNotStored(t *testing.T) {
	repo := &memoryRepository{}
	payload := strings.Replace(anaPayload, `"status":"pending",`, ``, 1)

	rec := do(newServiceRouter(repo), http.MethodPost, "/api/bookings", payload)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"status"`)
	assert.Empty(t, repo.bookings)
}

func TestCreate_StorageFailure(t *testing.T) {
	repo := &memoryRepository{err: errors.New("no reachable servers")}

	rec := do(newServiceRouter(repo), http.MethodPost, "/api/bookings", anaPayload)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, apperrors.CodeStorage, resp.Code)
	assert.Equal(t, "no reachable servers", resp.Details["reason"])
}

func TestList_EmptyIsArray(t *testing.T) {
	rec := do(newRouter(&mockBookingService{}), http.MethodGet, "/api/bookings", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestList_PassesStatusQuery(t *testing.T) {
	var got string
	svc := &mockBookingService{
		listFunc: func(ctx context.Context, status string) ([]*model.Booking, error) {
			got = status
			return []*model.Booking{}, nil
		},
	}
	router := newRouter(svc)

	do(router, http.MethodGet, "/api/bookings?status=confirmed", "")
	assert.Equal(t, "confirmed", got)

	do(router, http.MethodGet, "/api/bookings", "")
	assert.Empty(t, got)
}

func TestList_StoreUnavailable(t *testing.T) {
	svc := &mockBookingService{
		listFunc: func(ctx context.Context, status string) ([]*model.Booking, error) {
			return nil, bookingserrors.ToAppError(bookingserrors.NewStorageError("list", bookingserrors.ErrStoreUnavailable))
		},
	}

	rec := do(newRouter(svc), http.MethodGet, "/api/bookings", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperrors.CodeStorage, decodeError(t, rec).Code)
}

func TestExampleScenario(t *testing.T) {
	router := newServiceRouter(&memoryRepository{})

	rec := do(router, http.MethodPost, "/api/bookings", anaPayload)
	require.Equal(t, http.StatusOK, rec.Code)

	var created model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	rec = do(router, http.MethodGet, "/api/bookings?status=pending", "")
	var pending []model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, created, pending[0])

	rec = do(router, http.MethodGet, "/api/bookings?status=confirmed", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}
