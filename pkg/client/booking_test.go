package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"remoteassist/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *BookingClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBookingClient(srv.URL + "/")
}

func TestCreate(t *testing.T) {
	var gotKey, gotContentType string
	var gotBody map[string]any

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bookings", r.URL.Path)
		gotKey = r.Header.Get("Idempotency-Key")
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"65f1c0ffee0000000000abcd","name":"Ana","email":"ana@x.com","phone":null,
			"service_type":"network","issue_description":"no wifi","preferred_datetime":"2024-05-01T10:00",
			"status":"pending","meeting_link":null}`))
	})

	booking, err := c.Create(context.Background(), &model.BookingRequest{
		Name:   model.StringPtr("Ana"),
		Status: model.StringPtr("pending"),
	}, "key-1")
	require.NoError(t, err)

	assert.Equal(t, "65f1c0ffee0000000000abcd", booking.ID)
	assert.Equal(t, "Ana", booking.Name)
	assert.Nil(t, booking.Phone)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Ana", gotBody["name"])
	assert.Contains(t, gotBody, "email")
	assert.Nil(t, gotBody["email"])
}

func TestCreate_ValidationError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"Booking validation failed","code":"VALIDATION_ERROR","details":{"errors":[{"field":"email","message":"email is required"}]}}`))
	})

	_, err := c.Create(context.Background(), &model.BookingRequest{}, "")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Equal(t, "Booking validation failed", apiErr.Message)
	assert.Contains(t, apiErr.Details, "errors")
}

func TestList(t *testing.T) {
	var gotQuery string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"id":"1","status":"pending"},{"id":"2","status":"pending"}]`))
	})

	bookings, err := c.List(context.Background(), "pending")
	require.NoError(t, err)
	assert.Equal(t, "status=pending", gotQuery)
	assert.Len(t, bookings, 2)

	_, err = c.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, gotQuery)
}

func TestList_ServerErrorWithPlainBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.List(context.Background(), "")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestDiagnostics(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test", r.URL.Path)
		_, _ = w.Write([]byte(`{"backend":"✅ Running","database":"✅ Connected & Working","database_url":"✅ Set",
			"database_name":"✅ Set","connection_status":"Connected","collections":["booking"]}`))
	})

	diag, err := c.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Connected", diag.ConnectionStatus)
	assert.Equal(t, []string{"booking"}, diag.Collections)
}

func TestWaitForHealthy(t *testing.T) {
	var calls int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	require.NoError(t, c.HTTP().WaitForHealthy(context.Background(), 2*time.Second))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func TestWaitForHealthy_GivesUp(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.Error(t, c.HTTP().WaitForHealthy(context.Background(), 150*time.Millisecond))
}
