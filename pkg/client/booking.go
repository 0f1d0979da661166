package client

import (
	"context"
	"net/http"
	"net/url"

	"remoteassist/pkg/model"
)

const bookingsPath = "/api/bookings"

// Diagnostics mirrors the /test endpoint.
type Diagnostics struct {
	Backend          string   `json:"backend"`
	Database         string   `json:"database"`
	DatabaseURL      string   `json:"database_url"`
	DatabaseName     string   `json:"database_name"`
	ConnectionStatus string   `json:"connection_status"`
	Collections      []string `json:"collections"`
}

type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *BookingClient) HTTP() *HttpClient {
	return c.httpClient
}

// Create submits a booking. idempotencyKey is optional.
func (c *BookingClient) Create(ctx context.Context, req *model.BookingRequest, idempotencyKey string) (*model.Booking, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Send(ctx, http.MethodPost, bookingsPath, req, header)
	if err != nil {
		return nil, err
	}
	return decodeResponse[*model.Booking](resp, "booking")
}

// List fetches bookings, filtered by status when it is not empty.
func (c *BookingClient) List(ctx context.Context, status string) ([]*model.Booking, error) {
	path := bookingsPath
	if status != "" {
		path += "?" + url.Values{"status": {status}}.Encode()
	}

	resp, err := c.httpClient.Send(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeResponse[[]*model.Booking](resp, "bookings")
}

func (c *BookingClient) Diagnostics(ctx context.Context) (*Diagnostics, error) {
	resp, err := c.httpClient.Send(ctx, http.MethodGet, "/test", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeResponse[*Diagnostics](resp, "diagnostics")
}
