package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"cinebook/pkg/model"
)

// APIError is a non-2xx answer from the booking API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("booking api: %d %s", e.StatusCode, e.Message)
}

type BookingResult struct {
	Booking    *model.Booking `json:"booking"`
	PaymentURL string         `json:"payment_url"`
}

type Page struct {
	Count  int   `json:"count"`
	Limit  int   `json:"limit"`
	Offset int64 `json:"offset"`
}

// BookingClient talks to the booking API on behalf of one authenticated user.
type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL, token string) *BookingClient {
	c := NewHttpClient(baseURL)
	c.Token = token
	return &BookingClient{httpClient: c}
}

func (c *BookingClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *BookingClient) Create(ctx context.Context, showID string, seats []string, idempotencyKey string) (*BookingResult, error) {
	body := map[string]any{"showId": showID, "selectedSeats": seats}
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	resp, err := c.httpClient.POSTWithHeaders(ctx, "/booking/create", body, headers)
	if err != nil {
		return nil, err
	}
	var result BookingResult
	if err := decodeData(resp, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Seats returns the raw seat snapshot document.
func (c *BookingClient) Seats(ctx context.Context, showID string) (json.RawMessage, error) {
	resp, err := c.httpClient.GET(ctx, "/booking/seats/"+url.PathEscape(showID))
	if err != nil {
		return nil, err
	}
	var snapshot json.RawMessage
	if err := decodeData(resp, http.StatusOK, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (c *BookingClient) Mine(ctx context.Context, limit int, offset int64) ([]*model.Booking, *Page, error) {
	resp, err := c.httpClient.GET(ctx, fmt.Sprintf("/booking/my?limit=%d&offset=%d", limit, offset))
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, &APIError{StatusCode: resp.StatusCode, Message: GetErrorMessage(resp)}
	}

	var page struct {
		Data []*model.Booking `json:"data"`
		Page
	}
	if err := resp.DecodeJSON(&page); err != nil {
		return nil, nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return page.Data, &page.Page, nil
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, "/booking/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := decodeData(resp, http.StatusOK, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.POST(ctx, "/booking/id/"+url.PathEscape(id)+"/cancel", nil)
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := decodeData(resp, http.StatusOK, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) ConfirmPayment(ctx context.Context, sessionID string) (*model.Booking, error) {
	resp, err := c.httpClient.POST(ctx, "/payment/confirm", map[string]string{"sessionId": sessionID})
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := decodeData(resp, http.StatusOK, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func decodeData(resp *Response, wantStatus int, dst any) error {
	if resp.StatusCode != wantStatus {
		return &APIError{StatusCode: resp.StatusCode, Message: GetErrorMessage(resp)}
	}
	envelope := struct {
		Data any `json:"data"`
	}{Data: dst}
	if err := resp.DecodeJSON(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
