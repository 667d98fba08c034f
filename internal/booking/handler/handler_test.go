package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cinebook/internal/booking/seatmap"
	"cinebook/internal/booking/service"
	"cinebook/internal/booking/validator"
	apperrors "cinebook/pkg/errors"
	"cinebook/pkg/logger"
	"cinebook/pkg/middleware"
	"cinebook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const validShowID = "65f0a1b2c3d4e5f601234567"

type mockReservationService struct {
	createFunc func(ctx context.Context, identity model.Identity, req service.CreateBookingRequest) (*service.BookingResult, error)
}

func (m *mockReservationService) CheckAvailability(ctx context.Context, showID string, seats []string) (*seatmap.Availability, error) {
	return &seatmap.Availability{Available: true}, nil
}

func (m *mockReservationService) CreateBooking(ctx context.Context, identity model.Identity, req service.CreateBookingRequest) (*service.BookingResult, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, identity, req)
	}
	return &service.BookingResult{}, nil
}

type mockQueryService struct {
	snapshotFunc func(ctx context.Context, showID string) (*service.SeatSnapshot, error)
	listFunc     func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
	getFunc      func(ctx context.Context, identity model.Identity, id string) (*model.Booking, error)
}

func (m *mockQueryService) SeatSnapshot(ctx context.Context, showID string) (*service.SeatSnapshot, error) {
	if m.snapshotFunc != nil {
		return m.snapshotFunc(ctx, showID)
	}
	return &service.SeatSnapshot{ShowID: showID}, nil
}

func (m *mockQueryService) ListMyBookings(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockQueryService) GetBooking(ctx context.Context, identity model.Identity, id string) (*model.Booking, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, identity, id)
	}
	return &model.Booking{ID: id}, nil
}

type mockCancellationService struct {
	cancelFunc func(ctx context.Context, identity model.Identity, id string) (*model.Booking, error)
}

func (m *mockCancellationService) CancelBooking(ctx context.Context, identity model.Identity, id string) (*model.Booking, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, identity, id)
	}
	return &model.Booking{ID: id, Status: model.BookingCancelled}, nil
}

type mockSettlementService struct {
	webhookFunc func(ctx context.Context, payload []byte, signature string) error
	confirmFunc func(ctx context.Context, identity model.Identity, sessionID string) (*model.Booking, error)
}

func (m *mockSettlementService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if m.webhookFunc != nil {
		return m.webhookFunc(ctx, payload, signature)
	}
	return nil
}

func (m *mockSettlementService) Settle(context.Context, model.SettlementEvent) error {
	return nil
}

func (m *mockSettlementService) ConfirmSession(ctx context.Context, identity model.Identity, sessionID string) (*model.Booking, error) {
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, identity, sessionID)
	}
	return &model.Booking{Status: model.BookingConfirmed}, nil
}

type testServer struct {
	reservation  *mockReservationService
	query        *mockQueryService
	cancellation *mockCancellationService
	settlement   *mockSettlementService
	router       *httprouter.Router
}

func newTestServer() *testServer {
	log := logger.Discard()
	v := validator.NewBookingValidator(log)
	s := &testServer{
		reservation:  &mockReservationService{},
		query:        &mockQueryService{},
		cancellation: &mockCancellationService{},
		settlement:   &mockSettlementService{},
		router:       httprouter.New(),
	}
	NewBookingHandler(s.reservation, s.query, s.cancellation, v, log).RegisterRoutes(s.router)
	payments := NewPaymentHandler(s.settlement, v, log)
	payments.RegisterRoutes(s.router)
	payments.RegisterWebhook(s.router)
	return s
}

func (s *testServer) do(method, path, body string, identity *model.Identity) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if identity != nil {
		r = r.WithContext(middleware.WithIdentity(r.Context(), *identity))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func alice() *model.Identity {
	return &model.Identity{UserID: "alice", Role: model.RoleUser, Email: "alice@example.com"}
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		identity   *model.Identity
		serviceErr error
		wantStatus int
		wantCalled bool
	}{
		{
			name:       "created",
			body:       `{"showId":"` + validShowID + `","selectedSeats":["A1","a2"]}`,
			identity:   alice(),
			wantStatus: http.StatusCreated,
			wantCalled: true,
		},
		{
			name:       "anonymous",
			body:       `{"showId":"` + validShowID + `","selectedSeats":["A1"]}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed json",
			body:       `{"showId":`,
			identity:   alice(),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no seats",
			body:       `{"showId":"` + validShowID + `","selectedSeats":[]}`,
			identity:   alice(),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "bad seat id",
			body:       `{"showId":"` + validShowID + `","selectedSeats":["Z"]}`,
			identity:   alice(),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "seat taken",
			body:       `{"showId":"` + validShowID + `","selectedSeats":["A1"]}`,
			identity:   alice(),
			serviceErr: apperrors.Conflict("Seats A1 are no longer available"),
			wantStatus: http.StatusConflict,
			wantCalled: true,
		},
		{
			name:       "gateway down",
			body:       `{"showId":"` + validShowID + `","selectedSeats":["A1"]}`,
			identity:   alice(),
			serviceErr: apperrors.Gateway("Failed to create payment session", errors.New("stripe: 503")),
			wantStatus: http.StatusBadGateway,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			called := false
			s.reservation.createFunc = func(_ context.Context, identity model.Identity, req service.CreateBookingRequest) (*service.BookingResult, error) {
				called = true
				if identity.UserID != "alice" {
					t.Errorf("identity = %+v", identity)
				}
				if req.ShowID != validShowID {
					t.Errorf("show id = %q", req.ShowID)
				}
				if tt.serviceErr != nil {
					return nil, tt.serviceErr
				}
				return &service.BookingResult{
					Booking:    &model.Booking{ID: "b1", Status: model.BookingPending},
					PaymentURL: "https://checkout.example.com/b1",
				}, nil
			}

			w := s.do(http.MethodPost, "/booking/create", tt.body, tt.identity)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if called != tt.wantCalled {
				t.Errorf("service called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}

func TestCreate_GatewayErrorDoesNotLeakCause(t *testing.T) {
	s := newTestServer()
	s.reservation.createFunc = func(context.Context, model.Identity, service.CreateBookingRequest) (*service.BookingResult, error) {
		return nil, apperrors.Gateway("Failed to create payment session", errors.New("sk_live_secret rejected"))
	}

	w := s.do(http.MethodPost, "/booking/create", `{"showId":"`+validShowID+`","selectedSeats":["A1"]}`, alice())

	if strings.Contains(w.Body.String(), "sk_live_secret") {
		t.Errorf("response leaks cause: %s", w.Body.String())
	}
}

func TestCreate_ReturnsPaymentURL(t *testing.T) {
	s := newTestServer()
	s.reservation.createFunc = func(context.Context, model.Identity, service.CreateBookingRequest) (*service.BookingResult, error) {
		return &service.BookingResult{Booking: &model.Booking{ID: "b1"}, PaymentURL: "https://checkout.example.com/b1"}, nil
	}

	w := s.do(http.MethodPost, "/booking/create", `{"showId":"`+validShowID+`","selectedSeats":["A1"]}`, alice())

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			PaymentURL string `json:"payment_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Data.PaymentURL != "https://checkout.example.com/b1" {
		t.Errorf("unexpected response: %s", w.Body.String())
	}
}

func TestSeats(t *testing.T) {
	s := newTestServer()
	var got string
	s.query.snapshotFunc = func(_ context.Context, showID string) (*service.SeatSnapshot, error) {
		got = showID
		if showID == "missing" {
			return nil, apperrors.NotFoundWithID("Show", showID)
		}
		return &service.SeatSnapshot{ShowID: showID}, nil
	}

	w := s.do(http.MethodGet, "/booking/seats/"+validShowID, "", nil)
	if w.Code != http.StatusOK || got != validShowID {
		t.Errorf("status = %d, show = %q", w.Code, got)
	}

	w = s.do(http.MethodGet, "/booking/seats/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListMine_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantOffset int64
	}{
		{"defaults", "", http.StatusOK, 10, 0},
		{"explicit", "?limit=5&offset=10", http.StatusOK, 5, 10},
		{"invalid limit", "?limit=abc", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			var gotLimit int
			var gotOffset int64
			var gotUser string
			s.query.listFunc = func(_ context.Context, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
				gotUser, gotLimit, gotOffset = userID, limit, offset
				return []*model.Booking{}, 0, nil
			}

			w := s.do(http.MethodGet, "/booking/my"+tt.query, "", alice())

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if gotUser != "alice" || gotLimit != tt.wantLimit || gotOffset != tt.wantOffset {
				t.Errorf("got (%s, %d, %d)", gotUser, gotLimit, gotOffset)
			}
		})
	}
}

func TestGetByID_NotFound(t *testing.T) {
	s := newTestServer()
	s.query.getFunc = func(_ context.Context, _ model.Identity, id string) (*model.Booking, error) {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}

	w := s.do(http.MethodGet, "/booking/id/b1", "", alice())

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCancel(t *testing.T) {
	s := newTestServer()
	var gotID string
	s.cancellation.cancelFunc = func(_ context.Context, _ model.Identity, id string) (*model.Booking, error) {
		gotID = id
		return &model.Booking{ID: id, Status: model.BookingCancelled}, nil
	}

	w := s.do(http.MethodPost, "/booking/id/b1/cancel", "", alice())

	if w.Code != http.StatusOK || gotID != "b1" {
		t.Errorf("status = %d, id = %q", w.Code, gotID)
	}
	if !strings.Contains(w.Body.String(), `"status":"cancelled"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestConfirm(t *testing.T) {
	s := newTestServer()
	var gotSession string
	s.settlement.confirmFunc = func(_ context.Context, _ model.Identity, sessionID string) (*model.Booking, error) {
		gotSession = sessionID
		return &model.Booking{ID: "b1", Status: model.BookingConfirmed, IsPaid: true}, nil
	}

	w := s.do(http.MethodPost, "/payment/confirm", `{"sessionId":"cs_test_1"}`, alice())
	if w.Code != http.StatusOK || gotSession != "cs_test_1" {
		t.Errorf("status = %d, session = %q", w.Code, gotSession)
	}

	w = s.do(http.MethodPost, "/payment/confirm", `{}`, alice())
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestWebhook(t *testing.T) {
	log := logger.Discard()

	tests := []struct {
		name       string
		signature  string
		serviceErr error
		wantStatus int
	}{
		{"queued", "t=1,v1=abc", nil, http.StatusOK},
		{"missing signature", "", nil, http.StatusBadRequest},
		{"bad signature", "t=1,v1=bad", apperrors.InvalidInput("Invalid webhook signature"), http.StatusBadRequest},
		{"queue unavailable", "t=1,v1=abc", apperrors.Internal("Failed to queue settlement", errors.New("kafka down")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settlement := &mockSettlementService{}
			var gotPayload, gotSignature string
			settlement.webhookFunc = func(_ context.Context, payload []byte, signature string) error {
				gotPayload, gotSignature = string(payload), signature
				return tt.serviceErr
			}

			router := httprouter.New()
			NewPaymentHandler(settlement, validator.NewBookingValidator(log), log).RegisterWebhook(router)
			h := middleware.WebhookRawBody(StripeSignatureHeader, 1<<16, log)(router)

			body := `{"id":"evt_1","type":"checkout.session.completed"}`
			r := httptest.NewRequest(http.MethodPost, "/payment/webhook", strings.NewReader(body))
			if tt.signature != "" {
				r.Header.Set(StripeSignatureHeader, tt.signature)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.signature != "" && (gotPayload != body || gotSignature != tt.signature) {
				t.Errorf("service got payload %q signature %q", gotPayload, gotSignature)
			}
		})
	}
}

func TestReady(t *testing.T) {
	log := logger.Discard()
	router := httprouter.New()
	NewHealthHandler(map[string]Check{
		"mongo": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}, log).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"redis":"error"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}
