package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bookingErrors "cinebook/internal/booking/errors"
	"cinebook/internal/booking/repository"
	"cinebook/internal/booking/seatmap"
	"cinebook/internal/payment"
	"cinebook/pkg/config"
	apperrors "cinebook/pkg/errors"
	"cinebook/pkg/model"
)

type CreateBookingRequest struct {
	ShowID string
	Seats  []string
}

type BookingResult struct {
	Booking    *model.Booking `json:"booking"`
	PaymentURL string         `json:"payment_url"`
}

type ReservationService interface {
	CheckAvailability(ctx context.Context, showID string, seats []string) (*seatmap.Availability, error)
	CreateBooking(ctx context.Context, identity model.Identity, req CreateBookingRequest) (*BookingResult, error)
}

type reservationService struct {
	deps  Deps
	seats seatLedger
	cfg   *config.Config
}

func NewReservationService(deps Deps, cfg *config.Config) ReservationService {
	deps = deps.withDefaults()
	return &reservationService{
		deps:  deps,
		seats: seatLedger{shows: deps.Shows, log: cfg.Log},
		cfg:   cfg,
	}
}

func (s *reservationService) CheckAvailability(ctx context.Context, showID string, seats []string) (*seatmap.Availability, error) {
	ids, err := s.normalize(seats)
	if err != nil {
		return nil, err
	}

	show, err := s.loadShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	availability := seatmap.CheckAvailability(show, ids)
	return &availability, nil
}

func (s *reservationService) CreateBooking(ctx context.Context, identity model.Identity, req CreateBookingRequest) (*BookingResult, error) {
	if identity.UserID == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	seatIDs, err := s.normalize(req.Seats)
	if err != nil {
		s.cfg.Log.Rejection(ctx, "Booking rejected", "show_id", req.ShowID, "user_id", identity.UserID, "reason", err.Error())
		return nil, err
	}

	show, err := s.loadShow(ctx, req.ShowID)
	if err != nil {
		return nil, err
	}

	now := s.deps.Clock.Now()
	if !show.IsActive {
		return nil, apperrors.Validation("Show is not available for booking", nil)
	}
	if !now.Before(show.StartTime) {
		return nil, apperrors.Validation("Show has already started", nil)
	}

	screen := s.loadScreen(ctx, show)

	priced, err := seatmap.PriceSeats(show, screen, seatIDs)
	if err != nil {
		if pe, ok := seatmap.IsPricingError(err); ok {
			s.cfg.Log.Rejection(ctx, "Booking rejected, unpriced seats", "show_id", show.ID, "seats", pe.Seats)
			return nil, apperrors.Pricing(
				fmt.Sprintf("Invalid seats: %s", strings.Join(pe.Seats, ", ")),
				map[string]any{"invalid_seats": pe.Seats},
			)
		}
		return nil, apperrors.Internal("Failed to price seats", err)
	}

	if availability := seatmap.CheckAvailability(show, seatIDs); !availability.Available {
		s.cfg.Log.Rejection(ctx, "Booking rejected, seats taken", "show_id", show.ID, "seats", availability.Conflicting)
		return nil, seatsUnavailable(availability.Conflicting)
	}

	total, totalMinor, err := seatmap.Total(priced)
	if err != nil {
		return nil, apperrors.Internal("Invalid booking total", err)
	}

	booking := &model.Booking{
		ID:          repository.NewBookingID(),
		UserID:      identity.UserID,
		UserEmail:   identity.Email,
		ShowID:      show.ID,
		Seats:       priced,
		TotalAmount: total,
		Currency:    s.cfg.PaymentCurrency,
		Status:      model.BookingPending,
		IsPaid:      false,
		CreatedAt:   now,
	}
	if err := s.deps.Bookings.Create(ctx, booking); err != nil {
		s.cfg.Log.Error("Failed to create booking", "show_id", show.ID, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	// The expiry task exists before any seat is locked so a crash at any later
	// point still ends with the locks swept.
	task := &model.ExpiryTask{
		ID:        booking.ID,
		BookingID: booking.ID,
		ShowID:    show.ID,
		SeatIDs:   booking.SeatIDs(),
		RunAt:     booking.CreatedAt.Add(s.cfg.HoldTTL),
		Status:    model.TaskPending,
		CreatedAt: now,
	}
	if err := s.deps.Tasks.Schedule(ctx, task); err != nil {
		s.discard(ctx, booking, false)
		s.cfg.Log.Error("Failed to schedule booking expiry", "booking_id", booking.ID, "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	conflict, err := s.seats.lockAll(ctx, show, booking.ID, priced)
	if err != nil {
		s.discard(ctx, booking, false)
		if errors.Is(err, bookingErrors.ErrNoTier) {
			return nil, apperrors.Pricing("Show has no seat tiers configured", nil)
		}
		s.cfg.Log.Error("Failed to lock seats", "booking_id", booking.ID, "show_id", show.ID, "error", err)
		return nil, apperrors.Internal("Failed to reserve seats", err)
	}
	if conflict != "" {
		s.discard(ctx, booking, false)
		s.cfg.Log.Rejection(ctx, "Lost seat race", "show_id", show.ID, "seat", conflict, "booking_id", booking.ID)
		return nil, seatsUnavailable([]string{conflict})
	}

	s.cfg.Log.Info("Seats locked",
		"booking_id", booking.ID,
		"show_id", show.ID,
		"seats", booking.SeatIDs(),
	)

	items := lineItems(priced)
	if sum := lineItemTotal(items); sum != totalMinor {
		s.discard(ctx, booking, true)
		s.cfg.Log.Error("Line items do not add up to booking total",
			"booking_id", booking.ID,
			"line_items_total", sum,
			"booking_total", totalMinor,
		)
		return nil, apperrors.Internal("Price verification failed", fmt.Errorf("line items %d != total %d", sum, totalMinor))
	}

	session, err := s.deps.Gateway.CreateSession(ctx, payment.SessionRequest{
		LineItems:     items,
		Currency:      s.cfg.PaymentCurrency,
		SuccessURL:    s.cfg.PaymentSuccessURL,
		CancelURL:     s.cfg.PaymentCancelURL,
		CustomerEmail: identity.Email,
		Metadata: map[string]string{
			payment.MetadataBookingID: booking.ID,
			payment.MetadataUserID:    identity.UserID,
			payment.MetadataShowID:    show.ID,
		},
	})
	if err != nil {
		s.discard(ctx, booking, true)
		s.cfg.Log.Error("Failed to create payment session",
			"booking_id", booking.ID,
			"show_id", show.ID,
			"seats", booking.SeatIDs(),
			"error", err,
		)
		return nil, apperrors.Gateway("Failed to create payment session", err)
	}

	booking.PaymentSessionID = session.ID
	booking.PaymentLink = session.URL
	if err := s.deps.Bookings.SetPaymentSession(ctx, booking.ID, session.ID, session.URL); err != nil {
		// Settlement still finds the booking through the session metadata.
		s.cfg.Log.Error("Failed to store payment session on booking",
			"booking_id", booking.ID,
			"session_id", session.ID,
			"error", err,
		)
	}

	s.seatsChanged(ctx, show.ID, booking.SeatIDs(), SeatStateLocked)

	s.cfg.Log.Info("Booking created",
		"booking_id", booking.ID,
		"user_id", booking.UserID,
		"show_id", show.ID,
		"total_amount", booking.TotalAmount,
		"expires_at", task.RunAt,
	)

	return &BookingResult{Booking: booking, PaymentURL: session.URL}, nil
}

func (s *reservationService) normalize(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, apperrors.Validation("No seats selected", nil)
	}

	seats, invalid := seatmap.NormalizeSeatIDs(raw)
	if len(seats)+len(invalid) > s.cfg.MaxSeatsPerBooking {
		return nil, apperrors.Validation(
			fmt.Sprintf("A maximum of %d seats can be booked at once", s.cfg.MaxSeatsPerBooking),
			map[string]any{"requested": len(seats) + len(invalid), "max": s.cfg.MaxSeatsPerBooking},
		)
	}
	if len(invalid) > 0 {
		return nil, apperrors.Validation(
			fmt.Sprintf("Invalid seat identifiers: %s", strings.Join(invalid, ", ")),
			map[string]any{"invalid_seats": invalid},
		)
	}
	if len(seats) == 0 {
		return nil, apperrors.Validation("No seats selected", nil)
	}
	return seats, nil
}

func (s *reservationService) loadShow(ctx context.Context, showID string) (*model.Show, error) {
	if showID == "" {
		return nil, apperrors.Validation("Show ID is required", nil)
	}
	show, err := s.deps.Shows.FindShow(ctx, showID)
	if err != nil {
		return nil, translateShowError(err, showID)
	}
	return show, nil
}

// loadScreen returns nil when the show has no usable screen; pricing then
// relies on the show's own tiers.
func (s *reservationService) loadScreen(ctx context.Context, show *model.Show) *model.Screen {
	if show.ScreenID == "" {
		return nil
	}
	screen, err := s.deps.Shows.FindScreen(ctx, show.ScreenID)
	if err != nil {
		if !errors.Is(err, bookingErrors.ErrScreenNotFound) && !errors.Is(err, bookingErrors.ErrInvalidID) {
			s.cfg.Log.Warn("Failed to load screen, pricing from show tiers only",
				"show_id", show.ID,
				"screen_id", show.ScreenID,
				"error", err,
			)
		}
		return nil
	}
	return screen
}

// discard undoes a booking attempt that cannot complete. It runs detached
// from the request context so a client disconnect cannot leave a half-made
// booking behind.
func (s *reservationService) discard(ctx context.Context, booking *model.Booking, release bool) {
	ctx = context.WithoutCancel(ctx)

	if release {
		if _, err := s.seats.sweep(ctx, booking.ShowID, booking.SeatIDs(), model.Locked{BookingID: booking.ID}); err != nil {
			s.cfg.Log.Error("Failed to release seats of abandoned booking", "booking_id", booking.ID, "error", err)
		}
	}
	if err := s.deps.Bookings.Delete(ctx, booking.ID); err != nil && !errors.Is(err, bookingErrors.ErrBookingNotFound) {
		s.cfg.Log.Error("Failed to delete abandoned booking", "booking_id", booking.ID, "error", err)
	}
	if err := s.deps.Tasks.Complete(ctx, booking.ID); err != nil {
		s.cfg.Log.Warn("Failed to complete expiry task of abandoned booking", "booking_id", booking.ID, "error", err)
	}
}

func (s *reservationService) seatsChanged(ctx context.Context, showID string, seats []string, state string) {
	publishSeatsChanged(ctx, s.deps, s.cfg, showID, seats, state)
}

func publishSeatsChanged(ctx context.Context, deps Deps, cfg *config.Config, showID string, seats []string, state string) {
	if len(seats) == 0 {
		return
	}
	if err := deps.Cache.Invalidate(ctx, showID); err != nil {
		cfg.Log.Warn("Failed to invalidate seat cache", "show_id", showID, "error", err)
	}
	if err := deps.Events.SeatsChanged(ctx, showID, seats, state); err != nil {
		cfg.Log.Warn("Failed to publish seat change", "show_id", showID, "error", err)
	}
}

func seatsUnavailable(seats []string) error {
	return apperrors.Conflict(fmt.Sprintf("Seats %s are no longer available", strings.Join(seats, ", "))).
		WithDetails(map[string]any{"conflicting_seats": seats})
}

func translateShowError(err error, showID string) error {
	switch {
	case errors.Is(err, bookingErrors.ErrShowNotFound):
		return apperrors.NotFoundWithID("Show", showID)
	case errors.Is(err, bookingErrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid show ID format")
	default:
		return apperrors.Internal("Failed to load show", err)
	}
}

func lineItems(seats []model.BookedSeat) []payment.LineItem {
	items := make([]payment.LineItem, 0, len(seats))
	for _, s := range seats {
		items = append(items, payment.LineItem{
			Name:       fmt.Sprintf("Seat %s (%s)", s.SeatID, s.Tier),
			UnitAmount: seatmap.ToMinorUnits(s.Price),
			Quantity:   1,
		})
	}
	return items
}

func lineItemTotal(items []payment.LineItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.UnitAmount * it.Quantity
	}
	return sum
}
