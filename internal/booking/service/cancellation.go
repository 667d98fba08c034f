package service

import (
	"context"
	"errors"
	"fmt"

	"cinebook/pkg/config"
	apperrors "cinebook/pkg/errors"
	"cinebook/pkg/model"
)

type CancellationService interface {
	CancelBooking(ctx context.Context, identity model.Identity, bookingID string) (*model.Booking, error)
}

type cancellationService struct {
	deps  Deps
	seats seatLedger
	cfg   *config.Config
}

func NewCancellationService(deps Deps, cfg *config.Config) CancellationService {
	deps = deps.withDefaults()
	return &cancellationService{
		deps:  deps,
		seats: seatLedger{shows: deps.Shows, log: cfg.Log},
		cfg:   cfg,
	}
}

func (s *cancellationService) CancelBooking(ctx context.Context, identity model.Identity, bookingID string) (*model.Booking, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.deps.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, translateBookingError(err, bookingID)
	}
	if booking.UserID != identity.UserID {
		s.cfg.Log.Rejection(ctx, "Cancellation by non-owner", "booking_id", bookingID, "user_id", identity.UserID)
		return nil, apperrors.Forbidden("You can only cancel your own bookings")
	}

	switch booking.Status {
	case model.BookingPending, model.BookingConfirmed:
	case model.BookingCancelled:
		return nil, apperrors.Validation("Booking is already cancelled", nil)
	default:
		return nil, apperrors.Validation(fmt.Sprintf("Booking in status %s cannot be cancelled", booking.Status), nil)
	}

	show, err := s.deps.Shows.FindShow(ctx, booking.ShowID)
	if err != nil {
		return nil, translateShowError(err, booking.ShowID)
	}

	now := s.deps.Clock.Now()
	if now.Add(s.cfg.CancellationCutoff).After(show.StartTime) {
		return nil, apperrors.Validation(
			fmt.Sprintf("Bookings can only be cancelled at least %s before showtime", s.cfg.CancellationCutoff),
			map[string]any{"show_start": show.StartTime},
		)
	}

	var owner model.SeatState = model.Locked{BookingID: booking.ID}
	if booking.Status == model.BookingConfirmed {
		owner = model.Occupied{UserID: booking.UserID}
	}

	var released []string
	err = s.deps.Tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.deps.Bookings.MarkCancelled(ctx, booking.ID, booking.Status, now)
		if err != nil {
			return err
		}
		if !ok {
			return errStatusChanged
		}
		released, err = s.seats.sweep(ctx, booking.ShowID, booking.SeatIDs(), owner)
		return err
	})
	if err != nil {
		if errors.Is(err, errStatusChanged) {
			return nil, apperrors.Conflict("Booking changed while cancelling, please retry")
		}
		s.cfg.Log.Error("Failed to cancel booking", "booking_id", booking.ID, "error", err)
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}

	if err := s.deps.Tasks.Complete(ctx, booking.ID); err != nil {
		s.cfg.Log.Warn("Failed to complete expiry task", "booking_id", booking.ID, "error", err)
	}
	if booking.Status == model.BookingPending && booking.PaymentSessionID != "" {
		if err := s.deps.Gateway.ExpireSession(ctx, booking.PaymentSessionID); err != nil {
			s.cfg.Log.Warn("Failed to expire payment session", "booking_id", booking.ID, "error", err)
		}
	}

	s.cfg.Log.Info("Booking cancelled",
		"booking_id", booking.ID,
		"user_id", booking.UserID,
		"previous_status", booking.Status,
		"seats_released", released,
	)
	publishSeatsChanged(ctx, s.deps, s.cfg, booking.ShowID, released, SeatStateFree)

	wasPaid := booking.IsPaid
	booking.Status = model.BookingCancelled
	booking.CancelledAt = &now
	booking.PaymentLink = ""

	if wasPaid {
		n := model.BookingNotification{
			BookingID:   booking.ID,
			UserID:      booking.UserID,
			Email:       booking.UserEmail,
			ShowID:      booking.ShowID,
			ShowStart:   show.StartTime,
			Seats:       booking.Seats,
			TotalAmount: booking.TotalAmount,
			Currency:    booking.Currency,
			OccurredAt:  now,
		}
		if err := s.deps.Notifier.BookingCancelled(ctx, n); err != nil {
			s.cfg.Log.Warn("Failed to send cancellation notice", "booking_id", booking.ID, "error", err)
		}
	}
	return booking, nil
}

var errStatusChanged = errors.New("booking status changed")
