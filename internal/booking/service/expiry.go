package service

import (
	"context"
	"errors"
	"fmt"

	bookingErrors "cinebook/internal/booking/errors"
	"cinebook/pkg/config"
	"cinebook/pkg/model"
)

type ExpiryService interface {
	// Expire releases the locks of a booking whose payment window closed and
	// deletes the booking if it is still unpaid. Running it again is a no-op.
	Expire(ctx context.Context, task *model.ExpiryTask) error
}

type expiryService struct {
	deps  Deps
	seats seatLedger
	cfg   *config.Config
}

func NewExpiryService(deps Deps, cfg *config.Config) ExpiryService {
	deps = deps.withDefaults()
	return &expiryService{
		deps:  deps,
		seats: seatLedger{shows: deps.Shows, log: cfg.Log},
		cfg:   cfg,
	}
}

func (s *expiryService) Expire(ctx context.Context, task *model.ExpiryTask) error {
	lock := model.Locked{BookingID: task.BookingID}

	booking, err := s.deps.Bookings.FindByID(ctx, task.BookingID)
	if err != nil {
		if errors.Is(err, bookingErrors.ErrBookingNotFound) || errors.Is(err, bookingErrors.ErrInvalidID) {
			// A previous run deleted the booking and may have died before
			// releasing every seat.
			return s.sweep(ctx, task.ShowID, task.SeatIDs, lock, "booking already gone")
		}
		return fmt.Errorf("failed to load booking %s: %w", task.BookingID, err)
	}

	if booking.IsPaid {
		s.cfg.Log.Debug("Expiry skipped, booking is paid", "booking_id", booking.ID)
		return nil
	}
	if booking.Status == model.BookingCancelled {
		return s.sweep(ctx, booking.ShowID, booking.SeatIDs(), lock, "booking cancelled")
	}

	// Deleting first decides the race with settlement: a booking that was
	// paid in the meantime no longer matches and keeps its seats.
	deleted, err := s.deps.Bookings.DeleteUnpaid(ctx, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to delete expired booking %s: %w", booking.ID, err)
	}
	if !deleted {
		current, err := s.deps.Bookings.FindByID(ctx, booking.ID)
		if err == nil && current.IsPaid {
			s.cfg.Log.Info("Expiry lost to settlement", "booking_id", booking.ID)
			return nil
		}
		if err != nil && !errors.Is(err, bookingErrors.ErrBookingNotFound) {
			return fmt.Errorf("failed to reload booking %s: %w", booking.ID, err)
		}
	}

	if err := s.sweep(ctx, booking.ShowID, booking.SeatIDs(), lock, "payment window closed"); err != nil {
		return err
	}

	if booking.PaymentSessionID != "" {
		if err := s.deps.Gateway.ExpireSession(ctx, booking.PaymentSessionID); err != nil {
			s.cfg.Log.Warn("Failed to expire payment session",
				"booking_id", booking.ID,
				"session_id", booking.PaymentSessionID,
				"error", err,
			)
		}
	}
	return nil
}

func (s *expiryService) sweep(ctx context.Context, showID string, seatIDs []string, lock model.Locked, reason string) error {
	if showID == "" || len(seatIDs) == 0 {
		return nil
	}

	released, err := s.seats.sweep(ctx, showID, seatIDs, lock)
	if len(released) > 0 {
		s.cfg.Log.Info("Seats released",
			"booking_id", lock.BookingID,
			"show_id", showID,
			"seats", released,
			"reason", reason,
		)
		publishSeatsChanged(ctx, s.deps, s.cfg, showID, released, SeatStateFree)
	}
	if err != nil {
		return fmt.Errorf("failed to release seats of booking %s: %w", lock.BookingID, err)
	}
	return nil
}
