package service

import (
	"context"
	"errors"
	"fmt"

	bookingErrors "cinebook/internal/booking/errors"
	"cinebook/internal/booking/seatmap"
	"cinebook/internal/payment"
	"cinebook/pkg/config"
	apperrors "cinebook/pkg/errors"
	"cinebook/pkg/model"

	"github.com/google/uuid"
)

// ErrUnresolvableSettlement marks a settlement event that names no booking,
// directly or through its payment session. Retrying cannot fix it.
var ErrUnresolvableSettlement = errors.New("settlement event does not identify a booking")

type SettlementService interface {
	// HandleWebhook verifies a provider callback and queues it for settlement.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	// Settle confirms a booking once; repeated events are no-ops.
	Settle(ctx context.Context, event model.SettlementEvent) error
	// ConfirmSession settles a booking from the client's return redirect.
	ConfirmSession(ctx context.Context, identity model.Identity, sessionID string) (*model.Booking, error)
}

type settlementService struct {
	deps  Deps
	queue SettlementQueue
	seats seatLedger
	cfg   *config.Config
}

func NewSettlementService(deps Deps, queue SettlementQueue, cfg *config.Config) SettlementService {
	deps = deps.withDefaults()
	return &settlementService{
		deps:  deps,
		queue: queue,
		seats: seatLedger{shows: deps.Shows, log: cfg.Log},
		cfg:   cfg,
	}
}

func (s *settlementService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.deps.Gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.cfg.Log.Warn("Rejected webhook with invalid signature", "error", err)
			return apperrors.InvalidInput("Invalid webhook signature")
		}
		s.cfg.Log.Warn("Rejected undecodable webhook", "error", err)
		return apperrors.InvalidInput("Invalid webhook payload")
	}

	if !ev.Settles() {
		s.cfg.Log.Debug("Ignoring webhook event", "event_id", ev.ID, "type", ev.Type, "payment_status", ev.PaymentStatus)
		return nil
	}

	event := model.SettlementEvent{
		EventID:         ev.ID,
		Type:            ev.Type,
		BookingID:       ev.BookingID,
		SessionID:       ev.SessionID,
		PaymentIntentID: ev.PaymentIntentID,
		Source:          model.SettlementSourceWebhook,
		ReceivedAt:      s.deps.Clock.Now(),
	}
	if err := s.queue.Enqueue(ctx, event); err != nil {
		s.cfg.Log.Error("Failed to enqueue settlement event",
			"event_id", ev.ID,
			"booking_id", ev.BookingID,
			"session_id", ev.SessionID,
			"error", err,
		)
		return apperrors.Internal("Failed to accept webhook", err)
	}

	s.cfg.Log.Info("Settlement event queued", "event_id", ev.ID, "type", ev.Type, "booking_id", ev.BookingID)
	return nil
}

func (s *settlementService) ConfirmSession(ctx context.Context, identity model.Identity, sessionID string) (*model.Booking, error) {
	if sessionID == "" {
		return nil, apperrors.Validation("Session ID is required", nil)
	}

	session, err := s.deps.Gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrSessionNotFound) {
			return nil, apperrors.NotFoundWithID("Payment session", sessionID)
		}
		s.cfg.Log.Error("Failed to retrieve payment session", "session_id", sessionID, "error", err)
		return nil, apperrors.Gateway("Failed to verify payment", err)
	}
	if session.PaymentStatus != payment.PaymentStatusPaid {
		return nil, apperrors.Validation("Payment has not been completed", map[string]any{"payment_status": session.PaymentStatus})
	}

	bookingID := session.BookingID()
	if bookingID == "" {
		s.cfg.Log.Error("Paid session carries no booking id", "session_id", sessionID)
		return nil, apperrors.NotFound("Booking")
	}

	booking, err := s.deps.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, translateBookingError(err, bookingID)
	}
	if booking.UserID != identity.UserID && !identity.IsAdmin() {
		return nil, apperrors.Forbidden("This booking belongs to another user")
	}

	err = s.Settle(ctx, model.SettlementEvent{
		EventID:         uuid.NewString(),
		Type:            payment.EventCheckoutCompleted,
		BookingID:       bookingID,
		SessionID:       sessionID,
		PaymentIntentID: session.PaymentIntentID,
		Source:          model.SettlementSourceConfirm,
		ReceivedAt:      s.deps.Clock.Now(),
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to confirm booking", err)
	}

	booking, err = s.deps.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, translateBookingError(err, bookingID)
	}
	if !booking.IsPaid {
		return nil, apperrors.Conflict("Booking can no longer be confirmed")
	}
	return booking, nil
}

func (s *settlementService) Settle(ctx context.Context, event model.SettlementEvent) error {
	bookingID, err := s.resolveBookingID(ctx, event)
	if err != nil {
		return err
	}

	booking, err := s.deps.Bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingErrors.ErrBookingNotFound) || errors.Is(err, bookingErrors.ErrInvalidID) {
			s.orphanPayment(ctx, event, bookingID, "booking no longer exists")
			return nil
		}
		return fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}
	if booking.Status == model.BookingCancelled {
		s.orphanPayment(ctx, event, bookingID, "booking was cancelled")
		return nil
	}

	var transitioned bool
	var lost string
	err = s.deps.Tx.ExecuteTransaction(ctx, func(ctx context.Context) error {
		transitioned, lost = false, ""
		if !booking.IsPaid {
			ok, err := s.deps.Bookings.MarkPaid(ctx, booking.ID, event.PaymentIntentID, s.deps.Clock.Now())
			if err != nil {
				return err
			}
			if !ok {
				lost, err = s.whyNotPaid(ctx, booking.ID)
				if err != nil || lost != "" {
					return err
				}
			}
			transitioned = ok
		}
		return s.occupySeats(ctx, booking)
	})
	if err != nil {
		s.cfg.Log.Error("Settlement failed", "booking_id", booking.ID, "event_id", event.EventID, "error", err)
		return fmt.Errorf("failed to settle booking %s: %w", booking.ID, err)
	}
	if lost != "" {
		s.orphanPayment(ctx, event, booking.ID, lost)
		return nil
	}

	if err := s.deps.Tasks.Complete(ctx, booking.ID); err != nil {
		s.cfg.Log.Warn("Failed to complete expiry task", "booking_id", booking.ID, "error", err)
	}

	if !transitioned {
		s.cfg.Log.Info("Duplicate settlement ignored", "booking_id", booking.ID, "event_id", event.EventID, "source", event.Source)
		return nil
	}

	s.cfg.Log.Info("Booking settled",
		"booking_id", booking.ID,
		"user_id", booking.UserID,
		"show_id", booking.ShowID,
		"event_id", event.EventID,
		"source", event.Source,
	)

	publishSeatsChanged(ctx, s.deps, s.cfg, booking.ShowID, booking.SeatIDs(), SeatStateOccupied)
	s.notifyConfirmed(ctx, booking)
	return nil
}

// whyNotPaid explains a conditional MarkPaid that matched nothing. An empty
// reason means a concurrent settlement already confirmed the booking.
func (s *settlementService) whyNotPaid(ctx context.Context, bookingID string) (string, error) {
	current, err := s.deps.Bookings.FindByID(ctx, bookingID)
	switch {
	case errors.Is(err, bookingErrors.ErrBookingNotFound):
		return "booking expired during settlement", nil
	case err != nil:
		return "", fmt.Errorf("failed to reload booking %s: %w", bookingID, err)
	case current.IsPaid:
		return "", nil
	default:
		return fmt.Sprintf("booking is %s", current.Status), nil
	}
}

// occupySeats turns this booking's locks into permanent occupancy. It is safe
// to repeat: seats already converted no longer match the lock marker.
func (s *settlementService) occupySeats(ctx context.Context, booking *model.Booking) error {
	lock := model.Locked{BookingID: booking.ID}
	owner := model.Occupied{UserID: booking.UserID}

	converted, err := s.seats.transition(ctx, booking.ShowID, booking.SeatIDs(), lock, owner)
	if err != nil {
		return err
	}
	if len(converted) == len(booking.Seats) {
		return nil
	}

	show, err := s.deps.Shows.FindShow(ctx, booking.ShowID)
	if err != nil {
		if errors.Is(err, bookingErrors.ErrShowNotFound) {
			s.cfg.Log.Error("Paid booking references a missing show", "booking_id", booking.ID, "show_id", booking.ShowID)
			return nil
		}
		return err
	}

	for _, seat := range booking.Seats {
		state, _ := show.SeatState(seat.SeatID)
		switch st := state.(type) {
		case model.Occupied:
			if st.UserID != booking.UserID {
				s.reconciliation(booking, seat.SeatID, "seat sold to another user")
			}
		case model.Locked:
			if st.BookingID != booking.ID {
				s.reconciliation(booking, seat.SeatID, "seat locked by another booking")
			}
		case model.Free:
			tier, err := seatmap.LockTier(show, seat)
			if err != nil {
				s.reconciliation(booking, seat.SeatID, err.Error())
				continue
			}
			if err := s.reacquire(ctx, show, tier, seat.SeatID, owner); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *settlementService) reacquire(ctx context.Context, show *model.Show, tier int, seatID string, owner model.Occupied) error {
	ok, err := s.deps.Shows.SwapSeat(ctx, seatSwap(show, tier, seatID, model.Free{}, owner))
	if err != nil {
		return err
	}
	if !ok {
		s.cfg.Log.Error("Lost a released seat before settlement could reclaim it",
			"show_id", show.ID,
			"seat", seatID,
			"user_id", owner.UserID,
		)
		return nil
	}
	s.cfg.Log.Warn("Reclaimed released seat for paid booking", "show_id", show.ID, "seat", seatID, "user_id", owner.UserID)
	return nil
}

func (s *settlementService) resolveBookingID(ctx context.Context, event model.SettlementEvent) (string, error) {
	if event.BookingID != "" {
		return event.BookingID, nil
	}
	if event.SessionID != "" {
		session, err := s.deps.Gateway.RetrieveSession(ctx, event.SessionID)
		if err != nil {
			if errors.Is(err, payment.ErrSessionNotFound) {
				return "", fmt.Errorf("%w: session %s not found", ErrUnresolvableSettlement, event.SessionID)
			}
			return "", fmt.Errorf("failed to retrieve session %s: %w", event.SessionID, err)
		}
		if id := session.BookingID(); id != "" {
			return id, nil
		}
		booking, err := s.deps.Bookings.FindBySessionID(ctx, event.SessionID)
		if err == nil {
			return booking.ID, nil
		}
		if !errors.Is(err, bookingErrors.ErrBookingNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: event %s", ErrUnresolvableSettlement, event.EventID)
}

func (s *settlementService) notifyConfirmed(ctx context.Context, booking *model.Booking) {
	n := model.BookingNotification{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		Email:       booking.UserEmail,
		ShowID:      booking.ShowID,
		Seats:       booking.Seats,
		TotalAmount: booking.TotalAmount,
		Currency:    booking.Currency,
		OccurredAt:  s.deps.Clock.Now(),
	}
	if show, err := s.deps.Shows.FindShow(ctx, booking.ShowID); err == nil {
		n.ShowStart = show.StartTime
	}
	if err := s.deps.Notifier.BookingConfirmed(ctx, n); err != nil {
		s.cfg.Log.Warn("Failed to send booking confirmation", "booking_id", booking.ID, "error", err)
	}
}

func (s *settlementService) orphanPayment(ctx context.Context, event model.SettlementEvent, bookingID, reason string) {
	s.cfg.Log.ErrorContext(ctx, "Payment received for unavailable booking, needs manual reconciliation",
		"booking_id", bookingID,
		"session_id", event.SessionID,
		"payment_intent_id", event.PaymentIntentID,
		"event_id", event.EventID,
		"reason", reason,
	)
}

func (s *settlementService) reconciliation(booking *model.Booking, seatID, reason string) {
	s.cfg.Log.Error("Paid seat could not be marked occupied",
		"booking_id", booking.ID,
		"show_id", booking.ShowID,
		"seat", seatID,
		"reason", reason,
	)
}

func translateBookingError(err error, id string) error {
	switch {
	case errors.Is(err, bookingErrors.ErrBookingNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingErrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return apperrors.Internal("Failed to load booking", err)
	}
}
