package payment

import (
	"context"
	"errors"
)

const (
	MetadataBookingID = "booking_id"
	MetadataUserID    = "user_id"
	MetadataShowID    = "show_id"

	PaymentStatusPaid = "paid"
)

const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventAsyncPaymentSucceeded  = "checkout.session.async_payment_succeeded"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrSessionNotFound  = errors.New("payment session not found")
)

// LineItem is one charged seat. UnitAmount is in minor units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type SessionRequest struct {
	LineItems  []LineItem
	Currency   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
	// CustomerEmail prefills checkout; optional.
	CustomerEmail string
}

type Session struct {
	ID              string
	URL             string
	PaymentStatus   string
	PaymentIntentID string
	AmountTotal     int64
	Metadata        map[string]string
}

func (s *Session) BookingID() string {
	if s == nil {
		return ""
	}
	return s.Metadata[MetadataBookingID]
}

// WebhookEvent is the verified subset of a provider callback the settlement
// path cares about.
type WebhookEvent struct {
	ID              string
	Type            string
	SessionID       string
	PaymentIntentID string
	PaymentStatus   string
	BookingID       string
}

// Settles reports whether the event is proof of a completed payment.
func (e *WebhookEvent) Settles() bool {
	switch e.Type {
	case EventCheckoutCompleted:
		return e.PaymentStatus == PaymentStatusPaid
	case EventAsyncPaymentSucceeded, EventPaymentIntentSucceeded:
		return true
	default:
		return false
	}
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
	// ExpireSession invalidates an open session so it can no longer be paid.
	ExpireSession(ctx context.Context, sessionID string) error
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
