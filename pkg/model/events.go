package model

import "time"

const (
	SettlementSourceWebhook = "webhook"
	SettlementSourceConfirm = "confirm"
)

// SettlementEvent is a verified payment confirmation. At least one of
// BookingID and SessionID is set.
type SettlementEvent struct {
	EventID         string    `json:"event_id"`
	Type            string    `json:"type"`
	BookingID       string    `json:"booking_id,omitempty"`
	SessionID       string    `json:"session_id,omitempty"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	Source          string    `json:"source"`
	ReceivedAt      time.Time `json:"received_at"`
}

const (
	NotificationBookingConfirmed = "booking_confirmed"
	NotificationBookingCancelled = "booking_cancelled"
)

// BookingNotification is published for the notifier to turn into an email.
type BookingNotification struct {
	Kind        string       `json:"kind"`
	BookingID   string       `json:"booking_id"`
	UserID      string       `json:"user_id"`
	Email       string       `json:"email"`
	ShowID      string       `json:"show_id"`
	ShowStart   time.Time    `json:"show_start"`
	Seats       []BookedSeat `json:"seats"`
	TotalAmount float64      `json:"total_amount"`
	Currency    string       `json:"currency"`
	OccurredAt  time.Time    `json:"occurred_at"`
}
