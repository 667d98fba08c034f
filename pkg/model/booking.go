package model

import (
	"time"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

type Booking struct {
	ID               string       `json:"id" bson:"_id"`
	UserID           string       `json:"user_id" bson:"user_id"`
	UserEmail        string       `json:"-" bson:"user_email,omitempty"`
	ShowID           string       `json:"show_id" bson:"show_id"`
	Seats            []BookedSeat `json:"seats_booked" bson:"seats_booked"`
	TotalAmount      float64      `json:"total_amount" bson:"total_amount"`
	Currency         string       `json:"currency" bson:"currency"`
	Status           string       `json:"status" bson:"status"`
	IsPaid           bool         `json:"is_paid" bson:"is_paid"`
	PaymentSessionID string       `json:"payment_session_id,omitempty" bson:"payment_session_id,omitempty"`
	PaymentLink      string       `json:"payment_link,omitempty" bson:"payment_link,omitempty"`
	PaymentIntentID  string       `json:"payment_intent_id,omitempty" bson:"payment_intent_id,omitempty"`
	CreatedAt        time.Time    `json:"created_at" bson:"created_at"`
	PaidAt           *time.Time   `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	CancelledAt      *time.Time   `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

// BookedSeat freezes the tier and price a seat was sold at.
type BookedSeat struct {
	SeatID string  `json:"seat_id" bson:"seat_id"`
	Tier   string  `json:"tier" bson:"tier"`
	Price  float64 `json:"price" bson:"price"`
}

func (b *Booking) SeatIDs() []string {
	ids := make([]string, 0, len(b.Seats))
	for _, s := range b.Seats {
		ids = append(ids, s.SeatID)
	}
	return ids
}
