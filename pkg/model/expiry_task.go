package model

import "time"

const (
	TaskPending = "pending"
	TaskRunning = "running"
	TaskDone    = "done"
	TaskFailed  = "failed"
)

// ExpiryTask is a persisted timer. Its ID equals the booking id it guards, so
// scheduling the same booking twice is a no-op. ShowID and SeatIDs let the
// reaper sweep leftover locks even after the booking row is gone.
type ExpiryTask struct {
	ID         string     `json:"id" bson:"_id"`
	BookingID  string     `json:"booking_id" bson:"booking_id"`
	ShowID     string     `json:"show_id" bson:"show_id"`
	SeatIDs    []string   `json:"seat_ids" bson:"seat_ids"`
	RunAt      time.Time  `json:"run_at" bson:"run_at"`
	Status     string     `json:"status" bson:"status"`
	Attempts   int        `json:"attempts" bson:"attempts"`
	LeaseUntil *time.Time `json:"lease_until,omitempty" bson:"lease_until,omitempty"`
	LastError  string     `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
}
