package service

import (
	"context"

	"cinebook/internal/booking/repository"
	"cinebook/internal/payment"
	mongodb "cinebook/pkg/db/mongo"
	"cinebook/pkg/model"

	"github.com/jonboulle/clockwork"
)

const (
	SeatStateLocked   = "locked"
	SeatStateOccupied = "occupied"
	SeatStateFree     = "free"
)

// TaskScheduler is the part of the durable timer table the booking flows use.
type TaskScheduler interface {
	Schedule(ctx context.Context, task *model.ExpiryTask) error
	Complete(ctx context.Context, id string) error
}

// Notifier hands booking notifications to the delivery pipeline. Callers
// treat failures as best effort.
type Notifier interface {
	BookingConfirmed(ctx context.Context, n model.BookingNotification) error
	BookingCancelled(ctx context.Context, n model.BookingNotification) error
}

// SeatCache caches seat snapshots per show.
type SeatCache interface {
	Snapshot(ctx context.Context, showID string, load func(ctx context.Context) (*SeatSnapshot, error)) (*SeatSnapshot, error)
	Invalidate(ctx context.Context, showID string) error
}

// SeatEvents announces seat map changes to live subscribers.
type SeatEvents interface {
	SeatsChanged(ctx context.Context, showID string, seats []string, state string) error
}

// SettlementQueue carries verified payment events from the webhook to the
// settlement consumer.
type SettlementQueue interface {
	Enqueue(ctx context.Context, event model.SettlementEvent) error
}

type Deps struct {
	Shows    repository.ShowRepository
	Bookings repository.BookingRepository
	Tasks    TaskScheduler
	Gateway  payment.Gateway
	Notifier Notifier
	Cache    SeatCache
	Events   SeatEvents
	Tx       mongodb.TransactionManager
	Clock    clockwork.Clock
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = noopNotifier{}
	}
	if d.Cache == nil {
		d.Cache = noCache{}
	}
	if d.Events == nil {
		d.Events = noopEvents{}
	}
	if d.Tx == nil {
		d.Tx = mongodb.NoTransaction{}
	}
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	return d
}

type noopNotifier struct{}

func (noopNotifier) BookingConfirmed(context.Context, model.BookingNotification) error { return nil }
func (noopNotifier) BookingCancelled(context.Context, model.BookingNotification) error { return nil }

type noCache struct{}

func (noCache) Snapshot(ctx context.Context, _ string, load func(ctx context.Context) (*SeatSnapshot, error)) (*SeatSnapshot, error) {
	return load(ctx)
}

func (noCache) Invalidate(context.Context, string) error { return nil }

type noopEvents struct{}

func (noopEvents) SeatsChanged(context.Context, string, []string, string) error { return nil }
