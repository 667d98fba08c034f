package notification

import (
	"context"
	"fmt"

	"cinebook/pkg/kafka"
	"cinebook/pkg/logger"
	"cinebook/pkg/model"
)

const source = "cinebook-booking"

// Publisher puts booking notifications on Kafka for the notifier process.
type Publisher struct {
	producer kafka.Publisher
	log      *logger.Logger
}

func NewPublisher(producer kafka.Publisher, log *logger.Logger) *Publisher {
	return &Publisher{producer: producer, log: log.Component("notification-publisher")}
}

func (p *Publisher) BookingConfirmed(ctx context.Context, n model.BookingNotification) error {
	n.Kind = model.NotificationBookingConfirmed
	return p.publish(ctx, kafka.EventBookingConfirmed, n)
}

func (p *Publisher) BookingCancelled(ctx context.Context, n model.BookingNotification) error {
	n.Kind = model.NotificationBookingCancelled
	return p.publish(ctx, kafka.EventBookingCancelled, n)
}

func (p *Publisher) publish(ctx context.Context, eventType string, n model.BookingNotification) error {
	msg, err := kafka.NewMessage().
		WithKey(n.BookingID).
		WithEventType(eventType).
		WithCorrelationID(n.BookingID).
		WithSchemaVersion(kafka.SchemaVersionV1).
		WithSource(source).
		WithValue(n).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s message: %w", eventType, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.log.Debug("Notification published", "event_type", eventType, "booking_id", n.BookingID)
	return nil
}
