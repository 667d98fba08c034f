package service

import (
	"context"
	"errors"
	"fmt"

	"cinebook/pkg/kafka"
	"cinebook/pkg/logger"
	"cinebook/pkg/model"
)

const settlementSource = "cinebook-webhook"

// KafkaSettlementQueue publishes verified settlement events keyed by booking
// so events for one booking are consumed in order.
type KafkaSettlementQueue struct {
	producer kafka.Publisher
}

func NewKafkaSettlementQueue(producer kafka.Publisher) *KafkaSettlementQueue {
	return &KafkaSettlementQueue{producer: producer}
}

func (q *KafkaSettlementQueue) Enqueue(ctx context.Context, event model.SettlementEvent) error {
	key := event.BookingID
	if key == "" {
		key = event.SessionID
	}

	msg, err := kafka.NewMessage().
		WithKey(key).
		WithEventID(event.EventID).
		WithEventType(kafka.EventPaymentSettled).
		WithCorrelationID(event.EventID).
		WithSource(settlementSource).
		WithValue(event).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build settlement message: %w", err)
	}
	return q.producer.Publish(ctx, msg)
}

// NewSettlementHandler consumes payment.settled messages. Events that cannot
// name a booking go straight to the DLQ; everything else is retried.
func NewSettlementHandler(settlement SettlementService, log *logger.Logger) kafka.MessageHandler {
	log = log.Component("settlement-consumer")

	return func(ctx context.Context, msg kafka.Message) error {
		var event model.SettlementEvent
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("invalid settlement payload", err)
		}

		if err := settlement.Settle(ctx, event); err != nil {
			if errors.Is(err, ErrUnresolvableSettlement) {
				log.Error("Unresolvable settlement event", "event_id", event.EventID, "session_id", event.SessionID, "error", err)
				return kafka.NewPermanentError("settlement event names no booking", err)
			}
			return kafka.NewTransientError("settlement failed", err)
		}
		return nil
	}
}
