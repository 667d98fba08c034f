package notification

import (
	"context"

	"cinebook/pkg/kafka"
	"cinebook/pkg/logger"
	"cinebook/pkg/model"
)

// NewHandler turns booking notification events into emails. Bad payloads go
// to the DLQ; SMTP failures are retried by the consumer.
func NewHandler(mailer Mailer, log *logger.Logger) kafka.MessageHandler {
	log = log.Component("notification-handler")

	return func(ctx context.Context, msg kafka.Message) error {
		var n model.BookingNotification
		if err := msg.DecodeValue(&n); err != nil {
			return kafka.NewPermanentError("invalid notification payload", err)
		}

		if n.Email == "" {
			log.Warn("Notification has no recipient, skipping",
				"booking_id", n.BookingID,
				"user_id", n.UserID,
				"kind", n.Kind,
			)
			return nil
		}

		email, err := Render(n)
		if err != nil {
			return kafka.NewPermanentError("cannot render notification", err)
		}

		if err := mailer.Send(ctx, email); err != nil {
			return kafka.NewTransientError("email delivery failed", err)
		}

		log.Info("Notification delivered",
			"booking_id", n.BookingID,
			"kind", n.Kind,
			"event_id", msg.GetEventID(),
		)
		return nil
	}
}
