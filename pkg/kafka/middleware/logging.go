package kafka_middleware

import (
	"context"
	"time"

	"cinebook/pkg/kafka"
	"cinebook/pkg/logger"
)

func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"duration", time.Since(start),
		}
		if err != nil {
			log.ErrorContext(ctx, "kafka publish failed", append(attrs, "error", err)...)
		} else {
			log.DebugContext(ctx, "kafka message published", attrs...)
		}
		return err
	}
}

func LoggingConsumerMiddleware(log *logger.Logger) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"duration", time.Since(start),
		}
		if err != nil {
			log.WarnContext(ctx, "kafka message handler failed", append(attrs, "error", err)...)
		} else {
			log.DebugContext(ctx, "kafka message processed", attrs...)
		}
		return err
	}
}

type ProducerUser interface {
	Use(middleware kafka.ProducerMiddleware)
}

type ConsumerUser interface {
	Use(middleware kafka.ConsumerMiddleware)
}

// UseLogging installs the logging middleware on every producer and consumer
// when enabled is set.
func UseLogging(enabled bool, log *logger.Logger, producers []ProducerUser, consumers []ConsumerUser) {
	if !enabled {
		log.Info("Kafka middleware disabled")
		return
	}
	for _, p := range producers {
		p.Use(LoggingProducerMiddleware(log))
	}
	for _, c := range consumers {
		c.Use(LoggingConsumerMiddleware(log))
	}
}
