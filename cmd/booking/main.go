package main

import (
	"context"

	"cinebook/internal/booking/handler"
	"cinebook/internal/booking/repository"
	"cinebook/internal/booking/service"
	"cinebook/internal/booking/validator"
	"cinebook/internal/notification"
	"cinebook/internal/payment"
	"cinebook/internal/scheduler"
	"cinebook/pkg/app"
	"cinebook/pkg/cache"
	"cinebook/pkg/config"
	mongodb "cinebook/pkg/db/mongo"
	"cinebook/pkg/kafka"
	kafka_config "cinebook/pkg/kafka/config"
	kafka_middleware "cinebook/pkg/kafka/middleware"

	"github.com/jonboulle/clockwork"
)

const ServiceName = "booking"

func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.ValidateBookingSecrets(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Booking service")

	settlementProducer, err := kafka.NewProducer(kafkaCfg, cfg.Log, kafkaCfg.SettlementTopic, kafkaCfg.DLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create settlement producer", "error", err)
	}
	defer settlementProducer.Close()

	notificationProducer, err := kafka.NewProducer(kafkaCfg, cfg.Log, kafkaCfg.NotificationTopic, kafkaCfg.DLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification producer", "error", err)
	}
	defer notificationProducer.Close()

	gateway, err := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	}, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create payment gateway", "error", err)
	}

	tasks := scheduler.NewMongoTaskRepository(cfg)
	deps := service.Deps{
		Shows:    repository.NewMongoShowRepository(cfg),
		Bookings: repository.NewMongoBookingRepository(cfg),
		Tasks:    tasks,
		Gateway:  gateway,
		Notifier: notification.NewPublisher(notificationProducer, cfg.Log),
		Cache:    service.NewRedisSeatCache(cache.New(cfg.Client.Redis), cfg.SeatCacheTTL),
		Events:   service.NewRedisSeatEvents(cache.NewSeatsPubSub(cfg.Client.Redis)),
		Tx:       mongodb.NewTransactionManager(cfg.Client.Mongo),
		Clock:    clockwork.NewRealClock(),
	}

	reservation := service.NewReservationService(deps, cfg)
	settlement := service.NewSettlementService(deps, service.NewKafkaSettlementQueue(settlementProducer), cfg)
	expiry := service.NewExpiryService(deps, cfg)
	cancellation := service.NewCancellationService(deps, cfg)
	query := service.NewQueryService(deps, cfg)

	settlementConsumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.Log,
		kafkaCfg.SettlementTopic,
		kafkaCfg.SettlementGroupID,
		kafkaCfg.DLQTopic,
		service.NewSettlementHandler(settlement, cfg.Log),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create settlement consumer", "error", err)
	}
	defer settlementConsumer.Close()
	kafka_middleware.UseLogging(kafkaCfg.EnableMiddleware, cfg.Log,
		[]kafka_middleware.ProducerUser{settlementProducer, notificationProducer},
		[]kafka_middleware.ConsumerUser{settlementConsumer},
	)

	poller := scheduler.NewPoller(scheduler.PollerConfig{
		Interval:  cfg.ExpiryPollInterval,
		BatchSize: cfg.ExpiryBatchSize,
		Lease:     cfg.ExpiryLease,
	}, tasks, expiry.Expire, deps.Clock, cfg.Log)

	bookingValidator := validator.NewBookingValidator(cfg.Log)
	payments := handler.NewPaymentHandler(settlement, bookingValidator, cfg.Log)
	health := handler.NewHealthHandler(map[string]handler.Check{
		"mongo": func(ctx context.Context) error { return cfg.Client.Mongo.Ping(ctx, nil) },
		"redis": func(ctx context.Context) error { return cfg.Client.Redis.Ping(ctx).Err() },
	}, cfg.Log)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		health,
		payments,
		handler.NewBookingHandler(reservation, query, cancellation, bookingValidator, cfg.Log),
		payments,
	)
	serverApp.AddWorker("settlement-consumer", settlementConsumer.Start)
	serverApp.AddWorker("expiry-poller", poller.Run)
	serverApp.Run()
}
