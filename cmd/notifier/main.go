package main

import (
	"cinebook/internal/booking/handler"
	"cinebook/internal/notification"
	"cinebook/pkg/app"
	"cinebook/pkg/config"
	"cinebook/pkg/kafka"
	kafka_config "cinebook/pkg/kafka/config"
	kafka_middleware "cinebook/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.ValidateMailer(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	mailer, err := notification.NewSMTPMailer(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		cfg.Log.Fatal("Failed to create mailer", "error", err)
	}

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.Log,
		kafkaCfg.NotificationTopic,
		kafkaCfg.NotificationGroupID,
		kafkaCfg.DLQTopic,
		notification.NewHandler(mailer, cfg.Log),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification consumer", "error", err)
	}
	defer consumer.Close()
	kafka_middleware.UseLogging(kafkaCfg.EnableMiddleware, cfg.Log, nil, []kafka_middleware.ConsumerUser{consumer})

	cfg.Log.Info("Starting Notifier service", "topic", kafkaCfg.NotificationTopic)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewHealthHandler(nil, cfg.Log), nil)
	serverApp.AddWorker("notification-consumer", consumer.Start)
	serverApp.Run()
}
