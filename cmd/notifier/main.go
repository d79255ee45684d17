package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/example/bizmarket/internal/config"
	"github.com/example/bizmarket/internal/email"
	"github.com/example/bizmarket/internal/infrastructure/kafka"
	"github.com/example/bizmarket/internal/infrastructure/store"
	"github.com/example/bizmarket/internal/logging"
	"github.com/example/bizmarket/internal/notification"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, "bizmarket-notifier")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Recipient names and addresses only.
	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc, store.NewPostgresUserDirectory(db), logger)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroup, logger)
	defer consumer.Close()

	logger.Info("notifier started",
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.String("kafka_group", cfg.KafkaGroup),
		zap.String("smtp", cfg.SMTPHost+":"+cfg.SMTPPort))

	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", zap.Error(err))
	}
	logger.Info("notifier stopped")
}
