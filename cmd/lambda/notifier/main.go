package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/example/bizmarket/internal/config"
	"github.com/example/bizmarket/internal/email"
	"github.com/example/bizmarket/internal/infrastructure/kinesis"
	"github.com/example/bizmarket/internal/infrastructure/store"
	"github.com/example/bizmarket/internal/logging"
	"github.com/example/bizmarket/internal/notification"
)

var (
	notificationHandler *notification.Handler
	logger              *zap.Logger
)

func init() {
	cfg := config.Load()

	var err error
	logger, err = logging.New(cfg.LogLevel, "bizmarket-lambda-notifier")
	if err != nil {
		panic(err)
	}

	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	notificationHandler = notification.NewHandler(emailSvc, store.NewPostgresUserDirectory(db), logger)

	logger.Info("initialized", zap.String("smtp", cfg.SMTPHost+":"+cfg.SMTPPort))
}

// handler emails every inbox row inserted into the notifications table.
// Failed records are reported back so only they are retried.
func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	var batchItemFailures []events.KinesisBatchItemFailure
	fail := func(record events.KinesisEventRecord, msg string, err error) {
		logger.Error(msg, zap.String("event_id", record.EventID), zap.Error(err))
		batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
			ItemIdentifier: record.Kinesis.SequenceNumber,
		})
	}

	for _, record := range kinesisEvent.Records {
		n, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			fail(record, "convert record failed", err)
			continue
		}
		// Not an INSERT.
		if n == nil {
			continue
		}

		if err := notificationHandler.HandleNotification(ctx, *n); err != nil {
			fail(record, "handle notification failed", err)
		}
	}

	logger.Info("batch processed",
		zap.Int("records", len(kinesisEvent.Records)),
		zap.Int("failed", len(batchItemFailures)))

	return events.KinesisEventResponse{BatchItemFailures: batchItemFailures}, nil
}

func main() {
	lambda.Start(handler)
}
