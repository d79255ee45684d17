package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/example/bizmarket/internal/api"
	"github.com/example/bizmarket/internal/auth"
	"github.com/example/bizmarket/internal/config"
	"github.com/example/bizmarket/internal/domain/inventory"
	"github.com/example/bizmarket/internal/domain/order"
	"github.com/example/bizmarket/internal/infrastructure/kafka"
	"github.com/example/bizmarket/internal/infrastructure/realtime"
	"github.com/example/bizmarket/internal/infrastructure/store"
	"github.com/example/bizmarket/internal/logging"
	"github.com/example/bizmarket/internal/notification"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, "bizmarket-api")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()
	if err := store.Migrate(ctx, db); err != nil {
		logger.Fatal("migrate schema", zap.Error(err))
	}
	logger.Info("connected to postgres")

	rdb := realtime.NewClient(cfg.RedisAddr)
	defer rdb.Close()
	pubsub := realtime.NewPubSub(rdb)

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	inbox, err := notificationStore(ctx, cfg, db)
	if err != nil {
		logger.Fatal("notification store", zap.Error(err))
	}

	notifier := notification.NewNotifier(inbox, pubsub, logger)
	inventoryStore := store.NewPostgresInventoryStore(db)
	reducer := inventory.NewReducer(inventoryStore, pubsub, logger)
	orders := order.NewService(
		store.NewPostgresOrderStore(db),
		inventoryStore,
		reducer,
		notifier,
		order.WithPublisher(producer),
		order.WithLogger(logger),
	)

	jwtService := auth.NewJWTService(cfg.JWTSecret)
	handlers := api.NewHandlers(orders, reducer, notifier, pubsub, logger).
		WithHealthCheck("postgres", db.PingContext).
		WithHealthCheck("redis", pubsub.Ping)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handlers, jwtService, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server started",
			zap.String("addr", cfg.HTTPAddr),
			zap.Strings("kafka_brokers", cfg.KafkaBrokers),
			zap.String("kafka_topic", cfg.KafkaTopic),
			zap.String("notification_backend", cfg.NotificationBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func notificationStore(ctx context.Context, cfg config.Config, db *sql.DB) (notification.Store, error) {
	if cfg.NotificationBackend != config.BackendDynamo {
		return store.NewPostgresNotificationStore(db), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, err
	}
	return store.NewDynamoNotificationStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoNotificationTable), nil
}
