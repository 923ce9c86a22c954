package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/momo-gateway/internal/api"
	"github.com/akylbek/payment-system/momo-gateway/internal/cache"
	"github.com/akylbek/payment-system/momo-gateway/internal/config"
	"github.com/akylbek/payment-system/momo-gateway/internal/events"
	"github.com/akylbek/payment-system/momo-gateway/internal/handlers"
	"github.com/akylbek/payment-system/momo-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/momo-gateway/internal/momo"
	"github.com/akylbek/payment-system/momo-gateway/internal/notification"
	"github.com/akylbek/payment-system/momo-gateway/internal/repository"
	"github.com/akylbek/payment-system/momo-gateway/internal/service"
	"github.com/akylbek/payment-system/momo-gateway/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize telemetry
	if err := telemetry.InitTelemetry(telemetry.Options{
		ServiceName:    "momo-gateway",
		JaegerEndpoint: cfg.JaegerEndpoint,
		SampleRatio:    cfg.TraceSampling,
		LogLevel:       cfg.LogLevel,
	}); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting MoMo gateway", cfg.LogFields()...)
	if err := cfg.MoMo.Validate(); err != nil {
		telemetry.Logger.Warn("MoMo configuration incomplete, provider calls will be refused", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		telemetry.Logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	transactions := repository.NewTransactionRepository(db)
	orders := repository.NewOrderRepository(db)
	inventory := repository.NewInventoryRepository(db)
	sellers := repository.NewSellerRepository(db)
	users := repository.NewUserRepository(db)

	// Provider clients share one bounded HTTP client
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}
	var tokens interfaces.TokenProvider = momo.NewAuthClient(cfg.MoMo, httpClient)
	collection := momo.NewCollectionClient(cfg.MoMo, httpClient)

	// Connect to Redis (optional: token cache and row locks)
	var locker interfaces.RowLocker
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		defer redisClient.Close()

		tokens = momo.NewCachedTokenProvider(tokens, redisClient, cfg.MoMo.APIUser)
		locker = cache.NewRedisLocker(redisClient)
	}

	// State-change sinks
	publisher := events.NewBroadcaster()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaWriter := &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers...),
			Topic:    cfg.PaymentEventsTopic,
			Balancer: &kafka.Hash{},
		}
		defer kafkaWriter.Close()
		publisher.Add("kafka", events.NewKafkaPublisher(kafkaWriter))
	}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
		publisher.Add("nats", events.NewNATSPublisher(nc))
	}

	// Notification dispatcher and its task queue
	renderer, err := notification.NewRenderer(cfg.MoMo.Currency)
	if err != nil {
		telemetry.Logger.Fatal("Failed to load email template", zap.Error(err))
	}
	var sender notification.Sender
	if cfg.Email.ResendAPIKey != "" {
		sender = notification.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.ResendURL, &http.Client{Timeout: 10 * time.Second})
	}
	dispatcher := notification.NewDispatcher(orders, users, renderer, sender, cfg.Email.From)
	retry := notification.RetryPolicy{MaxAttempts: cfg.Email.MaxAttempts, BackoffBase: cfg.Email.BackoffBase}

	var (
		tasks   interfaces.TaskQueue
		workers sync.WaitGroup
	)
	if len(cfg.KafkaBrokers) > 0 {
		taskWriter := &kafka.Writer{
			Addr:     kafka.TCP(cfg.KafkaBrokers...),
			Topic:    cfg.EmailTaskTopic,
			Balancer: &kafka.Hash{},
		}
		defer taskWriter.Close()
		tasks = notification.NewKafkaTaskQueue(taskWriter)

		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.EmailGroupID,
			Topic:    cfg.EmailTaskTopic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
		defer reader.Close()

		worker := notification.NewWorker(reader, dispatcher, retry)
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := worker.Start(ctx); err != nil {
				telemetry.Logger.Error("Email worker exited", zap.Error(err))
			}
		}()
	} else {
		queue := notification.NewAsyncQueue(dispatcher, retry, 256)
		tasks = queue
		workers.Add(1)
		go func() {
			defer workers.Done()
			queue.Run(ctx)
		}()
	}

	// Services
	payments := service.NewPaymentService(cfg.MoMo, tokens, collection, transactions, orders, publisher)
	fanout := service.NewFanout(orders, inventory, orders, sellers, locker, tasks)
	reconciler := service.NewReconciler(transactions, fanout, tasks, publisher)
	poller := service.NewStatusPoller(cfg.MoMo, tokens, collection, transactions, publisher)

	r := api.NewRouter(api.Handlers{
		Auth:     handlers.NewAuthHandler(cfg.MoMo, tokens),
		Payment:  handlers.NewPaymentHandler(payments, poller),
		Callback: handlers.NewCallbackHandler(reconciler),
		Email:    handlers.NewEmailHandler(dispatcher),
	})

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("MoMo gateway starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()
	workers.Wait()

	telemetry.Logger.Info("Server exited")
}
