package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agenda-backend/application/fanout"
	"agenda-backend/application/notify"
	"agenda-backend/application/ports"
	"agenda-backend/application/schedule"
	"agenda-backend/infrastructure/bus"
	"agenda-backend/infrastructure/bus/eventbridge"
	"agenda-backend/infrastructure/bus/memory"
	"agenda-backend/infrastructure/calendar"
	"agenda-backend/infrastructure/config"
	"agenda-backend/interfaces/http/rest"
	"agenda-backend/interfaces/realtime"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Realtime hub is the delivery channel for every notification
	hub := realtime.NewHub(logger)
	go hub.Run()

	dispatcher := notify.NewDispatcher(hub, logger)

	// In-process broker connects the ingest endpoint to the fan-out
	// consumer. When an event bus name is configured, change events are
	// mirrored to EventBridge for the serverless consumers as well.
	broker := memory.NewBroker(logger)
	var publisher ports.Publisher = broker
	if cfg.EventBusName != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Fatal("Failed to load AWS configuration", zap.Error(err))
		}
		ebPublisher := eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
		publisher = bus.MultiPublisher{broker, ebPublisher}
	}

	consumer := fanout.NewConsumer(broker, dispatcher, logger)
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	go consumer.Run(consumerCtx)

	source := calendar.NewHTTPClient(cfg.CalendarBaseURL, cfg.CalendarTimeout, logger)
	scheduler, err := schedule.New(source, dispatcher, schedule.Config{
		Interval: cfg.ReminderInterval,
		Timezone: cfg.ReminderTimezone,
		Horizon:  cfg.LookaheadHorizon,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create reminder scheduler", zap.Error(err))
	}
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("Failed to start reminder scheduler", zap.Error(err))
	}

	router := rest.NewRouter(
		cfg,
		dispatcher,
		scheduler,
		publisher,
		realtime.NewServer(hub, logger),
		logger,
	)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting notification service",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down notification service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop accepting HTTP traffic first, then the pipelines, then the hub
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	stopConsumer()
	broker.Close()
	hub.Stop()

	log.Println("Notification service stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}
