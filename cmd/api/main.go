// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/payment"
	"github.com/your-org/marketplace-backend/internal/domain/tax"
	"github.com/your-org/marketplace-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/marketplace-backend/internal/infrastructure/database/redis"
	"github.com/your-org/marketplace-backend/internal/infrastructure/messaging/rabbitmq"
	"github.com/your-org/marketplace-backend/internal/interfaces/http"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/routes"
	"github.com/your-org/marketplace-backend/internal/pkg/email"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)
	logger.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Infof("starting %s", cfg.App.Name)

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	redisClient, err := redis.NewConnection(cfg)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	migration := postgres.NewMigration(db)
	if err := migration.RunAutoMigrations(); err != nil {
		logger.Fatalf("Database migration failed: %v", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		logger.Warnf("Index creation failed: %v", err)
	}
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			logger.Warnf("Data seeding failed: %v", err)
		}
	}

	// The broker is optional; the order engine runs without eventing when
	// no URL is configured.
	var publisher order.EventPublisher
	if cfg.Messaging.URL != "" {
		rmq, err := rabbitmq.NewPublisher(cfg, logger)
		if err != nil {
			logger.Warnf("RabbitMQ unavailable, order events disabled: %v", err)
		} else {
			defer rmq.Close()
			publisher = rmq
		}
	}

	mailer := email.NewEmailService(cfg)
	taxes := tax.NewService(db)
	orderService := order.NewService(db, taxes, logger, publisher, mailer)
	stripeService := payment.NewStripeService(cfg, orderService, redisClient, logger)

	server := http.NewServer(cfg, db, redisClient, logger, routes.Deps{
		DB:     db,
		Config: cfg,
		Logger: logger,
		Orders: orderService,
		Stripe: stripeService,
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Errorf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	logger.Info("server shutdown completed")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
