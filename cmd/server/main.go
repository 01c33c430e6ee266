package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/app"
	"github.com/learnloop/tutor_marketplace/internal/config"
	"github.com/learnloop/tutor_marketplace/internal/controller"
	"github.com/learnloop/tutor_marketplace/internal/events"
	"github.com/learnloop/tutor_marketplace/internal/gateway"
	"github.com/learnloop/tutor_marketplace/internal/notify"
	"github.com/learnloop/tutor_marketplace/internal/repository"
	"github.com/learnloop/tutor_marketplace/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, "migrations", logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	bookingRepo := repository.NewBookingRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	sinks := []events.Sink{
		notify.NewStoreSink(notificationRepo),
		notify.NewLogSink(logger),
	}
	if cfg.TelegramToken != "" {
		telegramSink, err := notify.NewTelegramSink(cfg.TelegramToken, userRepo)
		if err != nil {
			logger.Warn("Telegram sink disabled", zap.Error(err))
		} else {
			sinks = append(sinks, telegramSink)
		}
	}
	bus := events.NewBus(logger, sinks...)
	defer bus.Close()

	gatewayClient := gateway.NewClient(cfg.PaymentSecretKey, cfg.PaymentBaseURL, cfg.PaymentCallbackURL, logger)

	allocationService := service.NewAllocationService(bookingRepo, userRepo, bus, logger)
	recurringService := service.NewRecurringService(bookingRepo, userRepo, bus, cfg.DefaultLessonPrice, logger)
	availabilityService := service.NewAvailabilityService(bookingRepo, userRepo)
	bookingService := service.NewBookingService(bookingRepo, userRepo, bus, logger, nil)
	disputeService := service.NewDisputeService(
		bookingRepo, paymentRepo, userRepo, gatewayClient, bus,
		service.PayoutPolicy{
			CommissionRate: cfg.CommissionRate,
			MinPayout:      cfg.MinPayout,
			Currency:       cfg.Currency,
		},
		logger, nil,
	)
	paymentService := service.NewPaymentService(bookingRepo, paymentRepo, userRepo, gatewayClient, bus, cfg.Currency, logger)
	notificationService := service.NewNotificationService(notificationRepo)

	handler := controller.NewHandler(
		allocationService,
		recurringService,
		availabilityService,
		bookingService,
		disputeService,
		paymentService,
		notificationService,
		logger,
	)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: controller.NewRouter(handler, cfg.Environment),
	}

	go func() {
		logger.Info("Starting server",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}
