package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/slotwise/booking-platform/internal/api/router"
	"github.com/slotwise/booking-platform/internal/availability"
	"github.com/slotwise/booking-platform/internal/catalog"
	appconfig "github.com/slotwise/booking-platform/internal/config"
	"github.com/slotwise/booking-platform/internal/events"
	"github.com/slotwise/booking-platform/internal/http/handlers"
	"github.com/slotwise/booking-platform/internal/observability/metrics"
	"github.com/slotwise/booking-platform/internal/reservations"
	"github.com/slotwise/booking-platform/internal/schedule"
	"github.com/slotwise/booking-platform/internal/tenants"
	"github.com/slotwise/booking-platform/pkg/logging"
)

func main() {
	// Optional .env for local development; env vars win in deployment.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	availabilityMetrics := metrics.NewAvailabilityMetrics(registry)
	reservationMetrics := metrics.NewReservationMetrics(registry)

	defaultHours, err := schedule.EveryDay(cfg.DefaultOpenTime, cfg.DefaultCloseTime)
	if err != nil {
		logger.Error("invalid default hours", "error", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(pool)
	scheduleRepo := schedule.NewRepository(pool)
	scheduleModel := schedule.NewModel(scheduleRepo, defaultHours, logger)
	settingsStore := tenants.NewStore(redisClient, cfg.DefaultTimezone, defaultHours)

	reservationRepo := reservations.NewRepository(pool)
	gate := reservations.NewGate(pool, logger, reservationMetrics,
		reservations.WithTxTimeout(cfg.ReserveTxTimeout),
		reservations.WithRetries(cfg.ReserveMaxRetries, cfg.ReserveRetryDelay),
	)
	idempotencyStore := reservations.NewIdempotencyStore(pool)

	availabilitySvc := availability.NewService(
		catalogRepo, settingsStore, scheduleModel, reservationRepo,
		logger, availabilityMetrics, cfg.MaxRangeDays,
	)

	// Outbox events fan out over Redis pub/sub.
	outboxStore := events.NewOutboxStore(pool)
	publisher := events.NewRedisPublisher(redisClient, "booking.events")
	deliverer := events.NewDeliverer(outboxStore, publisher, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)
	go deliverer.Start(ctx)

	routerCfg := &router.Config{
		Logger:        logger,
		Availability:  handlers.NewAvailabilityHandler(availabilitySvc, logger),
		Reservations:  handlers.NewReservationsHandler(gate, reservationRepo, idempotencyStore, logger),
		ScheduleAdmin: handlers.NewScheduleAdminHandler(scheduleRepo, settingsStore, logger),
		Health:        handlers.NewHealthHandler(pool),

		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,

		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
