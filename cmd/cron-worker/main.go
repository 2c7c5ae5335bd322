package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/heykudos/kudos-backend/internal/cron"
	"github.com/heykudos/kudos-backend/internal/seats"
	"github.com/heykudos/kudos-backend/pkg/config"
	"github.com/heykudos/kudos-backend/pkg/db"
	"github.com/heykudos/kudos-backend/pkg/logger"
	"github.com/heykudos/kudos-backend/pkg/metrics"
	"github.com/heykudos/kudos-backend/pkg/migrate"
	"github.com/heykudos/kudos-backend/pkg/redis"
	"github.com/heykudos/kudos-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	recognitionMetrics := metrics.NewRecognitionMetrics(prometheus.DefaultRegisterer)

	seatsService, err := seats.NewService(seats.ServiceParams{
		Repo:    seats.NewRepository(dbClient.DB()),
		Updater: stripe.NewSubscriptionClient(stripeClient),
		Logger:  logg,
		Metrics: recognitionMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seats service", err)
		os.Exit(1)
	}

	retryJob, err := cron.NewSeatSyncRetryJob(cron.SeatSyncRetryJobParams{
		Seats:     seatsService,
		Logger:    logg,
		BatchSize: cfg.Cron.RetryBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seat sync retry job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(retryJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
