package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/heykudos/kudos-backend/api/routes"
	"github.com/heykudos/kudos-backend/internal/billing"
	"github.com/heykudos/kudos-backend/internal/ledger"
	"github.com/heykudos/kudos-backend/internal/members"
	"github.com/heykudos/kudos-backend/internal/recognition"
	"github.com/heykudos/kudos-backend/internal/seatmigration"
	"github.com/heykudos/kudos-backend/internal/seats"
	stripewebhook "github.com/heykudos/kudos-backend/internal/webhooks/stripe"
	"github.com/heykudos/kudos-backend/pkg/config"
	"github.com/heykudos/kudos-backend/pkg/db"
	"github.com/heykudos/kudos-backend/pkg/logger"
	"github.com/heykudos/kudos-backend/pkg/metrics"
	"github.com/heykudos/kudos-backend/pkg/migrate"
	"github.com/heykudos/kudos-backend/pkg/pubsub"
	"github.com/heykudos/kudos-backend/pkg/redis"
	"github.com/heykudos/kudos-backend/pkg/settings"
	"github.com/heykudos/kudos-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	recognitionMetrics := metrics.NewRecognitionMetrics(prometheus.DefaultRegisterer)

	gormDB := dbClient.DB()
	ledgerRepo := ledger.NewRepository(gormDB)
	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:              ledgerRepo,
		TransactionRunner: dbClient,
		Metrics:           recognitionMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	recognitionService, err := recognition.NewService(recognition.ServiceParams{
		Ledger:     ledgerService,
		LedgerRepo: ledgerRepo,
		Feed:       pubsub.NewFeedBroadcaster(pubsubClient.FeedPublisher(), logg),
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create recognition service", err)
		os.Exit(1)
	}

	seatsService, err := seats.NewService(seats.ServiceParams{
		Repo:    seats.NewRepository(gormDB),
		Updater: stripe.NewSubscriptionClient(stripeClient),
		Logger:  logg,
		Metrics: recognitionMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seats service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{
		Repo:     billing.NewRepository(gormDB),
		Seats:    seatsService,
		Checkout: stripe.NewCheckoutClient(stripeClient, cfg.Stripe),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	membersService, err := members.NewService(members.ServiceParams{
		Repo:              members.NewRepository(gormDB),
		Billing:           billingService,
		Seats:             seatsService,
		Ledger:            ledgerService,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create members service", err)
		os.Exit(1)
	}

	migrationService, err := seatmigration.NewService(seatmigration.ServiceParams{
		Repo:              seatmigration.NewRepository(gormDB),
		Seats:             seatsService,
		Updater:           stripe.NewSubscriptionClient(stripeClient),
		Settings:          settings.NewRepository(gormDB),
		DefaultPriceCents: cfg.Billing.DefaultPricePerSeatCents,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seat migration service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Billing: billingService,
		Seats:   seatsService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, 24*time.Hour, "kudos:stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:             cfg,
			Logger:             logg,
			DBPinger:           dbClient,
			RedisPinger:        redisClient,
			Recognition:        recognitionService,
			Ledger:             ledgerService,
			Members:            membersService,
			Seats:              seatsService,
			SeatMigration:      migrationService,
			StripeWebhook:      webhookService,
			StripeClient:       stripeClient,
			StripeWebhookGuard: webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
