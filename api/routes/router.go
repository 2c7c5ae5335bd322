package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heykudos/kudos-backend/api/controllers"
	webhookcontrollers "github.com/heykudos/kudos-backend/api/controllers/webhooks"
	"github.com/heykudos/kudos-backend/api/middleware"
	"github.com/heykudos/kudos-backend/internal/ledger"
	"github.com/heykudos/kudos-backend/internal/members"
	"github.com/heykudos/kudos-backend/internal/recognition"
	"github.com/heykudos/kudos-backend/internal/seatmigration"
	"github.com/heykudos/kudos-backend/internal/seats"
	"github.com/heykudos/kudos-backend/pkg/config"
	"github.com/heykudos/kudos-backend/pkg/logger"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DBPinger       controllers.Pinger
	RedisPinger    controllers.Pinger
	Recognition    recognition.Service
	Ledger         ledger.Service
	Members        members.Service
	Seats          seats.Service
	SeatMigration  seatmigration.Service
	MetricsHandler http.Handler

	// Webhook wiring is optional; the route answers 500 when any piece is
	// missing rather than panicking at startup.
	StripeWebhook      webhookcontrollers.StripeWebhookService
	StripeClient       interface{ SigningSecret() string }
	StripeWebhookGuard interface {
		CheckAndMark(ctx context.Context, eventID string) (bool, error)
		Delete(ctx context.Context, eventID string) error
	}
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DBPinger, p.RedisPinger))
	})

	metricsHandler := p.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhook, p.StripeClient, p.StripeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/recognition", func(r chi.Router) {
			r.Post("/", controllers.GivePoints(p.Recognition, logg))
			r.Get("/allowance", controllers.Allowance(p.Ledger, logg))
			r.Get("/activity", controllers.RecentActivity(p.Recognition, logg))
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/", controllers.ListMembers(p.Members, logg))
			r.Post("/", controllers.InviteMember(p.Members, logg))
			r.Post("/import/complete", controllers.CompleteBulkImport(p.Members, logg))
			r.Post("/{memberID}/deactivate", controllers.DeactivateMember(p.Members, logg))
			r.Post("/{memberID}/reactivate", controllers.ReactivateMember(p.Members, logg))
			r.Post("/{memberID}/points/grant", controllers.GrantMemberPoints(p.Members, logg))
			r.Post("/{memberID}/points/revoke", controllers.RevokeMemberPoints(p.Members, logg))
		})

		r.Get("/billing/seats", controllers.BillableSeats(p.Seats, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/seat-migration", func(r chi.Router) {
			r.Get("/analyze", controllers.AnalyzeSeatMigration(p.SeatMigration, logg))
			r.Post("/{companyID}", controllers.MigrateCompanySeats(p.SeatMigration, logg))
		})
	})

	return r
}
