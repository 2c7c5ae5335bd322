package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heykudos/kudos-backend/api/responses"
	"github.com/heykudos/kudos-backend/internal/seatmigration"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/logger"
)

type companyPlanResponse struct {
	CompanyID        string `json:"company_id"`
	Name             string `json:"name"`
	TeamSlots        int    `json:"team_slots"`
	LiveSeats        int    `json:"live_seats"`
	Mismatch         bool   `json:"mismatch"`
	MonthlyCostDelta string `json:"monthly_cost_delta"`
}

// AnalyzeSeatMigration lists every subscribed company with its legacy slot
// count, live billable seats, and the monthly cost delta a migration would
// cause. Read only.
func AnalyzeSeatMigration(svc seatmigration.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seat migration service unavailable"))
			return
		}

		plans, err := svc.Analyze(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]companyPlanResponse, 0, len(plans))
		for _, plan := range plans {
			out = append(out, companyPlanResponse{
				CompanyID:        plan.CompanyID.String(),
				Name:             plan.Name,
				TeamSlots:        plan.TeamSlots,
				LiveSeats:        plan.LiveSeats,
				Mismatch:         plan.Mismatch,
				MonthlyCostDelta: plan.MonthlyCostDelta.StringFixed(2),
			})
		}
		responses.WriteSuccess(w, map[string]any{"companies": out})
	}
}

// MigrateCompanySeats switches one company from its legacy slot count to
// live seat billing.
func MigrateCompanySeats(svc seatmigration.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seat migration service unavailable"))
			return
		}

		companyID, err := uuid.Parse(chi.URLParam(r, "companyID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid company id"))
			return
		}

		result, err := svc.Migrate(ctx, companyID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := map[string]any{
			"company_id":       result.CompanyID,
			"previous_slots":   result.PreviousSlots,
			"new_quantity":     result.NewQuantity,
			"already_migrated": result.AlreadyMigrated,
		}
		if result.MigratedAt != nil {
			out["migrated_at"] = result.MigratedAt.UTC().Format(time.RFC3339)
		}
		responses.WriteSuccess(w, out)
	}
}
