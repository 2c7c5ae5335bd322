package controllers

import (
	"net/http"

	"github.com/heykudos/kudos-backend/api/responses"
	"github.com/heykudos/kudos-backend/internal/seats"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/logger"
)

// BillableSeats reports the company's current Stripe-billable seat count.
func BillableSeats(svc seats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seats service unavailable"))
			return
		}

		companyID, _, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		count, err := svc.CurrentBillableSeatCount(ctx, companyID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"billable_seats": count})
	}
}
