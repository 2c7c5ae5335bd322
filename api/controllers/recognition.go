package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heykudos/kudos-backend/api/middleware"
	"github.com/heykudos/kudos-backend/api/responses"
	"github.com/heykudos/kudos-backend/api/validators"
	"github.com/heykudos/kudos-backend/internal/ledger"
	"github.com/heykudos/kudos-backend/internal/recognition"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/logger"
	"github.com/heykudos/kudos-backend/pkg/pagination"
)

type givePointsPayload struct {
	RecipientMemberIDs []string `json:"recipient_member_ids" validate:"required,min=1,dive,uuid"`
	Points             int      `json:"points" validate:"required,gt=0"`
	Message            string   `json:"message" validate:"max=500"`
}

type recipientOutcomePayload struct {
	RecipientMemberID string `json:"recipient_member_id"`
	TransactionID     string `json:"transaction_id,omitempty"`
	Error             string `json:"error,omitempty"`
}

type givePointsResponse struct {
	Succeeded        int                       `json:"succeeded"`
	Failed           int                       `json:"failed"`
	NewSenderBalance int                       `json:"new_sender_balance"`
	Outcomes         []recipientOutcomePayload `json:"outcomes"`
}

// GivePoints hands out recognition points to one or more colleagues.
func GivePoints(svc recognition.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recognition service unavailable"))
			return
		}

		companyID, memberID, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload givePointsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		recipients := make([]uuid.UUID, 0, len(payload.RecipientMemberIDs))
		for _, raw := range payload.RecipientMemberIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid recipient id"))
				return
			}
			recipients = append(recipients, id)
		}

		result, err := svc.GivePoints(ctx, recognition.GivePointsInput{
			CompanyID:          companyID,
			SenderMemberID:     memberID,
			RecipientMemberIDs: recipients,
			PointsPerRecipient: payload.Points,
			Message:            payload.Message,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := givePointsResponse{
			Succeeded:        result.SucceededCount(),
			Failed:           result.FailedCount(),
			NewSenderBalance: result.NewSenderBalance,
			Outcomes:         make([]recipientOutcomePayload, 0, len(result.Outcomes)),
		}
		for _, outcome := range result.Outcomes {
			entry := recipientOutcomePayload{RecipientMemberID: outcome.RecipientMemberID.String()}
			if outcome.Succeeded() {
				entry.TransactionID = outcome.TransactionID.String()
			} else {
				entry.Error = outcome.Err.Error()
			}
			resp.Outcomes = append(resp.Outcomes, entry)
		}

		status := http.StatusOK
		if resp.Failed > 0 {
			status = http.StatusMultiStatus
		}
		responses.WriteSuccessStatus(w, status, resp)
	}
}

type allowanceResponse struct {
	Available   int    `json:"available"`
	PeriodStart string `json:"period_start"`
}

// Allowance returns how many points the caller may still give this month.
func Allowance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		companyID, memberID, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		available, periodStart, err := svc.AvailableAllowance(ctx, companyID, memberID, time.Now().UTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// periodStart carries the company's location, so the label matches
		// the boundary the allowance was computed against.
		responses.WriteSuccess(w, allowanceResponse{
			Available:   available,
			PeriodStart: periodStart.Format("2006-01"),
		})
	}
}

// RecentActivity lists the company feed, newest first.
func RecentActivity(svc recognition.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "recognition service unavailable"))
			return
		}

		companyID, _, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit := 0
		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = value
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		rows, next, err := svc.RecentActivity(ctx, companyID, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := map[string]any{"transactions": rows}
		if next != nil {
			resp["next_cursor"] = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, resp)
	}
}

func identityFromContext(ctx context.Context) (companyID, memberID uuid.UUID, err error) {
	companyID, err = uuid.Parse(middleware.CompanyIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "company context missing")
	}
	memberID, err = uuid.Parse(middleware.MemberIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "member context missing")
	}
	return companyID, memberID, nil
}
