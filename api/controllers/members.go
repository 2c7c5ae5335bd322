package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heykudos/kudos-backend/api/responses"
	"github.com/heykudos/kudos-backend/api/validators"
	"github.com/heykudos/kudos-backend/internal/ledger"
	"github.com/heykudos/kudos-backend/internal/members"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/logger"
)

type inviteMemberPayload struct {
	UserID        string  `json:"user_id" validate:"required,uuid"`
	DisplayName   string  `json:"display_name" validate:"required,max=200"`
	Email         string  `json:"email" validate:"required,email"`
	Department    *string `json:"department,omitempty" validate:"omitempty,max=100"`
	IsAdmin       bool    `json:"is_admin"`
	PendingInvite bool    `json:"pending_invite"`
}

type inviteMemberResponse struct {
	Member          any    `json:"member,omitempty"`
	BillingRequired bool   `json:"billing_required"`
	CheckoutURL     string `json:"checkout_url,omitempty"`
}

// InviteMember creates a member, or answers with a checkout URL when billing
// setup must happen first.
func InviteMember(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "members service unavailable"))
			return
		}

		companyID, _, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload inviteMemberPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		userID, err := uuid.Parse(payload.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		result, err := svc.Invite(ctx, members.InviteInput{
			CompanyID:     companyID,
			UserID:        userID,
			DisplayName:   payload.DisplayName,
			Email:         payload.Email,
			Department:    payload.Department,
			IsAdmin:       payload.IsAdmin,
			PendingInvite: payload.PendingInvite,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if result.BillingRequired {
			responses.WriteSuccessStatus(w, http.StatusPaymentRequired, inviteMemberResponse{
				BillingRequired: true,
				CheckoutURL:     result.CheckoutURL,
			})
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, inviteMemberResponse{Member: result.Member})
	}
}

// DeactivateMember retires a member's seat.
func DeactivateMember(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return memberStatusHandler(svc, logg, func(ctx requestContext) error {
		return svc.Deactivate(ctx.ctx, ctx.companyID, ctx.memberID)
	})
}

// ReactivateMember restores a deactivated member.
func ReactivateMember(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return memberStatusHandler(svc, logg, func(ctx requestContext) error {
		return svc.Reactivate(ctx.ctx, ctx.companyID, ctx.memberID)
	})
}

type completeBulkImportPayload struct {
	MemberIDs []string `json:"member_ids" validate:"required,min=1,dive,uuid"`
}

// CompleteBulkImport activates a batch of invited members.
func CompleteBulkImport(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "members service unavailable"))
			return
		}

		companyID, _, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload completeBulkImportPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ids := make([]uuid.UUID, 0, len(payload.MemberIDs))
		for _, raw := range payload.MemberIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member id"))
				return
			}
			ids = append(ids, id)
		}

		result, err := svc.CompleteBulkImport(ctx, companyID, ids)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type adjustPointsPayload struct {
	Points      int    `json:"points" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=500"`
}

// GrantMemberPoints credits a member from the company pool.
func GrantMemberPoints(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return adjustPointsHandler(svc, logg, func(ctx context.Context, input members.AdjustPointsInput) (*ledger.TransferResult, error) {
		return svc.GrantPoints(ctx, input)
	})
}

// RevokeMemberPoints takes previously granted points back.
func RevokeMemberPoints(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return adjustPointsHandler(svc, logg, func(ctx context.Context, input members.AdjustPointsInput) (*ledger.TransferResult, error) {
		return svc.RevokePoints(ctx, input)
	})
}

// ListMembers returns the company roster.
func ListMembers(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "members service unavailable"))
			return
		}
		companyID, _, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rows, err := svc.List(ctx, companyID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"members": rows})
	}
}

type requestContext struct {
	ctx       context.Context
	companyID uuid.UUID
	memberID  uuid.UUID
}

func memberStatusHandler(svc members.Service, logg *logger.Logger, action func(requestContext) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "members service unavailable"))
			return
		}

		companyID, _, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member id"))
			return
		}

		if err := action(requestContext{ctx: ctx, companyID: companyID, memberID: memberID}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

func adjustPointsHandler(svc members.Service, logg *logger.Logger, action func(context.Context, members.AdjustPointsInput) (*ledger.TransferResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "members service unavailable"))
			return
		}

		companyID, _, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member id"))
			return
		}

		var payload adjustPointsPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := action(ctx, members.AdjustPointsInput{
			CompanyID:   companyID,
			MemberID:    memberID,
			Points:      payload.Points,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"transaction_id": result.Transaction.ID,
		})
	}
}
