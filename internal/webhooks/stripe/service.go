package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/heykudos/kudos-backend/internal/billing"
	"github.com/heykudos/kudos-backend/internal/seats"
	"github.com/heykudos/kudos-backend/pkg/enums"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/logger"
)

type ServiceParams struct {
	Billing billing.Service
	Seats   seats.Service
	Logger  *logger.Logger
}

// Service applies Stripe subscription lifecycle events to the company's
// billing state.
type Service struct {
	billing billing.Service
	seats   seats.Service
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Billing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing service required")
	}
	if params.Seats == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "seats service required")
	}
	return &Service{
		billing: params.Billing,
		seats:   params.Seats,
		logg:    params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.activateFromCheckout(ctx, &session)

	case stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncStatus(ctx, &sub, statusFromStripe(sub.Status))

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncStatus(ctx, &sub, enums.SubscriptionStatusCanceled)

	default:
		return nil
	}
}

func (s *Service) activateFromCheckout(ctx context.Context, session *stripe.CheckoutSession) error {
	companyID, err := companyIDFromMetadata(session.Metadata, session.ClientReferenceID)
	if err != nil {
		return err
	}
	if session.Subscription == nil || session.Subscription.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no subscription")
	}
	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	if err := s.billing.ActivateSubscription(ctx, companyID, customerID, session.Subscription.ID); err != nil {
		return err
	}

	// The first reconcile after activation pushes the real billable count;
	// a failure here queues a retry rather than failing the webhook.
	if _, err := s.seats.ReconcileSubscriptionQuantity(ctx, companyID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithCompanyID(ctx, companyID.String()), "post-activation seat reconcile failed")
	}
	return nil
}

func (s *Service) syncStatus(ctx context.Context, sub *stripe.Subscription, status enums.SubscriptionStatus) error {
	companyID, err := companyIDFromMetadata(sub.Metadata, "")
	if err != nil {
		return err
	}
	return s.billing.UpdateSubscriptionStatus(ctx, companyID, status)
}

func companyIDFromMetadata(metadata map[string]string, fallback string) (uuid.UUID, error) {
	raw := metadata["company_id"]
	if raw == "" {
		raw = fallback
	}
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "company id missing from event metadata")
	}
	companyID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid company id in event metadata")
	}
	return companyID, nil
}

func statusFromStripe(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return enums.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return enums.SubscriptionStatusCanceled
	default:
		return enums.SubscriptionStatusInactive
	}
}
