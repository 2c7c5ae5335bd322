package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/internal/seats"
	"github.com/heykudos/kudos-backend/pkg/enums"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/logger"
	"github.com/heykudos/kudos-backend/pkg/stripe"
)

// Service gates member creation on billing setup and records subscription
// state changes.
type Service interface {
	EnsureBillingBeforeFirstMember(ctx context.Context, companyID uuid.UUID) (*GateResult, error)
	ActivateSubscription(ctx context.Context, companyID uuid.UUID, customerID, subscriptionID string) error
	UpdateSubscriptionStatus(ctx context.Context, companyID uuid.UUID, status enums.SubscriptionStatus) error
}

// GateResult tells the caller whether member creation may proceed. When
// billing setup is still needed, CheckoutURL carries the Stripe Checkout
// session the admin must complete first.
type GateResult struct {
	BillingRequired bool
	CheckoutURL     string
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo     Repository
	Seats    seats.Service
	Checkout stripe.CheckoutSessionCreator
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	seats    seats.Service
	checkout stripe.CheckoutSessionCreator
	logg     *logger.Logger
}

// NewService wires a billing service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if params.Seats == nil {
		return nil, fmt.Errorf("seats service required")
	}
	return &service{
		repo:     params.Repo,
		seats:    params.Seats,
		checkout: params.Checkout,
		logg:     params.Logger,
	}, nil
}

// EnsureBillingBeforeFirstMember decides whether a company may add its first
// billable seat. A company with no seats and no active subscription gets a
// checkout URL back instead of permission; the member row must not exist
// until checkout completes.
func (s *service) EnsureBillingBeforeFirstMember(ctx context.Context, companyID uuid.UUID) (*GateResult, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}

	company, err := s.repo.FindCompany(ctx, companyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "company not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load company")
	}

	count, err := s.seats.CurrentBillableSeatCount(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if count > 0 || company.SubscriptionStatus == enums.SubscriptionStatusActive {
		return &GateResult{}, nil
	}

	if s.checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout client not configured")
	}
	customerID := ""
	if company.StripeCustomerID != nil {
		customerID = *company.StripeCustomerID
	}
	url, err := s.checkout.CreateCheckoutSession(ctx, stripe.CheckoutSessionInput{
		CompanyID:        companyID.String(),
		StripeCustomerID: customerID,
		SeatCount:        1,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return &GateResult{BillingRequired: true, CheckoutURL: url}, nil
}

// ActivateSubscription records a completed checkout.
func (s *service) ActivateSubscription(ctx context.Context, companyID uuid.UUID, customerID, subscriptionID string) error {
	if companyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	if subscriptionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id is required")
	}
	if err := s.repo.SetSubscription(ctx, companyID, customerID, subscriptionID, enums.SubscriptionStatusActive); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate subscription")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithCompanyID(ctx, companyID.String()), "subscription activated")
	}
	return nil
}

// UpdateSubscriptionStatus mirrors a provider-side status change.
func (s *service) UpdateSubscriptionStatus(ctx context.Context, companyID uuid.UUID, status enums.SubscriptionStatus) error {
	if companyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid subscription status %q", status))
	}
	if err := s.repo.SetSubscriptionStatus(ctx, companyID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription status")
	}
	return nil
}
