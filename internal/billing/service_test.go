package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/internal/seats"
	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/stripe"
)

type stubRepo struct {
	company       *models.Company
	subscriptions []string
	statuses      []enums.SubscriptionStatus
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	if s.company == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.company, nil
}

func (s *stubRepo) SetSubscription(ctx context.Context, companyID uuid.UUID, customerID, subscriptionID string, status enums.SubscriptionStatus) error {
	s.subscriptions = append(s.subscriptions, subscriptionID)
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubRepo) SetSubscriptionStatus(ctx context.Context, companyID uuid.UUID, status enums.SubscriptionStatus) error {
	s.statuses = append(s.statuses, status)
	return nil
}

type stubSeats struct {
	count int
}

func (s *stubSeats) CurrentBillableSeatCount(ctx context.Context, companyID uuid.UUID) (int, error) {
	return s.count, nil
}

func (s *stubSeats) ReconcileSubscriptionQuantity(ctx context.Context, companyID uuid.UUID) (*seats.ReconcileResult, error) {
	return &seats.ReconcileResult{SeatCount: s.count, Synced: true}, nil
}

func (s *stubSeats) RetryFailedSyncs(ctx context.Context, batchSize int) (*seats.RetryReport, error) {
	return &seats.RetryReport{}, nil
}

type stubCheckout struct {
	url   string
	calls []stripe.CheckoutSessionInput
}

func (s *stubCheckout) CreateCheckoutSession(ctx context.Context, input stripe.CheckoutSessionInput) (string, error) {
	s.calls = append(s.calls, input)
	return s.url, nil
}

func newTestService(t *testing.T, repo *stubRepo, seatCount int, checkout *stubCheckout) Service {
	t.Helper()
	params := ServiceParams{Repo: repo, Seats: &stubSeats{count: seatCount}}
	if checkout != nil {
		params.Checkout = checkout
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestGateRequiresCheckoutForFirstSeat(t *testing.T) {
	repo := &stubRepo{company: &models.Company{ID: uuid.New(), SubscriptionStatus: enums.SubscriptionStatusInactive}}
	checkout := &stubCheckout{url: "https://checkout.stripe.com/c/pay/cs_test"}
	svc := newTestService(t, repo, 0, checkout)

	result, err := svc.EnsureBillingBeforeFirstMember(context.Background(), repo.company.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.BillingRequired || result.CheckoutURL != checkout.url {
		t.Fatalf("expected checkout gate, got %+v", result)
	}
	if len(checkout.calls) != 1 || checkout.calls[0].CompanyID != repo.company.ID.String() {
		t.Fatalf("unexpected checkout calls: %+v", checkout.calls)
	}
}

func TestGatePassesWithExistingSeats(t *testing.T) {
	repo := &stubRepo{company: &models.Company{ID: uuid.New(), SubscriptionStatus: enums.SubscriptionStatusInactive}}
	checkout := &stubCheckout{url: "https://example.com"}
	svc := newTestService(t, repo, 3, checkout)

	result, err := svc.EnsureBillingBeforeFirstMember(context.Background(), repo.company.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BillingRequired {
		t.Fatalf("gate must pass with existing seats, got %+v", result)
	}
	if len(checkout.calls) != 0 {
		t.Fatal("no checkout session expected")
	}
}

func TestGatePassesWithActiveSubscription(t *testing.T) {
	repo := &stubRepo{company: &models.Company{ID: uuid.New(), SubscriptionStatus: enums.SubscriptionStatusActive}}
	svc := newTestService(t, repo, 0, nil)

	result, err := svc.EnsureBillingBeforeFirstMember(context.Background(), repo.company.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BillingRequired {
		t.Fatalf("active subscription must pass the gate, got %+v", result)
	}
}

func TestGateUnknownCompany(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, 0, nil)
	if _, err := svc.EnsureBillingBeforeFirstMember(context.Background(), uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestActivateSubscription(t *testing.T) {
	repo := &stubRepo{company: &models.Company{ID: uuid.New()}}
	svc := newTestService(t, repo, 0, nil)

	if err := svc.ActivateSubscription(context.Background(), repo.company.ID, "cus_1", "sub_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.subscriptions) != 1 || repo.subscriptions[0] != "sub_1" {
		t.Fatalf("subscription not recorded: %+v", repo.subscriptions)
	}
	if repo.statuses[0] != enums.SubscriptionStatusActive {
		t.Fatalf("expected active status, got %v", repo.statuses[0])
	}

	if err := svc.ActivateSubscription(context.Background(), repo.company.ID, "cus_1", ""); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty subscription id, got %v", err)
	}
}

func TestUpdateSubscriptionStatusRejectsUnknownValue(t *testing.T) {
	repo := &stubRepo{company: &models.Company{ID: uuid.New()}}
	svc := newTestService(t, repo, 0, nil)

	if err := svc.UpdateSubscriptionStatus(context.Background(), repo.company.ID, enums.SubscriptionStatus("paused")); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.UpdateSubscriptionStatus(context.Background(), repo.company.ID, enums.SubscriptionStatusPastDue); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
