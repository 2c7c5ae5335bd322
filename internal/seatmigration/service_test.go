package seatmigration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/internal/seats"
	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/settings"
)

type stubRepo struct {
	companies []models.Company
	events    []*models.SeatMigrationEvent
	slots     map[uuid.UUID]int
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	for i := range s.companies {
		if s.companies[i].ID == companyID {
			return &s.companies[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) ListSubscribedCompanies(ctx context.Context) ([]models.Company, error) {
	return s.companies, nil
}

func (s *stubRepo) UpdateTeamSlots(ctx context.Context, companyID uuid.UUID, slots int) error {
	if s.slots == nil {
		s.slots = map[uuid.UUID]int{}
	}
	s.slots[companyID] = slots
	for i := range s.companies {
		if s.companies[i].ID == companyID {
			s.companies[i].TeamSlots = slots
		}
	}
	return nil
}

func (s *stubRepo) CreateEvent(ctx context.Context, event *models.SeatMigrationEvent) error {
	event.CreatedAt = time.Now().UTC()
	s.events = append(s.events, event)
	return nil
}

func (s *stubRepo) LatestEvent(ctx context.Context, companyID uuid.UUID) (*models.SeatMigrationEvent, error) {
	if len(s.events) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return s.events[len(s.events)-1], nil
}

type stubSeats struct {
	counts map[uuid.UUID]int
}

func (s *stubSeats) CurrentBillableSeatCount(ctx context.Context, companyID uuid.UUID) (int, error) {
	return s.counts[companyID], nil
}

func (s *stubSeats) ReconcileSubscriptionQuantity(ctx context.Context, companyID uuid.UUID) (*seats.ReconcileResult, error) {
	return &seats.ReconcileResult{}, nil
}

func (s *stubSeats) RetryFailedSyncs(ctx context.Context, batchSize int) (*seats.RetryReport, error) {
	return &seats.RetryReport{}, nil
}

type stubUpdater struct {
	calls []int
}

func (s *stubUpdater) UpdateQuantity(ctx context.Context, subscriptionID string, quantity int) error {
	s.calls = append(s.calls, quantity)
	return nil
}

func subscribedCompany(slots int) models.Company {
	sub := "sub_" + uuid.NewString()
	return models.Company{
		ID:                   uuid.New(),
		Name:                 "Acme",
		TeamSlots:            slots,
		StripeSubscriptionID: &sub,
		SubscriptionStatus:   enums.SubscriptionStatusActive,
	}
}

func newTestService(t *testing.T, repo *stubRepo, counts map[uuid.UUID]int, updater *stubUpdater) Service {
	t.Helper()
	params := ServiceParams{
		Repo:              repo,
		Seats:             &stubSeats{counts: counts},
		Settings:          settings.Static{settings.KeyPricePerSeatCents: "299"},
		DefaultPriceCents: 299,
	}
	if updater != nil {
		params.Updater = updater
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestAnalyzeFlagsSlotMismatch(t *testing.T) {
	company := subscribedCompany(10)
	repo := &stubRepo{companies: []models.Company{company}}
	svc := newTestService(t, repo, map[uuid.UUID]int{company.ID: 7}, nil)

	plans, err := svc.Analyze(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected one plan, got %d", len(plans))
	}
	plan := plans[0]
	if !plan.Mismatch || plan.TeamSlots != 10 || plan.LiveSeats != 7 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	// 3 fewer seats at $2.99 each.
	want := decimal.RequireFromString("-8.97")
	if !plan.MonthlyCostDelta.Equal(want) {
		t.Fatalf("expected delta %s, got %s", want, plan.MonthlyCostDelta)
	}
}

func TestAnalyzeMatchingCompanyNotFlagged(t *testing.T) {
	company := subscribedCompany(5)
	repo := &stubRepo{companies: []models.Company{company}}
	svc := newTestService(t, repo, map[uuid.UUID]int{company.ID: 5}, nil)

	plans, err := svc.Analyze(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plans[0].Mismatch || !plans[0].MonthlyCostDelta.IsZero() {
		t.Fatalf("expected clean plan, got %+v", plans[0])
	}
}

func TestMigratePushesAuditsAndUpdatesSlots(t *testing.T) {
	company := subscribedCompany(10)
	repo := &stubRepo{companies: []models.Company{company}}
	updater := &stubUpdater{}
	svc := newTestService(t, repo, map[uuid.UUID]int{company.ID: 7}, updater)

	result, err := svc.Migrate(context.Background(), company.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AlreadyMigrated || result.PreviousSlots != 10 || result.NewQuantity != 7 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(updater.calls) != 1 || updater.calls[0] != 7 {
		t.Fatalf("expected one push of 7, got %+v", updater.calls)
	}
	if len(repo.events) != 1 || repo.events[0].PreviousSlots != 10 || repo.events[0].NewQuantity != 7 {
		t.Fatalf("unexpected audit rows: %+v", repo.events)
	}
	if repo.slots[company.ID] != 7 {
		t.Fatalf("team slots not updated: %+v", repo.slots)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	company := subscribedCompany(10)
	repo := &stubRepo{companies: []models.Company{company}}
	updater := &stubUpdater{}
	svc := newTestService(t, repo, map[uuid.UUID]int{company.ID: 7}, updater)

	if _, err := svc.Migrate(context.Background(), company.ID); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	second, err := svc.Migrate(context.Background(), company.ID)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if !second.AlreadyMigrated {
		t.Fatalf("expected no-op on second run, got %+v", second)
	}
	if second.MigratedAt == nil || !second.MigratedAt.Equal(repo.events[0].CreatedAt) {
		t.Fatalf("expected audit timestamp of the first run, got %v", second.MigratedAt)
	}
	if len(updater.calls) != 1 {
		t.Fatalf("second run must not call stripe, got %d calls", len(updater.calls))
	}
	if len(repo.events) != 1 {
		t.Fatalf("second run must not audit again, got %d events", len(repo.events))
	}
}

func TestMigrateRequiresSubscription(t *testing.T) {
	company := models.Company{ID: uuid.New(), Name: "NoSub", TeamSlots: 4}
	repo := &stubRepo{companies: []models.Company{company}}
	svc := newTestService(t, repo, map[uuid.UUID]int{company.ID: 4}, nil)

	_, err := svc.Migrate(context.Background(), company.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeBillingSetupRequired) {
		t.Fatalf("expected billing setup required, got %v", err)
	}
}
