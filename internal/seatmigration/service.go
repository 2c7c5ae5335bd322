package seatmigration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/internal/seats"
	"github.com/heykudos/kudos-backend/pkg/db/models"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/logger"
	"github.com/heykudos/kudos-backend/pkg/settings"
	"github.com/heykudos/kudos-backend/pkg/stripe"
)

// Service moves companies from legacy fixed team slots to live per-seat
// billing.
type Service interface {
	Analyze(ctx context.Context) ([]CompanyPlan, error)
	Migrate(ctx context.Context, companyID uuid.UUID) (*MigrateResult, error)
}

// CompanyPlan compares one company's legacy slot count against its live
// billable seats.
type CompanyPlan struct {
	CompanyID uuid.UUID
	Name      string
	TeamSlots int
	LiveSeats int
	Mismatch  bool
	// MonthlyCostDelta is the billing change in currency units if the live
	// count replaced the slot count. Negative means the company saves money.
	MonthlyCostDelta decimal.Decimal
}

// MigrateResult reports one migration.
type MigrateResult struct {
	CompanyID     uuid.UUID
	PreviousSlots int
	NewQuantity   int
	// AlreadyMigrated is set when slots and live count matched and nothing
	// was pushed or audited.
	AlreadyMigrated bool
	// MigratedAt is the audit timestamp of the run that brought the company
	// in sync, present only on the already-migrated path.
	MigratedAt *time.Time
}

// ServiceParams groups dependencies for the migration service.
type ServiceParams struct {
	Repo              Repository
	Seats             seats.Service
	Updater           stripe.SubscriptionUpdater
	Settings          settings.Provider
	DefaultPriceCents int
	Logger            *logger.Logger
}

type service struct {
	repo              Repository
	seats             seats.Service
	updater           stripe.SubscriptionUpdater
	settings          settings.Provider
	defaultPriceCents int
	logg              *logger.Logger
}

// NewService wires a migration service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("migration repository required")
	}
	if params.Seats == nil {
		return nil, fmt.Errorf("seats service required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	return &service{
		repo:              params.Repo,
		seats:             params.Seats,
		updater:           params.Updater,
		settings:          params.Settings,
		defaultPriceCents: params.DefaultPriceCents,
		logg:              params.Logger,
	}, nil
}

// Analyze lists every actively subscribed company whose legacy slot count
// disagrees with its live billable seats, estimating the monthly cost change.
func (s *service) Analyze(ctx context.Context) ([]CompanyPlan, error) {
	priceCents, err := settings.PricePerSeatCents(ctx, s.settings, s.defaultPriceCents)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read seat price")
	}
	pricePerSeat := decimal.NewFromInt(int64(priceCents)).Div(decimal.NewFromInt(100))

	companies, err := s.repo.ListSubscribedCompanies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscribed companies")
	}

	plans := make([]CompanyPlan, 0, len(companies))
	for _, company := range companies {
		live, err := s.seats.CurrentBillableSeatCount(ctx, company.ID)
		if err != nil {
			return nil, err
		}
		delta := decimal.NewFromInt(int64(live - company.TeamSlots)).Mul(pricePerSeat)
		plans = append(plans, CompanyPlan{
			CompanyID:        company.ID,
			Name:             company.Name,
			TeamSlots:        company.TeamSlots,
			LiveSeats:        live,
			Mismatch:         live != company.TeamSlots,
			MonthlyCostDelta: delta,
		})
	}
	return plans, nil
}

// Migrate pushes the live seat count to Stripe, records an audit row and
// replaces the legacy slot count. Running it again once slots and live count
// agree is a no-op: no audit row, no Stripe call.
func (s *service) Migrate(ctx context.Context, companyID uuid.UUID) (*MigrateResult, error) {
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
	if !company.HasSubscription() {
		return nil, pkgerrors.New(pkgerrors.CodeBillingSetupRequired, "company has no subscription to migrate")
	}

	live, err := s.seats.CurrentBillableSeatCount(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if live == company.TeamSlots {
		result := &MigrateResult{
			CompanyID:       companyID,
			PreviousSlots:   company.TeamSlots,
			NewQuantity:     live,
			AlreadyMigrated: true,
		}
		last, err := s.repo.LatestEvent(ctx, companyID)
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last migration event")
		}
		if last != nil {
			result.MigratedAt = &last.CreatedAt
		}
		return result, nil
	}

	if s.updater == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe updater not configured")
	}
	if err := s.updater.UpdateQuantity(ctx, *company.StripeSubscriptionID, live); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSubscriptionSync, err, "push migrated seat quantity")
	}

	event := &models.SeatMigrationEvent{
		CompanyID:        companyID,
		PreviousQuantity: company.TeamSlots,
		NewQuantity:      live,
		PreviousSlots:    company.TeamSlots,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record migration event")
	}
	if err := s.repo.UpdateTeamSlots(ctx, companyID, live); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update team slots")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithCompanyID(ctx, companyID.String()),
			fmt.Sprintf("seat migration: %d slots -> %d live seats", company.TeamSlots, live))
	}
	return &MigrateResult{
		CompanyID:     companyID,
		PreviousSlots: company.TeamSlots,
		NewQuantity:   live,
	}, nil
}
