package seatmigration

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
)

// Repository manages migration audit rows and the legacy slot counts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error)
	// ListSubscribedCompanies returns companies with an active Stripe
	// subscription, the population the migration applies to.
	ListSubscribedCompanies(ctx context.Context) ([]models.Company, error)
	UpdateTeamSlots(ctx context.Context, companyID uuid.UUID, slots int) error
	CreateEvent(ctx context.Context, event *models.SeatMigrationEvent) error
	LatestEvent(ctx context.Context, companyID uuid.UUID) (*models.SeatMigrationEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a migration repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).
		Where("id = ?", companyID).
		First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *repository) ListSubscribedCompanies(ctx context.Context) ([]models.Company, error) {
	var rows []models.Company
	if err := r.db.WithContext(ctx).
		Where("stripe_subscription_id IS NOT NULL AND subscription_status = ?", enums.SubscriptionStatusActive).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateTeamSlots(ctx context.Context, companyID uuid.UUID, slots int) error {
	return r.db.WithContext(ctx).
		Model(&models.Company{}).
		Where("id = ?", companyID).
		Update("team_slots", slots).Error
}

func (r *repository) CreateEvent(ctx context.Context, event *models.SeatMigrationEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) LatestEvent(ctx context.Context, companyID uuid.UUID) (*models.SeatMigrationEvent, error) {
	var event models.SeatMigrationEvent
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
