package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
)

// Repository manages the billing fields on companies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error)
	SetSubscription(ctx context.Context, companyID uuid.UUID, customerID, subscriptionID string, status enums.SubscriptionStatus) error
	SetSubscriptionStatus(ctx context.Context, companyID uuid.UUID, status enums.SubscriptionStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
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

func (r *repository) SetSubscription(ctx context.Context, companyID uuid.UUID, customerID, subscriptionID string, status enums.SubscriptionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Company{}).
		Where("id = ?", companyID).
		Updates(map[string]any{
			"stripe_customer_id":     customerID,
			"stripe_subscription_id": subscriptionID,
			"subscription_status":    status,
		}).Error
}

func (r *repository) SetSubscriptionStatus(ctx context.Context, companyID uuid.UUID, status enums.SubscriptionStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Company{}).
		Where("id = ?", companyID).
		Update("subscription_status", status).Error
}
