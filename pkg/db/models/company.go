package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/heykudos/kudos-backend/pkg/enums"
)

// Company holds per-tenant configuration plus the billing state that the seat
// reconciliation flow keeps in sync with Stripe.
type Company struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                 string                   `gorm:"column:name;not null"`
	Timezone             *string                  `gorm:"column:timezone"`
	MonthlyAllowance     int                      `gorm:"column:monthly_allowance;not null;default:100"`
	TeamSlots            int                      `gorm:"column:team_slots;not null;default:0"`
	StripeCustomerID     *string                  `gorm:"column:stripe_customer_id"`
	StripeSubscriptionID *string                  `gorm:"column:stripe_subscription_id"`
	SubscriptionStatus   enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:'inactive'"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// HasSubscription reports whether billing has ever been set up for the company.
func (c *Company) HasSubscription() bool {
	return c != nil && c.StripeSubscriptionID != nil && *c.StripeSubscriptionID != ""
}
