package models

import (
	"time"

	"github.com/google/uuid"
)

// SeatMigrationEvent audits a one-time reconciliation of a company's legacy
// fixed slot count against its live billable seat count.
type SeatMigrationEvent struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID        uuid.UUID `gorm:"column:company_id;type:uuid;not null;index"`
	PreviousQuantity int       `gorm:"column:previous_quantity;not null"`
	NewQuantity      int       `gorm:"column:new_quantity;not null"`
	PreviousSlots    int       `gorm:"column:previous_slots;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}
