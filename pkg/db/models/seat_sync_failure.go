package models

import (
	"time"

	"github.com/google/uuid"
)

// SeatSyncFailure queues a Stripe seat-quantity push that could not be
// delivered. The retry job recomputes the live seat count at replay time, so
// Quantity is diagnostic, not authoritative.
type SeatSyncFailure struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID  uuid.UUID  `gorm:"column:company_id;type:uuid;not null;index"`
	Quantity   int        `gorm:"column:quantity;not null"`
	Attempts   int        `gorm:"column:attempts;not null;default:0"`
	LastError  string     `gorm:"column:last_error"`
	ResolvedAt *time.Time `gorm:"column:resolved_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
