package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/heykudos/kudos-backend/pkg/enums"
)

// Member is one person's account within a company. Deactivated members are
// retained so transaction history stays intact; they are never hard-deleted.
type Member struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID   uuid.UUID          `gorm:"column:company_id;type:uuid;not null;index"`
	UserID      uuid.UUID          `gorm:"column:user_id;type:uuid;not null"`
	DisplayName string             `gorm:"column:display_name;not null"`
	Email       string             `gorm:"column:email;not null"`
	Department  *string            `gorm:"column:department"`
	Points      int                `gorm:"column:points;not null;default:0"`
	IsAdmin     bool               `gorm:"column:is_admin;not null;default:false"`
	IsSystem    bool               `gorm:"column:is_system;not null;default:false"`
	Status      enums.MemberStatus `gorm:"column:status;not null;default:'invited'"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Billable reports whether the member counts toward the company's seat count.
func (m *Member) Billable() bool {
	return m != nil && !m.IsAdmin && !m.IsSystem && m.Status == enums.MemberStatusActive
}
