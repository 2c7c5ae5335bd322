package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/heykudos/kudos-backend/pkg/enums"
)

// PointTransaction is an immutable ledger entry. Rows are only ever inserted,
// never updated or deleted, including for deactivated members.
type PointTransaction struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID         uuid.UUID             `gorm:"column:company_id;type:uuid;not null;index"`
	SenderMemberID    uuid.UUID             `gorm:"column:sender_member_id;type:uuid;not null;index"`
	RecipientMemberID uuid.UUID             `gorm:"column:recipient_member_id;type:uuid;not null"`
	Points            int                   `gorm:"column:points;not null"`
	Kind              enums.TransactionKind `gorm:"column:kind;not null;default:'recognition'"`
	Description       string                `gorm:"column:description"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
}
