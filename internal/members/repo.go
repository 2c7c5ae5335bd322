package members

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
)

// Repository manages member rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, member *models.Member) error
	Find(ctx context.Context, companyID, memberID uuid.UUID) (*models.Member, error)
	FindSystemAccount(ctx context.Context, companyID uuid.UUID) (*models.Member, error)
	UpdateStatus(ctx context.Context, companyID, memberID uuid.UUID, from, to enums.MemberStatus) (bool, error)
	ActivateInvited(ctx context.Context, companyID uuid.UUID, memberIDs []uuid.UUID) (int, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Member, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a members repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) Find(ctx context.Context, companyID, memberID uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", memberID, companyID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) FindSystemAccount(ctx context.Context, companyID uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_system = ?", companyID, true).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateStatus flips the member's status only when the current value matches
// from, so concurrent lifecycle calls cannot double-apply.
func (r *repository) UpdateStatus(ctx context.Context, companyID, memberID uuid.UUID, from, to enums.MemberStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ? AND company_id = ? AND status = ?", memberID, companyID, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ActivateInvited(ctx context.Context, companyID uuid.UUID, memberIDs []uuid.UUID) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("company_id = ? AND id IN ? AND status = ?", companyID, memberIDs, enums.MemberStatusInvited).
		Update("status", enums.MemberStatusActive)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *repository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Member, error) {
	var rows []models.Member
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("display_name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
