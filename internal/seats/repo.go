package seats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
)

// Repository manages seat counting and the sync-retry queue.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error)
	// CountBillable counts active members that occupy a paid seat. Admins
	// and the company system account ride free.
	CountBillable(ctx context.Context, companyID uuid.UUID) (int, error)
	EnqueueSyncFailure(ctx context.Context, failure *models.SeatSyncFailure) error
	ListUnresolvedFailures(ctx context.Context, limit int) ([]models.SeatSyncFailure, error)
	CountUnresolvedFailures(ctx context.Context) (int, error)
	MarkFailureResolved(ctx context.Context, failureID uuid.UUID) error
	RecordFailureAttempt(ctx context.Context, failureID uuid.UUID, lastError string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a seats repository bound to the provided database.
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

func (r *repository) CountBillable(ctx context.Context, companyID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("company_id = ? AND status = ? AND is_admin = ? AND is_system = ?",
			companyID, enums.MemberStatusActive, false, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *repository) EnqueueSyncFailure(ctx context.Context, failure *models.SeatSyncFailure) error {
	return r.db.WithContext(ctx).Create(failure).Error
}

func (r *repository) ListUnresolvedFailures(ctx context.Context, limit int) ([]models.SeatSyncFailure, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.SeatSyncFailure
	if err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountUnresolvedFailures(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SeatSyncFailure{}).
		Where("resolved_at IS NULL").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *repository) MarkFailureResolved(ctx context.Context, failureID uuid.UUID) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.SeatSyncFailure{}).
		Where("id = ?", failureID).
		Updates(map[string]any{
			"resolved_at": &now,
			"attempts":    gorm.Expr("attempts + 1"),
		}).Error
}

func (r *repository) RecordFailureAttempt(ctx context.Context, failureID uuid.UUID, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.SeatSyncFailure{}).
		Where("id = ?", failureID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		}).Error
}
