package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
	"github.com/heykudos/kudos-backend/pkg/pagination"
)

// Repository manages persistence for accounts and the transaction ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error)
	FindMember(ctx context.Context, companyID, memberID uuid.UUID) (*models.Member, error)
	// DebitPoints decrements the sender balance only when the member is
	// active and holds at least amount points. The conditional UPDATE both
	// re-validates the balance at commit time and takes the sender row lock
	// that serializes concurrent transfers from the same account. On a
	// successful debit the returned balance is the post-update value read
	// back from the row, never a stale pre-read.
	DebitPoints(ctx context.Context, companyID, memberID uuid.UUID, amount int) (int, bool, error)
	CreditPoints(ctx context.Context, companyID, memberID uuid.UUID, amount int) error
	CreateTransaction(ctx context.Context, row *models.PointTransaction) error
	// SumSentSince totals allowance-consuming points the sender has given
	// since the period start.
	SumSentSince(ctx context.Context, companyID, senderID uuid.UUID, since time.Time) (int, error)
	ListRecentByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PointTransaction, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
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

func (r *repository) FindMember(ctx context.Context, companyID, memberID uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", memberID, companyID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) DebitPoints(ctx context.Context, companyID, memberID uuid.UUID, amount int) (int, bool, error) {
	var updated models.Member
	result := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "points"}}}).
		Where("id = ? AND company_id = ? AND status = ? AND points >= ?",
			memberID, companyID, enums.MemberStatusActive, amount).
		Update("points", gorm.Expr("points - ?", amount))
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}
	return updated.Points, true, nil
}

func (r *repository) CreditPoints(ctx context.Context, companyID, memberID uuid.UUID, amount int) error {
	return r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ? AND company_id = ?", memberID, companyID).
		Update("points", gorm.Expr("points + ?", amount)).Error
}

func (r *repository) CreateTransaction(ctx context.Context, row *models.PointTransaction) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) SumSentSince(ctx context.Context, companyID, senderID uuid.UUID, since time.Time) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Select("COALESCE(SUM(points), 0)").
		Where("company_id = ? AND sender_member_id = ? AND kind = ? AND created_at >= ?",
			companyID, senderID, enums.TransactionKindRecognition, since).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *repository) ListRecentByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PointTransaction, *pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("company_id = ?", companyID)
	if cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.PointTransaction
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}
