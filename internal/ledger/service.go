package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/internal/allowance"
	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the atomic point movement primitives.
type Service interface {
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
	AvailableAllowance(ctx context.Context, companyID, memberID uuid.UUID, asOf time.Time) (int, time.Time, error)
}

// TransferInput captures one point movement between two accounts.
type TransferInput struct {
	CompanyID         uuid.UUID
	SenderMemberID    uuid.UUID
	RecipientMemberID uuid.UUID
	Points            int
	Kind              enums.TransactionKind
	Description       string
}

// TransferResult reports the committed transaction and the sender's balance
// after the debit.
type TransferResult struct {
	Transaction      *models.PointTransaction
	NewSenderBalance int
}

// ServiceParams groups dependencies for the ledger service.
type ServiceParams struct {
	Repo              Repository
	TransactionRunner txRunner
	Metrics           *metrics.RecognitionMetrics
}

type service struct {
	repo    Repository
	tx      txRunner
	metrics *metrics.RecognitionMetrics
}

// NewService wires a ledger service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.TransactionRunner,
		metrics: params.Metrics,
	}, nil
}

// Transfer moves points between two accounts of the same company. The debit,
// the credit and the transaction row commit together or not at all. Balance
// and allowance are re-validated inside the transaction: the conditional
// debit serializes concurrent transfers from the same sender on its row lock,
// so the allowance sum observed afterwards already includes every earlier
// committed transfer.
func (s *service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := validateTransferInput(input); err != nil {
		s.observe("rejected", 0)
		return nil, err
	}

	var result *TransferResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		company, err := repo.FindCompany(ctx, input.CompanyID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "company not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load company")
		}

		sender, err := loadParty(ctx, repo, input.CompanyID, input.SenderMemberID, "sender")
		if err != nil {
			return err
		}
		recipient, err := loadParty(ctx, repo, input.CompanyID, input.RecipientMemberID, "recipient")
		if err != nil {
			return err
		}

		if !sender.IsSystem && sender.Status != enums.MemberStatusActive {
			return pkgerrors.New(pkgerrors.CodeInvalidMember, "sender is not an active member")
		}
		if !recipient.IsSystem && recipient.Status != enums.MemberStatusActive {
			return pkgerrors.New(pkgerrors.CodeInvalidMember, "recipient is not an active member")
		}

		newBalance := sender.Points
		if !sender.IsSystem {
			// Commit-time balance check. The row lock taken here is what
			// makes the allowance sum below race-free.
			balance, debited, err := repo.DebitPoints(ctx, input.CompanyID, input.SenderMemberID, input.Points)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit sender")
			}
			if !debited {
				return pkgerrors.New(pkgerrors.CodeInsufficientBalance,
					fmt.Sprintf("sender balance below %d points", input.Points))
			}
			newBalance = balance
		}

		if input.Kind.CountsAgainstAllowance() && !sender.IsSystem {
			periodStart := allowance.PeriodStart(time.Now().UTC(), companyTimezone(company))
			spent, err := repo.SumSentSince(ctx, input.CompanyID, input.SenderMemberID, periodStart)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum allowance spend")
			}
			if !allowance.Covers(company.MonthlyAllowance, spent, input.Points) {
				return pkgerrors.New(pkgerrors.CodeAllowanceExceeded,
					fmt.Sprintf("monthly allowance leaves %d points", allowance.Available(company.MonthlyAllowance, spent)))
			}
		}

		if err := repo.CreditPoints(ctx, input.CompanyID, input.RecipientMemberID, input.Points); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit recipient")
		}

		row := &models.PointTransaction{
			CompanyID:         input.CompanyID,
			SenderMemberID:    input.SenderMemberID,
			RecipientMemberID: input.RecipientMemberID,
			Points:            input.Points,
			Kind:              input.Kind,
			Description:       input.Description,
		}
		if err := repo.CreateTransaction(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transaction")
		}

		result = &TransferResult{Transaction: row, NewSenderBalance: newBalance}
		return nil
	})
	if err != nil {
		s.observe("failed", 0)
		return nil, err
	}

	s.observe("success", input.Points)
	return result, nil
}

// AvailableAllowance computes how many points the member may still give this
// calendar month, along with the period boundary in the company's timezone.
// The same computation backs the commit-time re-check inside Transfer.
func (s *service) AvailableAllowance(ctx context.Context, companyID, memberID uuid.UUID, asOf time.Time) (int, time.Time, error) {
	if companyID == uuid.Nil || memberID == uuid.Nil {
		return 0, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "company id and member id are required")
	}

	company, err := s.repo.FindCompany(ctx, companyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, time.Time{}, pkgerrors.New(pkgerrors.CodeNotFound, "company not found")
		}
		return 0, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load company")
	}

	periodStart := allowance.PeriodStart(asOf, companyTimezone(company))
	spent, err := s.repo.SumSentSince(ctx, companyID, memberID, periodStart)
	if err != nil {
		return 0, time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum allowance spend")
	}
	return allowance.Available(company.MonthlyAllowance, spent), periodStart, nil
}

func validateTransferInput(input TransferInput) error {
	if input.CompanyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	if input.SenderMemberID == uuid.Nil || input.RecipientMemberID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sender and recipient are required")
	}
	if input.SenderMemberID == input.RecipientMemberID {
		return pkgerrors.New(pkgerrors.CodeInvalidMember, "sender and recipient must differ")
	}
	if input.Points <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount,
			fmt.Sprintf("points must be positive, got %d", input.Points))
	}
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction kind %q", input.Kind))
	}
	return nil
}

func loadParty(ctx context.Context, repo Repository, companyID, memberID uuid.UUID, role string) (*models.Member, error) {
	member, err := repo.FindMember(ctx, companyID, memberID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidMember,
				fmt.Sprintf("%s is not a member of this company", role))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+role)
	}
	return member, nil
}

func companyTimezone(company *models.Company) string {
	if company == nil || company.Timezone == nil {
		return ""
	}
	return *company.Timezone
}

func (s *service) observe(outcome string, points int) {
	if s.metrics != nil {
		s.metrics.ObserveTransfer(outcome, points)
	}
}
