package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/pagination"
)

type stubRepo struct {
	findCompanyFn func(ctx context.Context, companyID uuid.UUID) (*models.Company, error)
	findMemberFn  func(ctx context.Context, companyID, memberID uuid.UUID) (*models.Member, error)
	debitFn       func(ctx context.Context, companyID, memberID uuid.UUID, amount int) (int, bool, error)
	creditFn      func(ctx context.Context, companyID, memberID uuid.UUID, amount int) error
	createFn      func(ctx context.Context, row *models.PointTransaction) error
	sumFn         func(ctx context.Context, companyID, senderID uuid.UUID, since time.Time) (int, error)
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	if s.findCompanyFn != nil {
		return s.findCompanyFn(ctx, companyID)
	}
	return &models.Company{ID: companyID, MonthlyAllowance: 100}, nil
}

func (s *stubRepo) FindMember(ctx context.Context, companyID, memberID uuid.UUID) (*models.Member, error) {
	if s.findMemberFn != nil {
		return s.findMemberFn(ctx, companyID, memberID)
	}
	return &models.Member{ID: memberID, CompanyID: companyID, Points: 100, Status: enums.MemberStatusActive}, nil
}

func (s *stubRepo) DebitPoints(ctx context.Context, companyID, memberID uuid.UUID, amount int) (int, bool, error) {
	if s.debitFn != nil {
		return s.debitFn(ctx, companyID, memberID, amount)
	}
	return 100 - amount, true, nil
}

func (s *stubRepo) CreditPoints(ctx context.Context, companyID, memberID uuid.UUID, amount int) error {
	if s.creditFn != nil {
		return s.creditFn(ctx, companyID, memberID, amount)
	}
	return nil
}

func (s *stubRepo) CreateTransaction(ctx context.Context, row *models.PointTransaction) error {
	if s.createFn != nil {
		return s.createFn(ctx, row)
	}
	return nil
}

func (s *stubRepo) SumSentSince(ctx context.Context, companyID, senderID uuid.UUID, since time.Time) (int, error) {
	if s.sumFn != nil {
		return s.sumFn(ctx, companyID, senderID, since)
	}
	return 0, nil
}

func (s *stubRepo) ListRecentByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PointTransaction, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, TransactionRunner: stubTx{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func recognitionInput() TransferInput {
	return TransferInput{
		CompanyID:         uuid.New(),
		SenderMemberID:    uuid.New(),
		RecipientMemberID: uuid.New(),
		Points:            10,
		Kind:              enums.TransactionKindRecognition,
	}
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t, &stubRepo{})
	for _, points := range []int{0, -5} {
		input := recognitionInput()
		input.Points = points
		if _, err := svc.Transfer(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidAmount) {
			t.Fatalf("points=%d: expected invalid amount, got %v", points, err)
		}
	}
}

func TestTransferRejectsSelfTransfer(t *testing.T) {
	svc := newTestService(t, &stubRepo{})
	input := recognitionInput()
	input.RecipientMemberID = input.SenderMemberID
	if _, err := svc.Transfer(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidMember) {
		t.Fatalf("expected invalid member, got %v", err)
	}
}

func TestTransferRejectsUnknownRecipient(t *testing.T) {
	input := recognitionInput()
	repo := &stubRepo{
		findMemberFn: func(ctx context.Context, companyID, memberID uuid.UUID) (*models.Member, error) {
			if memberID == input.RecipientMemberID {
				return nil, gorm.ErrRecordNotFound
			}
			return &models.Member{ID: memberID, CompanyID: companyID, Points: 100, Status: enums.MemberStatusActive}, nil
		},
	}
	svc := newTestService(t, repo)
	if _, err := svc.Transfer(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidMember) {
		t.Fatalf("expected invalid member, got %v", err)
	}
}

func TestTransferRejectsDeactivatedRecipient(t *testing.T) {
	input := recognitionInput()
	repo := &stubRepo{
		findMemberFn: func(ctx context.Context, companyID, memberID uuid.UUID) (*models.Member, error) {
			status := enums.MemberStatusActive
			if memberID == input.RecipientMemberID {
				status = enums.MemberStatusDeactivated
			}
			return &models.Member{ID: memberID, CompanyID: companyID, Points: 100, Status: status}, nil
		},
	}
	svc := newTestService(t, repo)
	if _, err := svc.Transfer(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidMember) {
		t.Fatalf("expected invalid member, got %v", err)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	credited := false
	repo := &stubRepo{
		debitFn: func(ctx context.Context, companyID, memberID uuid.UUID, amount int) (int, bool, error) {
			return 0, false, nil
		},
		creditFn: func(ctx context.Context, companyID, memberID uuid.UUID, amount int) error {
			credited = true
			return nil
		},
	}
	svc := newTestService(t, repo)
	if _, err := svc.Transfer(context.Background(), recognitionInput()); !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if credited {
		t.Fatal("recipient must not be credited when debit fails")
	}
}

func TestTransferAllowanceExceeded(t *testing.T) {
	repo := &stubRepo{
		findCompanyFn: func(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
			return &models.Company{ID: companyID, MonthlyAllowance: 100}, nil
		},
		sumFn: func(ctx context.Context, companyID, senderID uuid.UUID, since time.Time) (int, error) {
			return 95, nil
		},
	}
	svc := newTestService(t, repo)
	if _, err := svc.Transfer(context.Background(), recognitionInput()); !pkgerrors.HasCode(err, pkgerrors.CodeAllowanceExceeded) {
		t.Fatalf("expected allowance exceeded, got %v", err)
	}
}

func TestTransferSucceedsAtExactAllowance(t *testing.T) {
	repo := &stubRepo{
		sumFn: func(ctx context.Context, companyID, senderID uuid.UUID, since time.Time) (int, error) {
			return 90, nil
		},
	}
	svc := newTestService(t, repo)
	result, err := svc.Transfer(context.Background(), recognitionInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewSenderBalance != 90 {
		t.Fatalf("expected balance 90, got %d", result.NewSenderBalance)
	}
	if result.Transaction == nil || result.Transaction.Points != 10 {
		t.Fatalf("expected recorded transaction for 10 points, got %+v", result.Transaction)
	}
}

func TestTransferAdminGrantSkipsAllowance(t *testing.T) {
	summed := false
	repo := &stubRepo{
		sumFn: func(ctx context.Context, companyID, senderID uuid.UUID, since time.Time) (int, error) {
			summed = true
			return 0, nil
		},
	}
	svc := newTestService(t, repo)
	input := recognitionInput()
	input.Kind = enums.TransactionKindAdminGrant
	if _, err := svc.Transfer(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summed {
		t.Fatal("admin grants must not consume the monthly allowance")
	}
}

func TestTransferSystemSenderMintsPoints(t *testing.T) {
	input := recognitionInput()
	debited := false
	repo := &stubRepo{
		findMemberFn: func(ctx context.Context, companyID, memberID uuid.UUID) (*models.Member, error) {
			if memberID == input.SenderMemberID {
				return &models.Member{ID: memberID, CompanyID: companyID, IsSystem: true, Status: enums.MemberStatusActive}, nil
			}
			return &models.Member{ID: memberID, CompanyID: companyID, Status: enums.MemberStatusActive}, nil
		},
		debitFn: func(ctx context.Context, companyID, memberID uuid.UUID, amount int) (int, bool, error) {
			debited = true
			return 0, false, nil
		},
	}
	svc := newTestService(t, repo)
	input.Kind = enums.TransactionKindMonthlyAllocation
	if _, err := svc.Transfer(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if debited {
		t.Fatal("system sender must not be debited")
	}
}

func TestTransferRollsUpRepoFailures(t *testing.T) {
	repo := &stubRepo{
		createFn: func(ctx context.Context, row *models.PointTransaction) error {
			return gorm.ErrInvalidDB
		},
	}
	svc := newTestService(t, repo)
	if _, err := svc.Transfer(context.Background(), recognitionInput()); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestAvailableAllowanceFloorsAtZero(t *testing.T) {
	repo := &stubRepo{
		findCompanyFn: func(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
			return &models.Company{ID: companyID, MonthlyAllowance: 100}, nil
		},
		sumFn: func(ctx context.Context, companyID, senderID uuid.UUID, since time.Time) (int, error) {
			return 130, nil
		},
	}
	svc := newTestService(t, repo)
	available, _, err := svc.AvailableAllowance(context.Background(), uuid.New(), uuid.New(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available != 0 {
		t.Fatalf("expected 0 available, got %d", available)
	}
}

func TestAvailableAllowanceRemaining(t *testing.T) {
	repo := &stubRepo{
		sumFn: func(ctx context.Context, companyID, senderID uuid.UUID, since time.Time) (int, error) {
			return 40, nil
		},
	}
	svc := newTestService(t, repo)
	available, periodStart, err := svc.AvailableAllowance(context.Background(), uuid.New(), uuid.New(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if available != 60 {
		t.Fatalf("expected 60 available, got %d", available)
	}
	if periodStart.Day() != 1 {
		t.Fatalf("expected first-of-month period start, got %s", periodStart)
	}
}
