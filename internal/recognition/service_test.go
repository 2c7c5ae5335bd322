package recognition

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/internal/ledger"
	"github.com/heykudos/kudos-backend/pkg/db/models"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/pagination"
)

var stubTransaction = models.PointTransaction{ID: uuid.New(), Points: 50}

type stubLedgerRepo struct {
	recent []models.PointTransaction
}

func (s *stubLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return s }
func (s *stubLedgerRepo) FindCompany(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubLedgerRepo) FindMember(ctx context.Context, companyID, memberID uuid.UUID) (*models.Member, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubLedgerRepo) DebitPoints(ctx context.Context, companyID, memberID uuid.UUID, amount int) (int, bool, error) {
	return 0, false, nil
}
func (s *stubLedgerRepo) CreditPoints(ctx context.Context, companyID, memberID uuid.UUID, amount int) error {
	return nil
}
func (s *stubLedgerRepo) CreateTransaction(ctx context.Context, row *models.PointTransaction) error {
	return nil
}
func (s *stubLedgerRepo) SumSentSince(ctx context.Context, companyID, senderID uuid.UUID, since time.Time) (int, error) {
	return 0, nil
}
func (s *stubLedgerRepo) ListRecentByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PointTransaction, *pagination.Cursor, error) {
	return s.recent, nil, nil
}

type stubLedger struct {
	available  int
	allowErr   error
	transferFn func(ctx context.Context, input ledger.TransferInput) (*ledger.TransferResult, error)
	transfers  []ledger.TransferInput
}

func (s *stubLedger) Transfer(ctx context.Context, input ledger.TransferInput) (*ledger.TransferResult, error) {
	s.transfers = append(s.transfers, input)
	if s.transferFn != nil {
		return s.transferFn(ctx, input)
	}
	return &ledger.TransferResult{
		Transaction:      &stubTransaction,
		NewSenderBalance: 100 - input.Points*len(s.transfers),
	}, nil
}

func (s *stubLedger) AvailableAllowance(ctx context.Context, companyID, memberID uuid.UUID, asOf time.Time) (int, time.Time, error) {
	return s.available, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), s.allowErr
}

type stubFeed struct {
	broadcasts []string
}

func (s *stubFeed) Broadcast(ctx context.Context, companyID string) {
	s.broadcasts = append(s.broadcasts, companyID)
}

func newTestService(t *testing.T, led *stubLedger, feed *stubFeed) Service {
	t.Helper()
	params := ServiceParams{Ledger: led, LedgerRepo: &stubLedgerRepo{}}
	if feed != nil {
		params.Feed = feed
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func givePointsInput(recipients int) GivePointsInput {
	ids := make([]uuid.UUID, recipients)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return GivePointsInput{
		CompanyID:          uuid.New(),
		SenderMemberID:     uuid.New(),
		RecipientMemberIDs: ids,
		PointsPerRecipient: 50,
		Message:            "great launch",
	}
}

func TestGivePointsMultipleRecipientsWithinAllowance(t *testing.T) {
	led := &stubLedger{available: 100}
	feed := &stubFeed{}
	svc := newTestService(t, led, feed)

	result, err := svc.GivePoints(context.Background(), givePointsInput(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SucceededCount() != 2 || result.FailedCount() != 0 {
		t.Fatalf("expected 2 successes, got %d/%d", result.SucceededCount(), result.FailedCount())
	}
	if len(led.transfers) != 2 {
		t.Fatalf("expected 2 ledger transfers, got %d", len(led.transfers))
	}
	if len(feed.broadcasts) != 1 {
		t.Fatalf("expected one feed broadcast, got %d", len(feed.broadcasts))
	}
}

func TestGivePointsRejectsWhenTotalExceedsAllowance(t *testing.T) {
	led := &stubLedger{available: 100}
	svc := newTestService(t, led, nil)

	input := givePointsInput(2)
	input.PointsPerRecipient = 75
	_, err := svc.GivePoints(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeAllowanceExceeded) {
		t.Fatalf("expected allowance exceeded, got %v", err)
	}
	if len(led.transfers) != 0 {
		t.Fatalf("pre-flight rejection must transfer nothing, got %d transfers", len(led.transfers))
	}
}

func TestGivePointsPartialSuccess(t *testing.T) {
	input := givePointsInput(3)
	bad := input.RecipientMemberIDs[1]
	led := &stubLedger{
		available: 500,
		transferFn: func(ctx context.Context, in ledger.TransferInput) (*ledger.TransferResult, error) {
			if in.RecipientMemberID == bad {
				return nil, pkgerrors.New(pkgerrors.CodeInvalidMember, "recipient is not a member of this company")
			}
			return &ledger.TransferResult{Transaction: &stubTransaction, NewSenderBalance: 10}, nil
		},
	}
	feed := &stubFeed{}
	svc := newTestService(t, led, feed)

	result, err := svc.GivePoints(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SucceededCount() != 2 || result.FailedCount() != 1 {
		t.Fatalf("expected 2 successes and 1 failure, got %d/%d", result.SucceededCount(), result.FailedCount())
	}
	aggregate := result.Err()
	if aggregate == nil {
		t.Fatal("expected aggregate error for the failed recipient")
	}
	for _, outcome := range result.Outcomes {
		if outcome.RecipientMemberID == bad && outcome.Succeeded() {
			t.Fatal("failed recipient reported as succeeded")
		}
	}
	if len(feed.broadcasts) != 1 {
		t.Fatal("feed must broadcast after a partial success")
	}
}

func TestGivePointsNoBroadcastWhenAllFail(t *testing.T) {
	led := &stubLedger{
		available: 500,
		transferFn: func(ctx context.Context, in ledger.TransferInput) (*ledger.TransferResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidMember, "recipient is not a member of this company")
		},
	}
	feed := &stubFeed{}
	svc := newTestService(t, led, feed)

	result, err := svc.GivePoints(context.Background(), givePointsInput(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SucceededCount() != 0 {
		t.Fatalf("expected no successes, got %d", result.SucceededCount())
	}
	if len(feed.broadcasts) != 0 {
		t.Fatal("feed must stay quiet when nothing committed")
	}
}

func TestGivePointsValidation(t *testing.T) {
	svc := newTestService(t, &stubLedger{available: 100}, nil)

	input := givePointsInput(1)
	input.PointsPerRecipient = 0
	if _, err := svc.GivePoints(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	input = givePointsInput(1)
	input.RecipientMemberIDs = nil
	if _, err := svc.GivePoints(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	input = givePointsInput(1)
	input.RecipientMemberIDs = []uuid.UUID{input.SenderMemberID}
	if _, err := svc.GivePoints(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidMember) {
		t.Fatalf("expected invalid member for self recognition, got %v", err)
	}
}

func TestRecentActivityRejectsBadCursor(t *testing.T) {
	svc := newTestService(t, &stubLedger{available: 100}, nil)
	_, _, err := svc.RecentActivity(context.Background(), uuid.New(), pagination.Params{Cursor: "not-a-cursor"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGivePointsDeduplicatesRecipients(t *testing.T) {
	led := &stubLedger{available: 500}
	svc := newTestService(t, led, nil)

	input := givePointsInput(1)
	input.RecipientMemberIDs = append(input.RecipientMemberIDs, input.RecipientMemberIDs[0])
	result, err := svc.GivePoints(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Outcomes) != 1 {
		t.Fatalf("expected duplicate recipient to collapse, got %d outcomes", len(result.Outcomes))
	}
}
