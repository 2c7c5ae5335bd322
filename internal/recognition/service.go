package recognition

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/heykudos/kudos-backend/internal/ledger"
	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/logger"
	"github.com/heykudos/kudos-backend/pkg/pagination"
)

type feedBroadcaster interface {
	Broadcast(ctx context.Context, companyID string)
}

// Service runs the recognition flow on top of the ledger primitives.
type Service interface {
	GivePoints(ctx context.Context, input GivePointsInput) (*GivePointsResult, error)
	RecentActivity(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PointTransaction, *pagination.Cursor, error)
}

// GivePointsInput is one recognition: the same amount goes to every recipient.
type GivePointsInput struct {
	CompanyID          uuid.UUID
	SenderMemberID     uuid.UUID
	RecipientMemberIDs []uuid.UUID
	PointsPerRecipient int
	Message            string
}

// RecipientOutcome reports what happened for a single recipient.
type RecipientOutcome struct {
	RecipientMemberID uuid.UUID
	TransactionID     uuid.UUID
	Err               error
}

// Succeeded reports whether this recipient's transfer committed.
func (o RecipientOutcome) Succeeded() bool {
	return o.Err == nil
}

// GivePointsResult lists the per-recipient outcomes of a recognition.
// Recognitions are partial-success: one recipient failing does not undo the
// transfers that already committed.
type GivePointsResult struct {
	Outcomes         []RecipientOutcome
	NewSenderBalance int
}

// SucceededCount returns how many transfers committed.
func (r *GivePointsResult) SucceededCount() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Succeeded() {
			count++
		}
	}
	return count
}

// FailedCount returns how many transfers were rejected.
func (r *GivePointsResult) FailedCount() int {
	return len(r.Outcomes) - r.SucceededCount()
}

// Err aggregates every per-recipient failure into one error, or nil when all
// transfers committed.
func (r *GivePointsResult) Err() error {
	var combined error
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			combined = multierr.Append(combined, fmt.Errorf("recipient %s: %w", outcome.RecipientMemberID, outcome.Err))
		}
	}
	return combined
}

// ServiceParams groups dependencies for the recognition service.
type ServiceParams struct {
	Ledger     ledger.Service
	LedgerRepo ledger.Repository
	Feed       feedBroadcaster
	Logger     *logger.Logger
}

type service struct {
	ledger     ledger.Service
	ledgerRepo ledger.Repository
	feed       feedBroadcaster
	logg       *logger.Logger
}

// NewService wires a recognition service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{
		ledger:     params.Ledger,
		ledgerRepo: params.LedgerRepo,
		feed:       params.Feed,
		logg:       params.Logger,
	}, nil
}

// GivePoints gives the same amount to every recipient. The allowance is
// checked once up front against the multiplied total so a recognition the
// sender cannot fully cover transfers nothing; per-recipient failures after
// the pre-flight (an unknown or deactivated recipient) do not undo the
// transfers that already committed.
func (s *service) GivePoints(ctx context.Context, input GivePointsInput) (*GivePointsResult, error) {
	if err := validateGivePoints(input); err != nil {
		return nil, err
	}

	recipients := dedupe(input.RecipientMemberIDs)
	total := input.PointsPerRecipient * len(recipients)

	available, _, err := s.ledger.AvailableAllowance(ctx, input.CompanyID, input.SenderMemberID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if total > available {
		return nil, pkgerrors.New(pkgerrors.CodeAllowanceExceeded,
			fmt.Sprintf("recognition needs %d points but only %d remain this month", total, available))
	}

	result := &GivePointsResult{Outcomes: make([]RecipientOutcome, 0, len(recipients))}
	for _, recipientID := range recipients {
		transfer, err := s.ledger.Transfer(ctx, ledger.TransferInput{
			CompanyID:         input.CompanyID,
			SenderMemberID:    input.SenderMemberID,
			RecipientMemberID: recipientID,
			Points:            input.PointsPerRecipient,
			Kind:              enums.TransactionKindRecognition,
			Description:       input.Message,
		})
		outcome := RecipientOutcome{RecipientMemberID: recipientID, Err: err}
		if err == nil {
			outcome.TransactionID = transfer.Transaction.ID
			result.NewSenderBalance = transfer.NewSenderBalance
		} else if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "recipient_member_id", recipientID.String()),
				"recognition transfer rejected")
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if result.SucceededCount() > 0 && s.feed != nil {
		s.feed.Broadcast(ctx, input.CompanyID.String())
	}
	return result, nil
}

// RecentActivity lists the latest transactions for the company feed view,
// newest first with a cursor for the next page.
func (s *service) RecentActivity(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PointTransaction, *pagination.Cursor, error) {
	if companyID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.ledgerRepo.ListRecentByCompany(ctx, companyID, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent transactions")
	}
	return rows, next, nil
}

func validateGivePoints(input GivePointsInput) error {
	if input.CompanyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	if input.SenderMemberID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "sender member id is required")
	}
	if len(input.RecipientMemberIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one recipient is required")
	}
	if input.PointsPerRecipient <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount,
			fmt.Sprintf("points per recipient must be positive, got %d", input.PointsPerRecipient))
	}
	for _, recipientID := range input.RecipientMemberIDs {
		if recipientID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "recipient member id is required")
		}
		if recipientID == input.SenderMemberID {
			return pkgerrors.New(pkgerrors.CodeInvalidMember, "sender cannot recognize themselves")
		}
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
