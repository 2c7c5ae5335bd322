package members

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/internal/billing"
	"github.com/heykudos/kudos-backend/internal/ledger"
	"github.com/heykudos/kudos-backend/internal/seats"
	"github.com/heykudos/kudos-backend/pkg/db"
	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/logger"
)

// Service owns the member lifecycle. Every seat-affecting mutation pushes the
// new billable count to Stripe afterwards and tolerates that push failing.
type Service interface {
	Invite(ctx context.Context, input InviteInput) (*InviteResult, error)
	Deactivate(ctx context.Context, companyID, memberID uuid.UUID) error
	Reactivate(ctx context.Context, companyID, memberID uuid.UUID) error
	CompleteBulkImport(ctx context.Context, companyID uuid.UUID, memberIDs []uuid.UUID) (*BulkImportResult, error)
	GrantPoints(ctx context.Context, input AdjustPointsInput) (*ledger.TransferResult, error)
	RevokePoints(ctx context.Context, input AdjustPointsInput) (*ledger.TransferResult, error)
	List(ctx context.Context, companyID uuid.UUID) ([]models.Member, error)
}

// InviteInput creates one member.
type InviteInput struct {
	CompanyID   uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Department  *string
	IsAdmin     bool
	// PendingInvite leaves the member in the invited state, as the bulk
	// import flow does, instead of activating immediately.
	PendingInvite bool
}

// InviteResult either carries the created member or, when the company has no
// billing set up yet, the checkout URL the caller must surface instead.
type InviteResult struct {
	Member          *models.Member
	BillingRequired bool
	CheckoutURL     string
}

// BulkImportResult reports how many invited members were activated.
type BulkImportResult struct {
	Activated int
	SeatCount int
}

// AdjustPointsInput is an admin grant or revoke against one member.
type AdjustPointsInput struct {
	CompanyID   uuid.UUID
	MemberID    uuid.UUID
	Points      int
	Description string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the members service.
type ServiceParams struct {
	Repo              Repository
	Billing           billing.Service
	Seats             seats.Service
	Ledger            ledger.Service
	TransactionRunner txRunner
	Logger            *logger.Logger
}

type service struct {
	repo    Repository
	billing billing.Service
	seats   seats.Service
	ledger  ledger.Service
	tx      txRunner
	logg    *logger.Logger
}

// NewService wires a members service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if params.Billing == nil {
		return nil, fmt.Errorf("billing service required")
	}
	if params.Seats == nil {
		return nil, fmt.Errorf("seats service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    params.Repo,
		billing: params.Billing,
		seats:   params.Seats,
		ledger:  params.Ledger,
		tx:      params.TransactionRunner,
		logg:    params.Logger,
	}, nil
}

// Invite creates a member. The first billable seat is gated on billing setup:
// when the gate answers with a checkout URL, no member row is created and the
// caller retries after checkout completes.
func (s *service) Invite(ctx context.Context, input InviteInput) (*InviteResult, error) {
	if err := validateInvite(input); err != nil {
		return nil, err
	}

	if !input.IsAdmin {
		gate, err := s.billing.EnsureBillingBeforeFirstMember(ctx, input.CompanyID)
		if err != nil {
			return nil, err
		}
		if gate.BillingRequired {
			return &InviteResult{BillingRequired: true, CheckoutURL: gate.CheckoutURL}, nil
		}
	}

	status := enums.MemberStatusActive
	if input.PendingInvite {
		status = enums.MemberStatusInvited
	}
	member := &models.Member{
		CompanyID:   input.CompanyID,
		UserID:      input.UserID,
		DisplayName: input.DisplayName,
		Email:       input.Email,
		Department:  input.Department,
		IsAdmin:     input.IsAdmin,
		Status:      status,
	}
	if err := s.repo.Create(ctx, member); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateMembership, "user already belongs to this company")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create member")
	}

	s.reconcile(ctx, input.CompanyID)
	return &InviteResult{Member: member}, nil
}

// Deactivate retires the member's seat. The row and its transaction history
// stay.
func (s *service) Deactivate(ctx context.Context, companyID, memberID uuid.UUID) error {
	if err := s.flipStatus(ctx, companyID, memberID, enums.MemberStatusActive, enums.MemberStatusDeactivated); err != nil {
		return err
	}
	s.reconcile(ctx, companyID)
	return nil
}

// Reactivate restores a deactivated member and bills the seat again.
func (s *service) Reactivate(ctx context.Context, companyID, memberID uuid.UUID) error {
	if err := s.flipStatus(ctx, companyID, memberID, enums.MemberStatusDeactivated, enums.MemberStatusActive); err != nil {
		return err
	}
	s.reconcile(ctx, companyID)
	return nil
}

// CompleteBulkImport activates a batch of invited members in one transaction
// and reconciles the seat count once for the whole batch.
func (s *service) CompleteBulkImport(ctx context.Context, companyID uuid.UUID, memberIDs []uuid.UUID) (*BulkImportResult, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	if len(memberIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one member id is required")
	}

	activated := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.WithTx(tx).ActivateInvited(ctx, companyID, memberIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate invited members")
		}
		activated = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &BulkImportResult{Activated: activated}
	if reconciled, err := s.seats.ReconcileSubscriptionQuantity(ctx, companyID); err == nil {
		result.SeatCount = reconciled.SeatCount
	} else if s.logg != nil {
		s.logg.Warn(s.logg.WithCompanyID(ctx, companyID.String()), "seat reconcile failed after bulk import: "+err.Error())
	}
	return result, nil
}

// GrantPoints credits a member from the company system account. Grants are
// minted, not transferred from anyone's allowance.
func (s *service) GrantPoints(ctx context.Context, input AdjustPointsInput) (*ledger.TransferResult, error) {
	system, err := s.systemAccount(ctx, input.CompanyID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Transfer(ctx, ledger.TransferInput{
		CompanyID:         input.CompanyID,
		SenderMemberID:    system.ID,
		RecipientMemberID: input.MemberID,
		Points:            input.Points,
		Kind:              enums.TransactionKindAdminGrant,
		Description:       input.Description,
	})
}

// RevokePoints debits a member back to the system account. The conditional
// debit keeps the balance from going negative.
func (s *service) RevokePoints(ctx context.Context, input AdjustPointsInput) (*ledger.TransferResult, error) {
	system, err := s.systemAccount(ctx, input.CompanyID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Transfer(ctx, ledger.TransferInput{
		CompanyID:         input.CompanyID,
		SenderMemberID:    input.MemberID,
		RecipientMemberID: system.ID,
		Points:            input.Points,
		Kind:              enums.TransactionKindAdminRevoke,
		Description:       input.Description,
	})
}

func (s *service) List(ctx context.Context, companyID uuid.UUID) ([]models.Member, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	rows, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}
	return rows, nil
}

func (s *service) flipStatus(ctx context.Context, companyID, memberID uuid.UUID, from, to enums.MemberStatus) error {
	if companyID == uuid.Nil || memberID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "company id and member id are required")
	}
	flipped, err := s.repo.UpdateStatus(ctx, companyID, memberID, from, to)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update member status")
	}
	if flipped {
		return nil
	}

	member, err := s.repo.Find(ctx, companyID, memberID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load member")
	}
	return pkgerrors.New(pkgerrors.CodeConflict,
		fmt.Sprintf("member is %s, expected %s", member.Status, from))
}

func (s *service) systemAccount(ctx context.Context, companyID uuid.UUID) (*models.Member, error) {
	if companyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	system, err := s.repo.FindSystemAccount(ctx, companyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "company system account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load system account")
	}
	return system, nil
}

// reconcile pushes the new seat count. A failed push is parked on the retry
// queue inside the seats service; the membership mutation stands either way.
func (s *service) reconcile(ctx context.Context, companyID uuid.UUID) {
	if _, err := s.seats.ReconcileSubscriptionQuantity(ctx, companyID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithCompanyID(ctx, companyID.String()), "seat reconcile failed: "+err.Error())
	}
}

func validateInvite(input InviteInput) error {
	if input.CompanyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.DisplayName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}
	if input.Email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	return nil
}
