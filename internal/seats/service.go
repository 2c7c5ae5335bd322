package seats

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/heykudos/kudos-backend/pkg/db/models"
	"github.com/heykudos/kudos-backend/pkg/enums"
	pkgerrors "github.com/heykudos/kudos-backend/pkg/errors"
	"github.com/heykudos/kudos-backend/pkg/logger"
	"github.com/heykudos/kudos-backend/pkg/metrics"
	"github.com/heykudos/kudos-backend/pkg/stripe"
)

// Service keeps the Stripe subscription quantity aligned with the live
// billable seat count.
type Service interface {
	CurrentBillableSeatCount(ctx context.Context, companyID uuid.UUID) (int, error)
	ReconcileSubscriptionQuantity(ctx context.Context, companyID uuid.UUID) (*ReconcileResult, error)
	RetryFailedSyncs(ctx context.Context, batchSize int) (*RetryReport, error)
}

// ReconcileResult describes one reconcile attempt.
type ReconcileResult struct {
	SeatCount int
	Synced    bool
	Deferred  bool
}

// RetryReport summarizes one pass over the sync-retry queue.
type RetryReport struct {
	Attempted int
	Resolved  int
	Remaining int
}

// ServiceParams groups dependencies for the seats service.
type ServiceParams struct {
	Repo    Repository
	Updater stripe.SubscriptionUpdater
	Logger  *logger.Logger
	Metrics *metrics.RecognitionMetrics
}

type service struct {
	repo    Repository
	updater stripe.SubscriptionUpdater
	logg    *logger.Logger
	metrics *metrics.RecognitionMetrics
}

// NewService wires a seats service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("seats repository required")
	}
	return &service{
		repo:    params.Repo,
		updater: params.Updater,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

func (s *service) CurrentBillableSeatCount(ctx context.Context, companyID uuid.UUID) (int, error) {
	if companyID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "company id is required")
	}
	count, err := s.repo.CountBillable(ctx, companyID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count billable seats")
	}
	return count, nil
}

// ReconcileSubscriptionQuantity pushes the live billable seat count to the
// company's Stripe subscription. A failed push never unwinds the membership
// mutation that triggered it; the push is parked on the retry queue and the
// caller proceeds.
func (s *service) ReconcileSubscriptionQuantity(ctx context.Context, companyID uuid.UUID) (*ReconcileResult, error) {
	count, err := s.CurrentBillableSeatCount(ctx, companyID)
	if err != nil {
		return nil, err
	}

	company, err := s.repo.FindCompany(ctx, companyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "company not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load company")
	}
	if !company.HasSubscription() {
		// Nothing to sync until checkout completes.
		return &ReconcileResult{SeatCount: count}, nil
	}

	if s.updater == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe updater not configured")
	}
	if err := s.updater.UpdateQuantity(ctx, *company.StripeSubscriptionID, count); err != nil {
		s.observeSync("deferred")
		if s.logg != nil {
			s.logg.Warn(s.logg.WithCompanyID(ctx, companyID.String()), "seat quantity push deferred: "+err.Error())
		}
		failure := &models.SeatSyncFailure{
			CompanyID: companyID,
			Quantity:  count,
			Attempts:  1,
			LastError: err.Error(),
		}
		if enqueueErr := s.repo.EnqueueSyncFailure(ctx, failure); enqueueErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, enqueueErr, "enqueue seat sync failure")
		}
		return &ReconcileResult{SeatCount: count, Deferred: true}, nil
	}

	s.observeSync("success")
	return &ReconcileResult{SeatCount: count, Synced: true}, nil
}

// RetryFailedSyncs replays queued pushes. The live seat count is recomputed
// per replay; the queued quantity may be stale by the time the job runs.
func (s *service) RetryFailedSyncs(ctx context.Context, batchSize int) (*RetryReport, error) {
	failures, err := s.repo.ListUnresolvedFailures(ctx, batchSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seat sync failures")
	}

	report := &RetryReport{Attempted: len(failures)}
	for _, failure := range failures {
		if err := s.retryOne(ctx, failure); err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithCompanyID(ctx, failure.CompanyID.String()), "seat sync retry failed: "+err.Error())
			}
			if recordErr := s.repo.RecordFailureAttempt(ctx, failure.ID, err.Error()); recordErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, recordErr, "record retry attempt")
			}
			continue
		}
		if err := s.repo.MarkFailureResolved(ctx, failure.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve seat sync failure")
		}
		report.Resolved++
	}

	remaining, err := s.repo.CountUnresolvedFailures(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unresolved failures")
	}
	report.Remaining = remaining
	if s.metrics != nil {
		s.metrics.SetSeatSyncPending(remaining)
	}
	return report, nil
}

func (s *service) retryOne(ctx context.Context, failure models.SeatSyncFailure) error {
	company, err := s.repo.FindCompany(ctx, failure.CompanyID)
	if err != nil {
		return fmt.Errorf("load company: %w", err)
	}
	if !company.HasSubscription() || company.SubscriptionStatus == enums.SubscriptionStatusCanceled {
		// The subscription went away; there is nothing left to push.
		return nil
	}
	count, err := s.repo.CountBillable(ctx, failure.CompanyID)
	if err != nil {
		return fmt.Errorf("count billable seats: %w", err)
	}
	if s.updater == nil {
		return fmt.Errorf("stripe updater not configured")
	}
	if err := s.updater.UpdateQuantity(ctx, *company.StripeSubscriptionID, count); err != nil {
		s.observeSync("deferred")
		return err
	}
	s.observeSync("success")
	return nil
}

func (s *service) observeSync(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveSeatSync(outcome)
	}
}
