package cron

import (
	"context"
	"fmt"

	"github.com/heykudos/kudos-backend/internal/seats"
	"github.com/heykudos/kudos-backend/pkg/logger"
)

const defaultRetryBatch = 100

// SeatSyncRetryJobParams configure the retry job.
type SeatSyncRetryJobParams struct {
	Seats     seats.Service
	Logger    *logger.Logger
	BatchSize int
}

// SeatSyncRetryJob replays queued Stripe seat-quantity pushes that failed at
// mutation time. The seats service recomputes the live count per replay, so a
// row that sat in the queue while membership kept changing still pushes the
// correct quantity.
type SeatSyncRetryJob struct {
	seats     seats.Service
	logg      *logger.Logger
	batchSize int
}

// NewSeatSyncRetryJob builds the retry job.
func NewSeatSyncRetryJob(params SeatSyncRetryJobParams) (*SeatSyncRetryJob, error) {
	if params.Seats == nil {
		return nil, fmt.Errorf("seats service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultRetryBatch
	}
	return &SeatSyncRetryJob{
		seats:     params.Seats,
		logg:      params.Logger,
		batchSize: batch,
	}, nil
}

// Name implements Job.
func (j *SeatSyncRetryJob) Name() string {
	return "seat_sync_retry"
}

// Run implements Job.
func (j *SeatSyncRetryJob) Run(ctx context.Context) error {
	report, err := j.seats.RetryFailedSyncs(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("retry failed syncs: %w", err)
	}
	fields := j.logg.WithFields(ctx, map[string]any{
		"attempted": report.Attempted,
		"resolved":  report.Resolved,
		"remaining": report.Remaining,
	})
	j.logg.Info(fields, "seat sync retry pass complete")
	return nil
}
