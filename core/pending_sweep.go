package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const PendingSweepJobID = "splitpay.pending.sweep"

// SweepFunc removes expired pending checkouts and reports how many went.
type SweepFunc func(ctx context.Context) (int, error)

// SweepPending drops pending checkouts whose consent window has closed.
func (s *Service) SweepPending(ctx context.Context) (removed int, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "sweep_pending", err, map[string]any{"removed": removed})
	}()
	if s == nil || s.pendingStore == nil {
		return 0, fmt.Errorf("core: pending state store is not configured")
	}
	removed, err = s.pendingStore.Sweep(ctx, s.clock())
	if err != nil {
		return 0, s.mapError(err)
	}
	return removed, nil
}

// RunPendingSweeper acts on every Pending.SweepInterval tick until ctx is
// done. With an enqueuer each tick schedules a sweep job; without one it
// sweeps inline. Failures are logged and the loop keeps going.
func (s *Service) RunPendingSweeper(ctx context.Context, enqueuer JobEnqueuer) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	interval := s.config.Pending.SweepInterval
	if interval <= 0 {
		interval = defaultPendingSweepEvery
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if enqueuer == nil {
				_, _ = s.SweepPending(ctx)
				continue
			}
			if err := s.EnqueuePendingSweep(ctx, enqueuer); err != nil {
				s.logWarn(ctx, "pending sweep enqueue failed", map[string]any{
					"job_id": PendingSweepJobID,
					"error":  err.Error(),
				})
			}
		}
	}
}

// EnqueuePendingSweep schedules one sweep on a job queue. Requests in the
// same interval share an idempotency key.
func (s *Service) EnqueuePendingSweep(ctx context.Context, enqueuer JobEnqueuer) error {
	if enqueuer == nil {
		return fmt.Errorf("core: job enqueuer is not configured")
	}
	interval := s.config.Pending.SweepInterval
	if interval <= 0 {
		interval = defaultPendingSweepEvery
	}
	bucket := s.clock().Truncate(interval)
	return enqueuer.Enqueue(ctx, &JobExecutionMessage{
		JobID:          PendingSweepJobID,
		IdempotencyKey: PendingSweepJobID + ":" + bucket.Format(time.RFC3339),
		DedupPolicy:    "drop",
		Parameters: map[string]any{
			"scheduled_at": bucket.Format(time.RFC3339),
		},
	})
}

// HandleJobDelivery runs a queued sweep and settles the delivery. Unknown
// jobs are dead-lettered.
func (s *Service) HandleJobDelivery(ctx context.Context, delivery JobDelivery) error {
	if delivery == nil {
		return fmt.Errorf("core: job delivery is required")
	}
	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.JobID) != PendingSweepJobID {
		jobID := ""
		if msg != nil {
			jobID = msg.JobID
		}
		return delivery.Nack(ctx, JobNackOptions{
			DeadLetter: true,
			Reason:     fmt.Sprintf("unsupported job %q", jobID),
		})
	}
	sweep := s.queuedSweep
	if sweep == nil {
		sweep = s.SweepPending
	}
	if _, err := sweep(ctx); err != nil {
		if nackErr := delivery.Nack(ctx, JobNackOptions{
			Requeue: true,
			Delay:   s.config.Pending.SweepInterval,
			Reason:  err.Error(),
		}); nackErr != nil {
			return nackErr
		}
		return err
	}
	return delivery.Ack(ctx)
}
