package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loanpost/payment-engine/internal/domain"
)

type sweepOutboxRepo interface {
	GetPending(ctx context.Context, limit int) ([]domain.PaymentEventRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentEventRecord, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
}

// Sweep redelivers outbox rows whose dispatch never completed. Unlike a
// single Publish call, which is fail-fast across handlers, the sweep
// isolates failures per row: one bad event never blocks the rows behind it.
type Sweep struct {
	outbox   sweepOutboxRepo
	bus      publisher
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

func NewSweep(outbox sweepOutboxRepo, bus publisher, logger *slog.Logger, interval time.Duration, batch int) *Sweep {
	return &Sweep{
		outbox:   outbox,
		bus:      bus,
		logger:   logger,
		interval: interval,
		batch:    batch,
	}
}

// Start runs the sweep on a ticker until ctx is cancelled. The engine has
// no scheduler of its own; this is the periodic external trigger hosted by
// the wiring binary.
func (s *Sweep) Start(ctx context.Context) {
	s.logger.Info("outbox sweep started", "interval", s.interval, "batch", s.batch)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("outbox sweep stopped")
			return
		case <-ticker.C:
			res, err := s.ProcessPending(ctx, s.batch)
			if err != nil {
				s.logger.Error("sweep pass failed", "error", err)
				continue
			}
			if res.Processed > 0 || res.Failed > 0 {
				s.logger.Info("sweep pass completed", "processed", res.Processed, "failed", res.Failed)
			}
		}
	}
}

type SweepError struct {
	EventID uuid.UUID
	Message string
}

type SweepResult struct {
	Processed int
	Failed    int
	Errors    []SweepError
}

// ProcessPending fetches up to limit pending rows oldest-first and
// redelivers each. A row that fails is marked failed and counted, and the
// sweep moves on to the next one.
func (s *Sweep) ProcessPending(ctx context.Context, limit int) (SweepResult, error) {
	records, err := s.outbox.GetPending(ctx, limit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("ProcessPending: %w", err)
	}

	var res SweepResult
	for _, rec := range records {
		if err := s.redeliver(ctx, rec); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, SweepError{EventID: rec.ID, Message: err.Error()})
			continue
		}
		res.Processed++
	}
	return res, nil
}

// ProcessEvent redelivers a single row by id, for targeted manual retry.
func (s *Sweep) ProcessEvent(ctx context.Context, id uuid.UUID) error {
	rec, err := s.outbox.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("ProcessEvent: %w", err)
	}
	if err := s.redeliver(ctx, *rec); err != nil {
		return fmt.Errorf("ProcessEvent: %w", err)
	}
	return nil
}

func (s *Sweep) redeliver(ctx context.Context, rec domain.PaymentEventRecord) error {
	evt, err := domain.DecodeEvent(rec.EventType, rec.Payload)
	if err != nil {
		s.logger.Error("undecodable outbox row", "event_id", rec.ID, "event_type", rec.EventType, "error", err)
		if markErr := s.outbox.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark event failed", "event_id", rec.ID, "error", markErr)
		}
		return err
	}

	if err := s.bus.Publish(ctx, evt); err != nil {
		s.logger.Warn("redelivery failed", "event_id", rec.ID, "event_type", rec.EventType, "error", err)
		if markErr := s.outbox.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark event failed", "event_id", rec.ID, "error", markErr)
		}
		return err
	}

	if err := s.outbox.MarkProcessed(ctx, rec.ID); err != nil {
		s.logger.Error("failed to mark event processed", "event_id", rec.ID, "error", err)
	}
	return nil
}
