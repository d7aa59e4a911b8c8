package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/loanpost/payment-engine/internal/logging"
	"github.com/loanpost/payment-engine/internal/service"
)

type sweeper interface {
	ProcessPending(ctx context.Context, limit int) (service.SweepResult, error)
	ProcessEvent(ctx context.Context, id uuid.UUID) error
}

// OutboxHandler exposes the reprocessing sweep for external triggering:
// a batch endpoint for operators or cron, and a per-event retry.
type OutboxHandler struct {
	sweep      sweeper
	batchLimit int
}

func NewOutboxHandler(sweep sweeper, batchLimit int) *OutboxHandler {
	return &OutboxHandler{sweep: sweep, batchLimit: batchLimit}
}

type sweepResultDTO struct {
	Processed int             `json:"processed"`
	Failed    int             `json:"failed"`
	Errors    []sweepErrorDTO `json:"errors,omitempty"`
}

type sweepErrorDTO struct {
	EventID uuid.UUID `json:"event_id"`
	Message string    `json:"message"`
}

func (h *OutboxHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	res, err := h.sweep.ProcessPending(r.Context(), h.batchLimit)
	if err != nil {
		log.Error("sweep failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	dto := sweepResultDTO{Processed: res.Processed, Failed: res.Failed}
	for _, e := range res.Errors {
		dto.Errors = append(dto.Errors, sweepErrorDTO{EventID: e.EventID, Message: e.Message})
	}
	RespondSuccess(w, http.StatusOK, dto)
}

func (h *OutboxHandler) Retry(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	eventID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	if err := h.sweep.ProcessEvent(r.Context(), eventID); err != nil {
		log.Warn("event retry failed", "event_id", eventID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{"event_id": eventID.String(), "status": "processed"})
}
