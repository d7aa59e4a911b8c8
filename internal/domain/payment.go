package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Payment struct {
	ID                    uuid.UUID
	LoanID                uuid.UUID
	Amount                decimal.Decimal
	Status                PaymentStatus
	Provider              string
	ProviderTransactionID *string
	ProviderData          json.RawMessage
	ErrorCode             *string
	ErrorMessage          *string
	CancelledReason       *string
	RefundAmount          *decimal.Decimal
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TransitionMeta carries the optional fields a status change may attach
// to the payment and to the resulting event.
type TransitionMeta struct {
	ErrorCode             *string
	ErrorMessage          *string
	CancelledReason       *string
	RefundAmount          *decimal.Decimal
	ProviderTransactionID *string
	ProviderData          json.RawMessage
}

// TransitionTo applies a status change and returns the event it produced,
// or nil when newStatus equals the current status (redundant calls mutate
// nothing). It performs no transition validation: ValidateTransition runs
// in the service before this is called, so the aggregate stays a plain
// state holder.
func (p *Payment) TransitionTo(newStatus PaymentStatus, meta TransitionMeta, now time.Time) Event {
	if newStatus == p.Status {
		return nil
	}

	prev := p.Status
	p.applyMeta(meta)
	p.Status = newStatus
	p.UpdatedAt = now

	return EventForTransition(p, prev, newStatus, meta, now)
}

func (p *Payment) applyMeta(meta TransitionMeta) {
	if meta.ErrorCode != nil {
		p.ErrorCode = meta.ErrorCode
	}
	if meta.ErrorMessage != nil {
		p.ErrorMessage = meta.ErrorMessage
	}
	if meta.CancelledReason != nil {
		p.CancelledReason = meta.CancelledReason
	}
	if meta.RefundAmount != nil {
		p.RefundAmount = meta.RefundAmount
	}
	if meta.ProviderTransactionID != nil {
		p.ProviderTransactionID = meta.ProviderTransactionID
	}
	if meta.ProviderData != nil {
		p.ProviderData = meta.ProviderData
	}
}
