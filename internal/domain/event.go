package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventTypePaymentProcessing EventType = "payment.processing"
	EventTypePaymentSucceeded  EventType = "payment.succeeded"
	EventTypePaymentFailed     EventType = "payment.failed"
	EventTypePaymentCancelled  EventType = "payment.cancelled"
	EventTypePaymentRefunded   EventType = "payment.refunded"
)

// Event is an immutable record of an executed status transition. One
// variant exists per target status except created, which emits nothing.
type Event interface {
	Type() EventType
	PaymentID() uuid.UUID
	OccurredAt() time.Time
}

// EventMeta holds the fields every event variant carries.
type EventMeta struct {
	Payment  uuid.UUID `json:"payment_id"`
	Occurred time.Time `json:"occurred_at"`
}

func (m EventMeta) PaymentID() uuid.UUID  { return m.Payment }
func (m EventMeta) OccurredAt() time.Time { return m.Occurred }

type PaymentProcessing struct {
	EventMeta
	PreviousStatus PaymentStatus `json:"previous_status"`
}

func (PaymentProcessing) Type() EventType { return EventTypePaymentProcessing }

type PaymentSucceeded struct {
	EventMeta
	LoanID         uuid.UUID       `json:"loan_id"`
	Amount         decimal.Decimal `json:"amount"`
	PreviousStatus PaymentStatus   `json:"previous_status"`
}

func (PaymentSucceeded) Type() EventType { return EventTypePaymentSucceeded }

type PaymentFailed struct {
	EventMeta
	LoanID         uuid.UUID       `json:"loan_id"`
	Amount         decimal.Decimal `json:"amount"`
	PreviousStatus PaymentStatus   `json:"previous_status"`
	ErrorCode      string          `json:"error_code,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

func (PaymentFailed) Type() EventType { return EventTypePaymentFailed }

type PaymentCancelled struct {
	EventMeta
	LoanID         uuid.UUID       `json:"loan_id"`
	Amount         decimal.Decimal `json:"amount"`
	PreviousStatus PaymentStatus   `json:"previous_status"`
	Reason         string          `json:"reason,omitempty"`
}

func (PaymentCancelled) Type() EventType { return EventTypePaymentCancelled }

type PaymentRefunded struct {
	EventMeta
	LoanID         uuid.UUID       `json:"loan_id"`
	Amount         decimal.Decimal `json:"amount"`
	PreviousStatus PaymentStatus   `json:"previous_status"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
}

func (PaymentRefunded) Type() EventType { return EventTypePaymentRefunded }

// EventForTransition maps an executed transition to its event. It is pure:
// it reads the payment's identity fields and the supplied meta, never the
// merged aggregate state. Returns nil for the created status and for
// same-status calls.
func EventForTransition(p *Payment, prev, next PaymentStatus, meta TransitionMeta, now time.Time) Event {
	if prev == next {
		return nil
	}

	m := EventMeta{Payment: p.ID, Occurred: now}

	switch next {
	case PaymentStatusProcessing:
		return PaymentProcessing{EventMeta: m, PreviousStatus: prev}
	case PaymentStatusSucceeded:
		return PaymentSucceeded{EventMeta: m, LoanID: p.LoanID, Amount: p.Amount, PreviousStatus: prev}
	case PaymentStatusFailed:
		return PaymentFailed{
			EventMeta:      m,
			LoanID:         p.LoanID,
			Amount:         p.Amount,
			PreviousStatus: prev,
			ErrorCode:      strVal(meta.ErrorCode),
			ErrorMessage:   strVal(meta.ErrorMessage),
		}
	case PaymentStatusCancelled:
		return PaymentCancelled{
			EventMeta:      m,
			LoanID:         p.LoanID,
			Amount:         p.Amount,
			PreviousStatus: prev,
			Reason:         strVal(meta.CancelledReason),
		}
	case PaymentStatusRefunded:
		refund := p.Amount
		if meta.RefundAmount != nil {
			refund = *meta.RefundAmount
		}
		return PaymentRefunded{
			EventMeta:      m,
			LoanID:         p.LoanID,
			Amount:         p.Amount,
			PreviousStatus: prev,
			RefundAmount:   refund,
		}
	}

	return nil
}

func EncodeEvent(e Event) (json.RawMessage, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("EncodeEvent: %s: %w", e.Type(), err)
	}
	return payload, nil
}

// DecodeEvent rebuilds an event from an outbox row so the sweep can
// redeliver it.
func DecodeEvent(t EventType, payload json.RawMessage) (Event, error) {
	var (
		e   Event
		err error
	)

	switch t {
	case EventTypePaymentProcessing:
		var v PaymentProcessing
		err = json.Unmarshal(payload, &v)
		e = v
	case EventTypePaymentSucceeded:
		var v PaymentSucceeded
		err = json.Unmarshal(payload, &v)
		e = v
	case EventTypePaymentFailed:
		var v PaymentFailed
		err = json.Unmarshal(payload, &v)
		e = v
	case EventTypePaymentCancelled:
		var v PaymentCancelled
		err = json.Unmarshal(payload, &v)
		e = v
	case EventTypePaymentRefunded:
		var v PaymentRefunded
		err = json.Unmarshal(payload, &v)
		e = v
	default:
		return nil, fmt.Errorf("DecodeEvent: %q: %w", t, ErrUnknownEventType)
	}

	if err != nil {
		return nil, fmt.Errorf("DecodeEvent: %s: %w", t, err)
	}
	return e, nil
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
