package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loanpost/payment-engine/internal/domain"
	"github.com/loanpost/payment-engine/internal/logging"
	"github.com/loanpost/payment-engine/internal/provider"
)

type paymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) error
	FindByLoanID(ctx context.Context, loanID uuid.UUID) ([]domain.Payment, error)
}

type outboxRepo interface {
	Create(ctx context.Context, rec *domain.PaymentEventRecord) error
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
}

type publisher interface {
	Publish(ctx context.Context, evt domain.Event) error
}

// Service orchestrates the payment lifecycle: it is the only code path
// that mutates a payment's status.
type Service struct {
	payments paymentRepo
	outbox   outboxRepo
	bus      publisher
	provider provider.Provider
}

// NewService wires the orchestrator. prov may be nil when no payment rail
// is configured; provider steps are then skipped.
func NewService(payments paymentRepo, outbox outboxRepo, bus publisher, prov provider.Provider) *Service {
	return &Service{
		payments: payments,
		outbox:   outbox,
		bus:      bus,
		provider: prov,
	}
}

type CreatePaymentRequest struct {
	LoanID   uuid.UUID
	Amount   decimal.Decimal
	Provider string
	Memo     string
}

// CreatePayment builds and persists a new payment in the created status.
// Creation emits no event. When a rail is configured the transaction is
// registered with it after the local row commits; registration failure is
// advisory and leaves the payment created without a provider reference.
func (s *Service) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error) {
	log := logging.FromContext(ctx)

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("CreatePayment: %w", domain.ErrInvalidAmount)
	}

	now := time.Now().UTC()
	p := &domain.Payment{
		ID:        uuid.New(),
		LoanID:    req.LoanID,
		Amount:    req.Amount,
		Status:    domain.PaymentStatusCreated,
		Provider:  req.Provider,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("CreatePayment: %w", err)
	}

	s.registerWithProvider(ctx, p, req.Memo)

	log.Info("payment created", "payment_id", p.ID, "loan_id", p.LoanID, "amount", p.Amount)
	return p, nil
}

type TransitionRequest struct {
	PaymentID uuid.UUID
	NewStatus domain.PaymentStatus
	Meta      domain.TransitionMeta
}

// TransitionPayment runs the lifecycle steps in fixed order: load,
// validate, advisory provider pre-step, mutate, persist payment, persist
// event, dispatch. Load and validation errors propagate with no side
// effects; provider and dispatch errors never do. For every
// event-producing call the payment row is saved before the outbox row,
// and the outbox row before any publish attempt.
func (s *Service) TransitionPayment(ctx context.Context, req TransitionRequest) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, req.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("TransitionPayment: %w", err)
	}

	if err := domain.ValidateTransition(p.Status, req.NewStatus); err != nil {
		return nil, fmt.Errorf("TransitionPayment: %w", err)
	}

	meta := s.providerPreStep(ctx, p, req.NewStatus, req.Meta)

	evt := p.TransitionTo(req.NewStatus, meta, time.Now().UTC())

	if err := s.payments.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("TransitionPayment: %w", err)
	}

	if evt != nil {
		s.recordAndDispatch(ctx, p, evt)
	}

	return p, nil
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetPayment: %w", err)
	}
	return p, nil
}

func (s *Service) ListLoanPayments(ctx context.Context, loanID uuid.UUID) ([]domain.Payment, error) {
	payments, err := s.payments.FindByLoanID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("ListLoanPayments: %w", err)
	}
	return payments, nil
}

// providerPreStep notifies the rail before a cancel or refund is recorded
// locally. Rail outcomes are advisory: a failure is logged and the local
// transition proceeds. A successful refund's transaction id and data are
// merged into the metadata so the aggregate keeps the rail's view.
func (s *Service) providerPreStep(ctx context.Context, p *domain.Payment, target domain.PaymentStatus, meta domain.TransitionMeta) domain.TransitionMeta {
	if s.provider == nil || p.ProviderTransactionID == nil {
		return meta
	}

	log := logging.FromContext(ctx)
	req := provider.TransactionRequest{
		PaymentID:     p.ID,
		LoanID:        p.LoanID,
		Amount:        p.Amount,
		TransactionID: *p.ProviderTransactionID,
	}

	switch target {
	case domain.PaymentStatusCancelled:
		res := s.provider.CancelTransaction(ctx, req)
		if !res.Success {
			log.Warn("provider cancel failed, local cancellation proceeds",
				"payment_id", p.ID,
				"provider", s.provider.Name(),
				"error_code", res.ErrorCode,
				"error_message", res.ErrorMessage,
			)
		}
	case domain.PaymentStatusRefunded:
		if meta.RefundAmount != nil {
			req.Amount = *meta.RefundAmount
		}
		res := s.provider.RefundTransaction(ctx, req)
		if !res.Success {
			log.Warn("provider refund failed, local refund proceeds",
				"payment_id", p.ID,
				"provider", s.provider.Name(),
				"error_code", res.ErrorCode,
				"error_message", res.ErrorMessage,
			)
			break
		}
		if res.TransactionID != "" {
			id := res.TransactionID
			meta.ProviderTransactionID = &id
		}
		if len(res.Data) > 0 {
			meta.ProviderData = res.Data
		}
	}

	return meta
}

// recordAndDispatch persists the event to the outbox and attempts in-line
// delivery. Nothing here propagates: the transition has already committed
// and the sweep retries whatever delivery left behind. An outbox write
// failure leaves the committed status change standing without an event
// trail, surfaced at Error level.
func (s *Service) recordAndDispatch(ctx context.Context, p *domain.Payment, evt domain.Event) {
	log := logging.FromContext(ctx)

	payload, err := domain.EncodeEvent(evt)
	if err != nil {
		log.Error("event not recorded, status change stands without an event trail",
			"payment_id", p.ID, "event_type", evt.Type(), "error", err)
		return
	}

	rec := &domain.PaymentEventRecord{
		ID:        uuid.New(),
		PaymentID: p.ID,
		EventType: evt.Type(),
		Payload:   payload,
		Status:    domain.OutboxStatusPending,
		CreatedAt: evt.OccurredAt(),
	}
	if err := s.outbox.Create(ctx, rec); err != nil {
		log.Error("outbox write failed, status change stands without an event trail",
			"payment_id", p.ID, "event_type", evt.Type(), "error", err)
		return
	}

	if err := s.bus.Publish(ctx, evt); err != nil {
		log.Error("event dispatch failed, row left for the sweep",
			"payment_id", p.ID, "event_id", rec.ID, "event_type", evt.Type(), "error", err)
		if markErr := s.outbox.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			log.Error("failed to mark event failed", "event_id", rec.ID, "error", markErr)
		}
		return
	}

	if err := s.outbox.MarkProcessed(ctx, rec.ID); err != nil {
		log.Error("failed to mark event processed", "event_id", rec.ID, "error", err)
	}
}

func (s *Service) registerWithProvider(ctx context.Context, p *domain.Payment, memo string) {
	if s.provider == nil {
		return
	}

	log := logging.FromContext(ctx)
	res := s.provider.CreateTransaction(ctx, provider.TransactionRequest{
		PaymentID: p.ID,
		LoanID:    p.LoanID,
		Amount:    p.Amount,
		Memo:      memo,
	})
	if !res.Success {
		log.Warn("provider registration failed, payment stays created",
			"payment_id", p.ID,
			"provider", s.provider.Name(),
			"error_code", res.ErrorCode,
			"error_message", res.ErrorMessage,
		)
		return
	}

	if res.TransactionID != "" {
		id := res.TransactionID
		p.ProviderTransactionID = &id
	}
	if len(res.Data) > 0 {
		p.ProviderData = res.Data
	}
	if err := s.payments.Update(ctx, p); err != nil {
		log.Error("failed to store provider reference", "payment_id", p.ID, "error", err)
	}
}
