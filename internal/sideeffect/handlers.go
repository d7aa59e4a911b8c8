package sideeffect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/loanpost/payment-engine/internal/domain"
	"github.com/loanpost/payment-engine/internal/eventbus"
)

// Handlers never return an error to the bus: a capability failure is an
// internal problem of the side effect, logged and swallowed, so it does
// not flip the triggering outbox row to failed. The failed-marking path
// exists for errors that escape a handler, which these implementations do
// not produce.

type SucceededHandler struct {
	caps   Capabilities
	logger *slog.Logger
}

func NewSucceededHandler(caps Capabilities, logger *slog.Logger) *SucceededHandler {
	return &SucceededHandler{caps: caps, logger: logger}
}

func (h *SucceededHandler) Handle(ctx context.Context, evt domain.Event) error {
	e, ok := evt.(domain.PaymentSucceeded)
	if !ok {
		h.logger.Error("succeeded handler got wrong event type", "type", evt.Type())
		return nil
	}

	if h.caps.UpdateLedger != nil {
		if err := h.caps.UpdateLedger(ctx, e.LoanID, e.Payment, e.Amount, domain.EntryTypePayment); err != nil {
			h.logger.Error("ledger update failed", "payment_id", e.Payment, "error", err)
		}
	}

	if h.caps.UpdateLoanBalance != nil {
		if err := h.caps.UpdateLoanBalance(ctx, e.LoanID, e.Amount.Neg()); err != nil {
			h.logger.Error("loan balance update failed", "loan_id", e.LoanID, "error", err)
		}
	}

	emailBorrower(ctx, h.caps, h.logger, e.LoanID, "Payment received",
		fmt.Sprintf("We received your payment of %s. Thank you.", e.Amount.StringFixed(2)))
	return nil
}

type FailedHandler struct {
	caps   Capabilities
	logger *slog.Logger
}

func NewFailedHandler(caps Capabilities, logger *slog.Logger) *FailedHandler {
	return &FailedHandler{caps: caps, logger: logger}
}

func (h *FailedHandler) Handle(ctx context.Context, evt domain.Event) error {
	e, ok := evt.(domain.PaymentFailed)
	if !ok {
		h.logger.Error("failed handler got wrong event type", "type", evt.Type())
		return nil
	}

	if h.caps.LogFailure != nil {
		if err := h.caps.LogFailure(ctx, e.Payment, e.ErrorCode, e.ErrorMessage); err != nil {
			h.logger.Error("failure log write failed", "payment_id", e.Payment, "error", err)
		}
	}

	emailBorrower(ctx, h.caps, h.logger, e.LoanID, "Payment failed",
		fmt.Sprintf("Your payment of %s could not be processed (%s). Please update your payment method.",
			e.Amount.StringFixed(2), e.ErrorCode))
	return nil
}

type CancelledHandler struct {
	caps   Capabilities
	logger *slog.Logger
}

func NewCancelledHandler(caps Capabilities, logger *slog.Logger) *CancelledHandler {
	return &CancelledHandler{caps: caps, logger: logger}
}

func (h *CancelledHandler) Handle(ctx context.Context, evt domain.Event) error {
	e, ok := evt.(domain.PaymentCancelled)
	if !ok {
		h.logger.Error("cancelled handler got wrong event type", "type", evt.Type())
		return nil
	}

	body := fmt.Sprintf("Your payment of %s was cancelled.", e.Amount.StringFixed(2))
	if e.Reason != "" {
		body = fmt.Sprintf("Your payment of %s was cancelled: %s.", e.Amount.StringFixed(2), e.Reason)
	}
	emailBorrower(ctx, h.caps, h.logger, e.LoanID, "Payment cancelled", body)
	return nil
}

type RefundedHandler struct {
	caps   Capabilities
	logger *slog.Logger
}

func NewRefundedHandler(caps Capabilities, logger *slog.Logger) *RefundedHandler {
	return &RefundedHandler{caps: caps, logger: logger}
}

func (h *RefundedHandler) Handle(ctx context.Context, evt domain.Event) error {
	e, ok := evt.(domain.PaymentRefunded)
	if !ok {
		h.logger.Error("refunded handler got wrong event type", "type", evt.Type())
		return nil
	}

	if h.caps.UpdateLedger != nil {
		if err := h.caps.UpdateLedger(ctx, e.LoanID, e.Payment, e.RefundAmount, domain.EntryTypeRefund); err != nil {
			h.logger.Error("ledger update failed", "payment_id", e.Payment, "error", err)
		}
	}

	if h.caps.UpdateLoanBalance != nil {
		if err := h.caps.UpdateLoanBalance(ctx, e.LoanID, e.RefundAmount); err != nil {
			h.logger.Error("loan balance update failed", "loan_id", e.LoanID, "error", err)
		}
	}

	emailBorrower(ctx, h.caps, h.logger, e.LoanID, "Payment refunded",
		fmt.Sprintf("A refund of %s has been issued to you.", e.RefundAmount.StringFixed(2)))
	return nil
}

func emailBorrower(ctx context.Context, caps Capabilities, logger *slog.Logger, loanID uuid.UUID, subject, body string) {
	if caps.SendEmail == nil || caps.GetLoanDetails == nil {
		return
	}

	details, err := caps.GetLoanDetails(ctx, loanID)
	if err != nil {
		logger.Error("loan lookup failed", "loan_id", loanID, "error", err)
		return
	}
	if err := caps.SendEmail(ctx, details.BorrowerEmail, subject, body); err != nil {
		logger.Error("email send failed", "loan_id", loanID, "error", err)
	}
}

// Register subscribes one handler per emitted event type on the bus.
func Register(bus *eventbus.Bus, caps Capabilities, logger *slog.Logger) {
	bus.Subscribe(domain.EventTypePaymentSucceeded, NewSucceededHandler(caps, logger).Handle)
	bus.Subscribe(domain.EventTypePaymentFailed, NewFailedHandler(caps, logger).Handle)
	bus.Subscribe(domain.EventTypePaymentCancelled, NewCancelledHandler(caps, logger).Handle)
	bus.Subscribe(domain.EventTypePaymentRefunded, NewRefundedHandler(caps, logger).Handle)
}
