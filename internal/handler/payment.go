package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loanpost/payment-engine/internal/domain"
	"github.com/loanpost/payment-engine/internal/logging"
	"github.com/loanpost/payment-engine/internal/service"
)

type paymentService interface {
	CreatePayment(ctx context.Context, req service.CreatePaymentRequest) (*domain.Payment, error)
	TransitionPayment(ctx context.Context, req service.TransitionRequest) (*domain.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	ListLoanPayments(ctx context.Context, loanID uuid.UUID) ([]domain.Payment, error)
}

type PaymentHandler struct {
	payments paymentService
}

func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createPaymentRequest struct {
	LoanID   string          `json:"loan_id"`
	Amount   decimal.Decimal `json:"amount"`
	Provider string          `json:"provider"`
	Memo     string          `json:"memo"`
}

func (r createPaymentRequest) Validate() []FieldError {
	var errs []FieldError

	if r.LoanID == "" {
		errs = append(errs, FieldError{Field: "loan_id", Message: "required"})
	} else if _, err := uuid.Parse(r.LoanID); err != nil {
		errs = append(errs, FieldError{Field: "loan_id", Message: "must be a UUID"})
	}

	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	return errs
}

type transitionPaymentRequest struct {
	Status                string           `json:"status"`
	ErrorCode             *string          `json:"error_code"`
	ErrorMessage          *string          `json:"error_message"`
	CancelledReason       *string          `json:"cancelled_reason"`
	RefundAmount          *decimal.Decimal `json:"refund_amount"`
	ProviderTransactionID *string          `json:"provider_transaction_id"`
	ProviderData          json.RawMessage  `json:"provider_data"`
}

func (r transitionPaymentRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Status == "" {
		errs = append(errs, FieldError{Field: "status", Message: "required"})
	} else if !domain.PaymentStatus(r.Status).IsValid() {
		errs = append(errs, FieldError{Field: "status", Message: "unknown payment status"})
	}

	if r.RefundAmount != nil && !r.RefundAmount.IsPositive() {
		errs = append(errs, FieldError{Field: "refund_amount", Message: "must be greater than 0"})
	}

	return errs
}

type paymentDTO struct {
	ID                    uuid.UUID        `json:"id"`
	LoanID                uuid.UUID        `json:"loan_id"`
	Amount                decimal.Decimal  `json:"amount"`
	Status                string           `json:"status"`
	Provider              string           `json:"provider,omitempty"`
	ProviderTransactionID *string          `json:"provider_transaction_id,omitempty"`
	ErrorCode             *string          `json:"error_code,omitempty"`
	ErrorMessage          *string          `json:"error_message,omitempty"`
	CancelledReason       *string          `json:"cancelled_reason,omitempty"`
	RefundAmount          *decimal.Decimal `json:"refund_amount,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

func toPaymentDTO(p *domain.Payment) paymentDTO {
	return paymentDTO{
		ID:                    p.ID,
		LoanID:                p.LoanID,
		Amount:                p.Amount,
		Status:                string(p.Status),
		Provider:              p.Provider,
		ProviderTransactionID: p.ProviderTransactionID,
		ErrorCode:             p.ErrorCode,
		ErrorMessage:          p.ErrorMessage,
		CancelledReason:       p.CancelledReason,
		RefundAmount:          p.RefundAmount,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	loanID, _ := uuid.Parse(req.LoanID)
	p, err := h.payments.CreatePayment(r.Context(), service.CreatePaymentRequest{
		LoanID:   loanID,
		Amount:   req.Amount,
		Provider: req.Provider,
		Memo:     req.Memo,
	})
	if err != nil {
		log.Warn("payment creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/payments/%s", p.ID))
	RespondSuccess(w, http.StatusCreated, toPaymentDTO(p))
}

func (h *PaymentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	var req transitionPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	p, err := h.payments.TransitionPayment(r.Context(), service.TransitionRequest{
		PaymentID: paymentID,
		NewStatus: domain.PaymentStatus(req.Status),
		Meta: domain.TransitionMeta{
			ErrorCode:             req.ErrorCode,
			ErrorMessage:          req.ErrorMessage,
			CancelledReason:       req.CancelledReason,
			RefundAmount:          req.RefundAmount,
			ProviderTransactionID: req.ProviderTransactionID,
			ProviderData:          req.ProviderData,
		},
	})
	if err != nil {
		log.Warn("payment transition failed", "payment_id", paymentID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPaymentDTO(p))
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	p, err := h.payments.GetPayment(r.Context(), paymentID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toPaymentDTO(p))
}

func (h *PaymentHandler) ListForLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	payments, err := h.payments.ListLoanPayments(r.Context(), loanID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("loan payments lookup failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]paymentDTO, 0, len(payments))
	for i := range payments {
		dtos = append(dtos, toPaymentDTO(&payments[i]))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
