// Package provider defines the boundary to external payment rails. Rail
// failures are ordinary data to the payment service, so every operation
// returns a Result instead of an error: transport problems, declines, and
// unimplemented operations all land in the same shape.
package provider

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loanpost/payment-engine/internal/domain"
)

type TransactionRequest struct {
	PaymentID     uuid.UUID
	LoanID        uuid.UUID
	Amount        decimal.Decimal
	Memo          string
	TransactionID string
}

type Result struct {
	Success        bool
	NotImplemented bool
	TransactionID  string
	Data           json.RawMessage
	ErrorCode      string
	ErrorMessage   string
}

type Provider interface {
	Name() string
	CreateTransaction(ctx context.Context, req TransactionRequest) Result
	CancelTransaction(ctx context.Context, req TransactionRequest) Result
	RefundTransaction(ctx context.Context, req TransactionRequest) Result
	SyncTransaction(ctx context.Context, req TransactionRequest) Result

	// MapProviderStatus translates a rail status string into a payment
	// status. Unrecognized strings return ok=false and must be handled by
	// the caller, never assumed.
	MapProviderStatus(status string) (s domain.PaymentStatus, ok bool)
}

func Failure(code, message string) Result {
	return Result{ErrorCode: code, ErrorMessage: message}
}

func NotImplemented(op string) Result {
	return Result{
		NotImplemented: true,
		ErrorCode:      "NOT_IMPLEMENTED",
		ErrorMessage:   op + " is not supported by this provider",
	}
}
