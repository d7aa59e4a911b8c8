// Package sideeffect holds the per-event-type handlers that react to
// payment lifecycle events. Handlers receive their capabilities from the
// surrounding application at wiring time; any capability may be nil, in
// which case that effect is skipped. Because the sweep redelivers events
// at least once, every handler must tolerate seeing the same event twice.
package sideeffect

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loanpost/payment-engine/internal/domain"
)

type LoanDetails struct {
	BorrowerName  string
	BorrowerEmail string
}

// Capabilities are the injected effect functions. The engine defines only
// these signatures; implementations live in the wiring layer.
type Capabilities struct {
	SendEmail         func(ctx context.Context, to, subject, body string) error
	UpdateLoanBalance func(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) error
	UpdateLedger      func(ctx context.Context, loanID, paymentID uuid.UUID, amount decimal.Decimal, entry domain.EntryType) error
	LogFailure        func(ctx context.Context, paymentID uuid.UUID, code, message string) error
	GetLoanDetails    func(ctx context.Context, loanID uuid.UUID) (LoanDetails, error)
}
