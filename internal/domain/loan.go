package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Loan struct {
	ID            uuid.UUID
	BorrowerName  string
	BorrowerEmail string
	Principal     decimal.Decimal
	Balance       decimal.Decimal
	Version       int64
	CreatedAt     time.Time
}

type EntryType string

const (
	EntryTypePayment EntryType = "payment"
	EntryTypeRefund  EntryType = "refund"
)

type LedgerEntry struct {
	ID        uuid.UUID
	LoanID    uuid.UUID
	PaymentID uuid.UUID
	EntryType EntryType
	Amount    decimal.Decimal
	CreatedAt time.Time
}
