package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loanpost/payment-engine/internal/domain"
)

func SeedLoan(t *testing.T, db *sql.DB, borrowerName, borrowerEmail string, principal decimal.Decimal) *domain.Loan {
	t.Helper()

	loan := &domain.Loan{
		ID:            uuid.New(),
		BorrowerName:  borrowerName,
		BorrowerEmail: borrowerEmail,
		Principal:     principal,
		Balance:       principal,
		Version:       1,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO loans (id, borrower_name, borrower_email, principal, balance, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		loan.ID, loan.BorrowerName, loan.BorrowerEmail, loan.Principal, loan.Balance,
		loan.Version, loan.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	return loan
}

func SeedPayment(t *testing.T, db *sql.DB, loanID uuid.UUID, amount decimal.Decimal, status domain.PaymentStatus) *domain.Payment {
	t.Helper()

	now := time.Now().UTC()
	p := &domain.Payment{
		ID:        uuid.New(),
		LoanID:    loanID,
		Amount:    amount,
		Status:    status,
		Provider:  "meridian",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := db.Exec(
		`INSERT INTO payments (id, loan_id, amount, status, provider, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.LoanID, p.Amount, p.Status, p.Provider, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return p
}

func GetPaymentStatus(t *testing.T, db *sql.DB, id uuid.UUID) domain.PaymentStatus {
	t.Helper()

	var status domain.PaymentStatus
	if err := db.QueryRow(`SELECT status FROM payments WHERE id = $1`, id).Scan(&status); err != nil {
		t.Fatalf("get payment status: %v", err)
	}
	return status
}

func CountOutboxRows(t *testing.T, db *sql.DB, paymentID uuid.UUID) int {
	t.Helper()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM payment_events WHERE payment_id = $1`, paymentID).Scan(&n); err != nil {
		t.Fatalf("count outbox rows: %v", err)
	}
	return n
}
