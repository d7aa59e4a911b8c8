package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/loanpost/payment-engine/internal/domain"
)

const ledgerColumns = `id, loan_id, payment_id, entry_type, amount, created_at`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, loan_id, payment_id, entry_type, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.LoanID, entry.PaymentID, entry.EntryType, entry.Amount, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]domain.LedgerEntry, error) {
	return r.query(ctx, "GetByPaymentID",
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE payment_id = $1 ORDER BY created_at`,
		paymentID)
}

func (r *LedgerRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]domain.LedgerEntry, error) {
	return r.query(ctx, "GetByLoanID",
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE loan_id = $1 ORDER BY created_at`,
		loanID)
}

func (r *LedgerRepository) query(ctx context.Context, op, q string, arg any) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return entries, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := s.Scan(&e.ID, &e.LoanID, &e.PaymentID, &e.EntryType, &e.Amount, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
