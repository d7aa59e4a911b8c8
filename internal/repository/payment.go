package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loanpost/payment-engine/internal/domain"
)

const paymentColumns = `id, loan_id, amount, status, provider, provider_transaction_id,
	provider_data, error_code, error_message, cancelled_reason, refund_amount,
	version, created_at, updated_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (
			id, loan_id, amount, status, provider, provider_transaction_id,
			provider_data, error_code, error_message, cancelled_reason, refund_amount,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.LoanID, p.Amount, p.Status, p.Provider, p.ProviderTransactionID,
		nullBytes(p.ProviderData), p.ErrorCode, p.ErrorMessage, p.CancelledReason, p.RefundAmount,
		p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return p, nil
}

// Update writes the mutable fields guarded by a version compare-and-swap.
// A zero-row update against an existing payment means a concurrent
// transition won the race; callers see ErrVersionConflict and must reload.
// On success the payment's Version is bumped in place.
func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET
			status = $1, provider_transaction_id = $2, provider_data = $3,
			error_code = $4, error_message = $5, cancelled_reason = $6,
			refund_amount = $7, version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10`,
		p.Status, p.ProviderTransactionID, nullBytes(p.ProviderData),
		p.ErrorCode, p.ErrorMessage, p.CancelledReason,
		p.RefundAmount, p.UpdatedAt,
		p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := r.GetByID(ctx, p.ID); errors.Is(getErr, domain.ErrNotFound) {
			return fmt.Errorf("Update: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("Update: %w", domain.ErrVersionConflict)
	}

	p.Version++
	return nil
}

func (r *PaymentRepository) FindByLoanID(ctx context.Context, loanID uuid.UUID) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE loan_id = $1 ORDER BY created_at`, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("FindByLoanID: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("FindByLoanID: scan: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FindByLoanID: rows: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) FindByProviderTransactionID(ctx context.Context, provider, transactionID string) (*domain.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		WHERE provider = $1 AND provider_transaction_id = $2`,
		provider, transactionID,
	)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("FindByProviderTransactionID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("FindByProviderTransactionID: %w", err)
	}
	return p, nil
}

func scanPayment(s scanner) (*domain.Payment, error) {
	var p domain.Payment
	var refundAmount decimal.NullDecimal
	var providerData *[]byte

	err := s.Scan(
		&p.ID, &p.LoanID, &p.Amount, &p.Status, &p.Provider, &p.ProviderTransactionID,
		&providerData, &p.ErrorCode, &p.ErrorMessage, &p.CancelledReason, &refundAmount,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if refundAmount.Valid {
		p.RefundAmount = &refundAmount.Decimal
	}
	if providerData != nil {
		p.ProviderData = *providerData
	}

	return &p, nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
