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

const loanColumns = `id, borrower_name, borrower_email, principal, balance, version, created_at`

type LoanRepository struct {
	db *sql.DB
}

func NewLoanRepository(db *sql.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO loans (id, borrower_name, borrower_email, principal, balance, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		loan.ID, loan.BorrowerName, loan.BorrowerEmail, loan.Principal, loan.Balance,
		loan.Version, loan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id,
	)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return l, nil
}

// UpdateBalance writes a new balance guarded by the loan's version so two
// handlers applying payments concurrently cannot silently lose one.
func (r *LoanRepository) UpdateBalance(ctx context.Context, id uuid.UUID, newBalance decimal.Decimal, expectedVersion int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE loans SET balance = $1, version = version + 1
		WHERE id = $2 AND version = $3`,
		newBalance, id, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateBalance: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanLoan(s scanner) (*domain.Loan, error) {
	var l domain.Loan
	err := s.Scan(
		&l.ID, &l.BorrowerName, &l.BorrowerEmail, &l.Principal, &l.Balance,
		&l.Version, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
