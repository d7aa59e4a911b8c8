package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/loanpost/payment-engine/internal/domain"
)

const outboxColumns = `id, payment_id, event_type, payload, status,
	created_at, processed_at, error_message`

// OutboxRepository owns the durable retry ledger for domain events. Rows
// are inserted pending, flipped to processed or failed after a dispatch
// attempt, and never deleted.
type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, rec *domain.PaymentEventRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_events (
			id, payment_id, event_type, payload, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.PaymentID, rec.EventType, rec.Payload, rec.Status, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *OutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentEventRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+outboxColumns+` FROM payment_events WHERE id = $1`, id,
	)
	rec, err := scanOutboxRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return rec, nil
}

// GetPending returns undelivered rows oldest-first so the sweep replays
// events in the order their transitions happened.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]domain.PaymentEventRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+outboxColumns+` FROM payment_events
		WHERE status = $1 ORDER BY created_at LIMIT $2`,
		domain.OutboxStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("GetPending: %w", err)
	}
	defer rows.Close()

	var records []domain.PaymentEventRecord
	for rows.Next() {
		rec, err := scanOutboxRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("GetPending: scan: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetPending: rows: %w", err)
	}
	return records, nil
}

// MarkProcessed is an unconditional status update; callers are responsible
// for the pending -> processed/failed ordering.
func (r *OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_events SET status = $1, processed_at = now(), error_message = NULL
		WHERE id = $2`,
		domain.OutboxStatusProcessed, id,
	)
	if err != nil {
		return fmt.Errorf("MarkProcessed: %w", err)
	}
	return requireRow(res, "MarkProcessed")
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_events SET status = $1, error_message = $2
		WHERE id = $3`,
		domain.OutboxStatusFailed, message, id,
	)
	if err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}
	return requireRow(res, "MarkFailed")
}

func requireRow(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func scanOutboxRecord(s scanner) (*domain.PaymentEventRecord, error) {
	var rec domain.PaymentEventRecord
	err := s.Scan(
		&rec.ID, &rec.PaymentID, &rec.EventType, &rec.Payload, &rec.Status,
		&rec.CreatedAt, &rec.ProcessedAt, &rec.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
