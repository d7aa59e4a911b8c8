package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// PaymentEventRecord is a transactional-outbox row: the durable copy of a
// domain event, written before any dispatch attempt and never deleted, so
// failed deliveries can be retried by the sweep.
type PaymentEventRecord struct {
	ID           uuid.UUID
	PaymentID    uuid.UUID
	EventType    EventType
	Payload      json.RawMessage
	Status       OutboxStatus
	CreatedAt    time.Time
	ProcessedAt  *time.Time
	ErrorMessage *string
}
