package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrVersionConflict   = errors.New("optimistic lock conflict")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnknownEventType  = errors.New("unknown payment event type")
)
