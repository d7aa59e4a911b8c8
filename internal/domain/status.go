package domain

import "fmt"

type PaymentStatus string

const (
	PaymentStatusCreated    PaymentStatus = "created"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusCreated, PaymentStatusProcessing, PaymentStatusSucceeded,
		PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s PaymentStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0 && s.IsValid()
}

// allowedTransitions maps each status to the statuses it may move to.
// failed -> processing is the retry path; cancelled and refunded are terminal.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusCreated:    {PaymentStatusProcessing, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusSucceeded:  {PaymentStatusRefunded},
	PaymentStatusFailed:     {PaymentStatusProcessing},
	PaymentStatusCancelled:  {},
	PaymentStatusRefunded:   {},
}

// CanTransition reports whether from may move to to. A same-status
// transition is allowed and treated as a no-op by the aggregate.
func CanTransition(from, to PaymentStatus) bool {
	if from == to {
		return from.IsValid()
	}
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to PaymentStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("cannot move %s to %s, allowed targets %v: %w",
		from, to, allowedTransitions[from], ErrInvalidTransition)
}
