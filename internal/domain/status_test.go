package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []PaymentStatus{
	PaymentStatusCreated,
	PaymentStatusProcessing,
	PaymentStatusSucceeded,
	PaymentStatusFailed,
	PaymentStatusCancelled,
	PaymentStatusRefunded,
}

func TestCanTransition(t *testing.T) {
	allowed := map[PaymentStatus][]PaymentStatus{
		PaymentStatusCreated:    {PaymentStatusProcessing, PaymentStatusCancelled},
		PaymentStatusProcessing: {PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusCancelled},
		PaymentStatusSucceeded:  {PaymentStatusRefunded},
		PaymentStatusFailed:     {PaymentStatusProcessing},
		PaymentStatusCancelled:  {},
		PaymentStatusRefunded:   {},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := from == to
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	assert.False(t, CanTransition("settled", PaymentStatusSucceeded))
	assert.False(t, CanTransition(PaymentStatusCreated, "settled"))
	assert.False(t, CanTransition("settled", "settled"))
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(PaymentStatusCreated, PaymentStatusProcessing))
	require.NoError(t, ValidateTransition(PaymentStatusFailed, PaymentStatusProcessing))
	require.NoError(t, ValidateTransition(PaymentStatusSucceeded, PaymentStatusSucceeded))

	err := ValidateTransition(PaymentStatusSucceeded, PaymentStatusFailed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "succeeded")
	assert.Contains(t, err.Error(), "failed")
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, PaymentStatusCancelled.IsTerminal())
	assert.True(t, PaymentStatusRefunded.IsTerminal())

	assert.False(t, PaymentStatusCreated.IsTerminal())
	assert.False(t, PaymentStatusProcessing.IsTerminal())
	assert.False(t, PaymentStatusSucceeded.IsTerminal())
	assert.False(t, PaymentStatusFailed.IsTerminal())
	assert.False(t, PaymentStatus("settled").IsTerminal())
}

func TestIsValid(t *testing.T) {
	for _, s := range allStatuses {
		assert.True(t, s.IsValid(), "%s", s)
	}
	assert.False(t, PaymentStatus("").IsValid())
	assert.False(t, PaymentStatus("settled").IsValid())
}
