package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventForTransition(t *testing.T) {
	p := testPayment()
	now := time.Now().UTC()

	t.Run("processing", func(t *testing.T) {
		evt := EventForTransition(p, PaymentStatusCreated, PaymentStatusProcessing, TransitionMeta{}, now)
		processing, ok := evt.(PaymentProcessing)
		require.True(t, ok)
		assert.Equal(t, p.ID, processing.PaymentID())
		assert.Equal(t, PaymentStatusCreated, processing.PreviousStatus)
	})

	t.Run("succeeded", func(t *testing.T) {
		evt := EventForTransition(p, PaymentStatusProcessing, PaymentStatusSucceeded, TransitionMeta{}, now)
		succeeded, ok := evt.(PaymentSucceeded)
		require.True(t, ok)
		assert.Equal(t, p.LoanID, succeeded.LoanID)
		assert.True(t, succeeded.Amount.Equal(p.Amount))
	})

	t.Run("cancelled carries reason", func(t *testing.T) {
		reason := "borrower request"
		evt := EventForTransition(p, PaymentStatusCreated, PaymentStatusCancelled,
			TransitionMeta{CancelledReason: &reason}, now)
		cancelled, ok := evt.(PaymentCancelled)
		require.True(t, ok)
		assert.Equal(t, "borrower request", cancelled.Reason)
	})

	t.Run("refund defaults to full amount", func(t *testing.T) {
		evt := EventForTransition(p, PaymentStatusSucceeded, PaymentStatusRefunded, TransitionMeta{}, now)
		refunded, ok := evt.(PaymentRefunded)
		require.True(t, ok)
		assert.True(t, refunded.RefundAmount.Equal(p.Amount))
	})

	t.Run("partial refund", func(t *testing.T) {
		partial := decimal.NewFromFloat(100.00)
		evt := EventForTransition(p, PaymentStatusSucceeded, PaymentStatusRefunded,
			TransitionMeta{RefundAmount: &partial}, now)
		refunded, ok := evt.(PaymentRefunded)
		require.True(t, ok)
		assert.True(t, refunded.RefundAmount.Equal(partial))
	})

	t.Run("same status yields nothing", func(t *testing.T) {
		assert.Nil(t, EventForTransition(p, PaymentStatusProcessing, PaymentStatusProcessing, TransitionMeta{}, now))
	})

	t.Run("created yields nothing", func(t *testing.T) {
		assert.Nil(t, EventForTransition(p, PaymentStatusFailed, PaymentStatusCreated, TransitionMeta{}, now))
	})
}

func TestEncodeDecodeEvent(t *testing.T) {
	p := testPayment()
	now := time.Now().UTC().Truncate(time.Second)

	code := "RETURNED"
	msg := "transaction returned by receiving bank"
	original := EventForTransition(p, PaymentStatusProcessing, PaymentStatusFailed,
		TransitionMeta{ErrorCode: &code, ErrorMessage: &msg}, now)

	payload, err := EncodeEvent(original)
	require.NoError(t, err)

	decoded, err := DecodeEvent(EventTypePaymentFailed, payload)
	require.NoError(t, err)

	failed, ok := decoded.(PaymentFailed)
	require.True(t, ok)
	assert.Equal(t, p.ID, failed.PaymentID())
	assert.Equal(t, "RETURNED", failed.ErrorCode)
	assert.Equal(t, PaymentStatusProcessing, failed.PreviousStatus)
	assert.True(t, failed.OccurredAt().Equal(now))
}

func TestDecodeEvent_UnknownType(t *testing.T) {
	_, err := DecodeEvent("payment.archived", []byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestDecodeEvent_MalformedPayload(t *testing.T) {
	_, err := DecodeEvent(EventTypePaymentSucceeded, []byte(`{not json`))
	require.Error(t, err)
}
