package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loanpost/payment-engine/internal/domain"
	"github.com/loanpost/payment-engine/internal/service"
)

type stubSweeper struct {
	result      service.SweepResult
	pendingErr  error
	eventErr    error
	lastEventID uuid.UUID
	lastLimit   int
}

func (s *stubSweeper) ProcessPending(ctx context.Context, limit int) (service.SweepResult, error) {
	s.lastLimit = limit
	return s.result, s.pendingErr
}

func (s *stubSweeper) ProcessEvent(ctx context.Context, id uuid.UUID) error {
	s.lastEventID = id
	return s.eventErr
}

func newOutboxRouter(sweep sweeper) *http.ServeMux {
	h := NewOutboxHandler(sweep, 50)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/payment-events/sweep", h.Sweep)
	mux.HandleFunc("POST /api/v1/payment-events/{id}/retry", h.Retry)
	return mux
}

func TestOutboxHandler_Sweep(t *testing.T) {
	eventID := uuid.New()
	sweep := &stubSweeper{result: service.SweepResult{
		Processed: 3,
		Failed:    1,
		Errors:    []service.SweepError{{EventID: eventID, Message: "handler exploded"}},
	}}
	mux := newOutboxRouter(sweep)

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/payment-events/sweep", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, sweep.lastLimit)

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, data["processed"])
	assert.EqualValues(t, 1, data["failed"])

	errs, ok := data["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
}

func TestOutboxHandler_Sweep_Error(t *testing.T) {
	mux := newOutboxRouter(&stubSweeper{pendingErr: errors.New("connection reset")})

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/payment-events/sweep", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOutboxHandler_Retry(t *testing.T) {
	sweep := &stubSweeper{}
	mux := newOutboxRouter(sweep)
	eventID := uuid.New()

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/payment-events/"+eventID.String()+"/retry", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, eventID, sweep.lastEventID)
}

func TestOutboxHandler_Retry_NotFound(t *testing.T) {
	mux := newOutboxRouter(&stubSweeper{eventErr: domain.ErrNotFound})

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/payment-events/"+uuid.NewString()+"/retry", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RESOURCE_NOT_FOUND", resp.Error.Code)
}

func TestOutboxHandler_Retry_BadID(t *testing.T) {
	mux := newOutboxRouter(&stubSweeper{})

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/payment-events/not-a-uuid/retry", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
