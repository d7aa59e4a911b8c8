package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loanpost/payment-engine/internal/domain"
	"github.com/loanpost/payment-engine/internal/service"
)

type stubPaymentService struct {
	payment        *domain.Payment
	payments       []domain.Payment
	err            error
	lastCreate     service.CreatePaymentRequest
	lastTransition service.TransitionRequest
}

func (s *stubPaymentService) CreatePayment(ctx context.Context, req service.CreatePaymentRequest) (*domain.Payment, error) {
	s.lastCreate = req
	return s.payment, s.err
}

func (s *stubPaymentService) TransitionPayment(ctx context.Context, req service.TransitionRequest) (*domain.Payment, error) {
	s.lastTransition = req
	return s.payment, s.err
}

func (s *stubPaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return s.payment, s.err
}

func (s *stubPaymentService) ListLoanPayments(ctx context.Context, loanID uuid.UUID) ([]domain.Payment, error) {
	return s.payments, s.err
}

func stubPayment() *domain.Payment {
	now := time.Now().UTC()
	return &domain.Payment{
		ID:        uuid.New(),
		LoanID:    uuid.New(),
		Amount:    decimal.NewFromFloat(250.00),
		Status:    domain.PaymentStatusCreated,
		Provider:  "meridian",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newRouter(svc paymentService) *http.ServeMux {
	h := NewPaymentHandler(svc)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/payments", h.Create)
	mux.HandleFunc("GET /api/v1/payments/{id}", h.Get)
	mux.HandleFunc("POST /api/v1/payments/{id}/transition", h.Transition)
	mux.HandleFunc("GET /api/v1/loans/{id}/payments", h.ListForLoan)
	return mux
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestPaymentHandler_Create(t *testing.T) {
	svc := &stubPaymentService{payment: stubPayment()}
	mux := newRouter(svc)

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/payments", map[string]any{
		"loan_id":  svc.payment.LoanID.String(),
		"amount":   "250.00",
		"provider": "meridian",
		"memo":     "loan repayment",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/payments/"+svc.payment.ID.String(), rec.Header().Get("Location"))

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	assert.Equal(t, svc.payment.LoanID, svc.lastCreate.LoanID)
	assert.True(t, svc.lastCreate.Amount.Equal(decimal.NewFromFloat(250)))
	assert.Equal(t, "loan repayment", svc.lastCreate.Memo)
}

func TestPaymentHandler_Create_ValidationFailed(t *testing.T) {
	mux := newRouter(&stubPaymentService{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing loan id", map[string]any{"amount": "10"}},
		{"malformed loan id", map[string]any{"loan_id": "not-a-uuid", "amount": "10"}},
		{"zero amount", map[string]any{"loan_id": uuid.NewString(), "amount": "0"}},
		{"negative amount", map[string]any{"loan_id": uuid.NewString(), "amount": "-5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, mux, http.MethodPost, "/api/v1/payments", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
		})
	}
}

func TestPaymentHandler_Create_MalformedJSON(t *testing.T) {
	mux := newRouter(&stubPaymentService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
}

func TestPaymentHandler_Transition(t *testing.T) {
	p := stubPayment()
	p.Status = domain.PaymentStatusProcessing
	svc := &stubPaymentService{payment: p}
	mux := newRouter(svc)

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/payments/"+p.ID.String()+"/transition",
		map[string]any{"status": "processing"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, p.ID, svc.lastTransition.PaymentID)
	assert.Equal(t, domain.PaymentStatusProcessing, svc.lastTransition.NewStatus)
}

func TestPaymentHandler_Transition_MetaPassedThrough(t *testing.T) {
	p := stubPayment()
	svc := &stubPaymentService{payment: p}
	mux := newRouter(svc)

	doRequest(t, mux, http.MethodPost, "/api/v1/payments/"+p.ID.String()+"/transition",
		map[string]any{
			"status":        "failed",
			"error_code":    "INSUFFICIENT_FUNDS",
			"error_message": "the account has insufficient funds",
		})

	require.NotNil(t, svc.lastTransition.Meta.ErrorCode)
	assert.Equal(t, "INSUFFICIENT_FUNDS", *svc.lastTransition.Meta.ErrorCode)
	require.NotNil(t, svc.lastTransition.Meta.ErrorMessage)
}

func TestPaymentHandler_Transition_ErrorMapping(t *testing.T) {
	p := stubPayment()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusUnprocessableEntity, "INVALID_TRANSITION"},
		{"version conflict", domain.ErrVersionConflict, http.StatusConflict, "VERSION_CONFLICT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newRouter(&stubPaymentService{err: tt.err})

			rec := doRequest(t, mux, http.MethodPost, "/api/v1/payments/"+p.ID.String()+"/transition",
				map[string]any{"status": "processing"})

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestPaymentHandler_Transition_UnknownStatus(t *testing.T) {
	mux := newRouter(&stubPaymentService{})

	rec := doRequest(t, mux, http.MethodPost, "/api/v1/payments/"+uuid.NewString()+"/transition",
		map[string]any{"status": "settled"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestPaymentHandler_Get(t *testing.T) {
	p := stubPayment()
	mux := newRouter(&stubPaymentService{payment: p})

	rec := doRequest(t, mux, http.MethodGet, "/api/v1/payments/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, p.ID.String(), data["id"])
	assert.Equal(t, "created", data["status"])
}

func TestPaymentHandler_Get_BadID(t *testing.T) {
	mux := newRouter(&stubPaymentService{})

	rec := doRequest(t, mux, http.MethodGet, "/api/v1/payments/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentHandler_ListForLoan(t *testing.T) {
	p := stubPayment()
	mux := newRouter(&stubPaymentService{payments: []domain.Payment{*p}})

	rec := doRequest(t, mux, http.MethodGet, "/api/v1/loans/"+p.LoanID.String()+"/payments", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, data, 1)
}

func TestPaymentHandler_ListForLoan_Empty(t *testing.T) {
	mux := newRouter(&stubPaymentService{})

	rec := doRequest(t, mux, http.MethodGet, "/api/v1/loans/"+uuid.NewString()+"/payments", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Empty(t, data)
}
