package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/loanpost/payment-engine/internal/domain"
	"github.com/loanpost/payment-engine/internal/logging"
)

const (
	meridianName    = "meridian"
	meridianMemoMax = 40
)

// Meridian is the ACH rail adapter. Each call authenticates with the API
// key header; the rail has no session state.
type Meridian struct {
	baseURL    string
	apiKey     string
	memoPrefix string
	httpClient *http.Client
}

func NewMeridian(baseURL, apiKey, memoPrefix string) *Meridian {
	return &Meridian{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		memoPrefix: memoPrefix,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (m *Meridian) Name() string { return meridianName }

type meridianTransaction struct {
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Memo      string `json:"memo"`
}

type meridianResponse struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	ErrorCode     string          `json:"error_code"`
	ErrorMessage  string          `json:"error_message"`
	Raw           json.RawMessage `json:"-"`
}

func (m *Meridian) CreateTransaction(ctx context.Context, req TransactionRequest) Result {
	payload := meridianTransaction{
		Reference: req.PaymentID.String(),
		Amount:    req.Amount.StringFixed(2),
		Memo:      m.memo(req.Memo),
	}
	return m.do(ctx, http.MethodPost, "/v1/transactions", payload)
}

func (m *Meridian) CancelTransaction(ctx context.Context, req TransactionRequest) Result {
	if req.TransactionID == "" {
		return Failure("MISSING_TRANSACTION_ID", "cancel requires a provider transaction id")
	}
	return m.do(ctx, http.MethodPost, "/v1/transactions/"+req.TransactionID+"/cancel", nil)
}

func (m *Meridian) RefundTransaction(ctx context.Context, req TransactionRequest) Result {
	if req.TransactionID == "" {
		return Failure("MISSING_TRANSACTION_ID", "refund requires a provider transaction id")
	}
	payload := map[string]string{"amount": req.Amount.StringFixed(2)}
	return m.do(ctx, http.MethodPost, "/v1/transactions/"+req.TransactionID+"/refund", payload)
}

// SyncTransaction is not offered by the Meridian API; status changes
// arrive through its webhook callbacks instead.
func (m *Meridian) SyncTransaction(ctx context.Context, req TransactionRequest) Result {
	return NotImplemented("SyncTransaction")
}

func (m *Meridian) MapProviderStatus(status string) (domain.PaymentStatus, bool) {
	switch status {
	case "submitted", "processing":
		return domain.PaymentStatusProcessing, true
	case "settled":
		return domain.PaymentStatusSucceeded, true
	case "declined", "returned":
		return domain.PaymentStatusFailed, true
	case "canceled":
		return domain.PaymentStatusCancelled, true
	case "refunded":
		return domain.PaymentStatusRefunded, true
	}
	return "", false
}

func (m *Meridian) do(ctx context.Context, method, path string, payload any) Result {
	log := logging.FromContext(ctx)

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Failure("ENCODE_FAILED", err.Error())
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, body)
	if err != nil {
		return Failure("REQUEST_BUILD_FAILED", err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	start := time.Now()
	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		log.Warn("provider request failed", "provider", meridianName, "path", path, "error", err)
		return Failure("PROVIDER_UNREACHABLE", err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Failure("READ_FAILED", err.Error())
	}

	log.Info("provider response received",
		"provider", meridianName,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var decoded meridianResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return Failure("MALFORMED_RESPONSE", fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(raw), 256)))
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code := decoded.ErrorCode
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
		}
		msg := decoded.ErrorMessage
		if msg == "" {
			msg = truncate(string(raw), 256)
		}
		return Failure(code, msg)
	}

	return Result{
		Success:       true,
		TransactionID: decoded.TransactionID,
		Data:          json.RawMessage(raw),
	}
}

// memo builds the statement memo under the rail's field constraints:
// printable ASCII only, at most 40 characters including the prefix.
func (m *Meridian) memo(s string) string {
	full := s
	if m.memoPrefix != "" {
		full = m.memoPrefix + " " + s
	}

	var b strings.Builder
	for _, r := range full {
		if r <= unicode.MaxASCII && unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	return truncate(strings.TrimSpace(b.String()), meridianMemoMax)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
