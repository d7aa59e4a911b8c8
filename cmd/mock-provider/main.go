package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/loanpost/payment-engine/internal/logging"
)

// In-memory stand-in for the Meridian ACH rail, used in local compose
// runs so the API has a rail to talk to. Transactions settle
// immediately; amounts prefixed "99" are declined so failure paths can
// be exercised by hand.

type transaction struct {
	ID        string `json:"transaction_id"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Memo      string `json:"memo"`
	Status    string `json:"status"`
}

type store struct {
	mu  sync.Mutex
	txs map[string]*transaction
}

func (s *store) create(reference, amount, memo string) *transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		ID:        "mtx_" + uuid.NewString(),
		Reference: reference,
		Amount:    amount,
		Memo:      memo,
		Status:    "settled",
	}
	if strings.HasPrefix(amount, "99") {
		tx.Status = "declined"
	}
	s.txs[tx.ID] = tx
	return tx
}

func (s *store) setStatus(id, status string) (*transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok {
		return nil, false
	}
	tx.Status = status
	return tx, true
}

func main() {
	logging.Init("mock-provider", "info", os.Getenv("APP_ENV"))

	s := &store{txs: make(map[string]*transaction)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /v1/transactions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reference string `json:"reference"`
			Amount    string `json:"amount"`
			Memo      string `json:"memo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error_code":    "BAD_REQUEST",
				"error_message": "invalid JSON body",
			})
			return
		}

		tx := s.create(req.Reference, req.Amount, req.Memo)
		slog.Info("transaction created", "transaction_id", tx.ID, "status", tx.Status)

		if tx.Status == "declined" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"transaction_id": tx.ID,
				"status":         tx.Status,
				"error_code":     "INSUFFICIENT_FUNDS",
				"error_message":  "the account has insufficient funds",
			})
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	})

	mux.HandleFunc("POST /v1/transactions/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		tx, ok := s.setStatus(r.PathValue("id"), "canceled")
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error_code":    "TRANSACTION_NOT_FOUND",
				"error_message": "no such transaction",
			})
			return
		}
		slog.Info("transaction canceled", "transaction_id", tx.ID)
		writeJSON(w, http.StatusOK, tx)
	})

	mux.HandleFunc("POST /v1/transactions/{id}/refund", func(w http.ResponseWriter, r *http.Request) {
		tx, ok := s.setStatus(r.PathValue("id"), "refunded")
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error_code":    "TRANSACTION_NOT_FOUND",
				"error_message": "no such transaction",
			})
			return
		}
		slog.Info("transaction refunded", "transaction_id", tx.ID)
		writeJSON(w, http.StatusOK, tx)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	addr := fmt.Sprintf(":%s", port)

	slog.Info("mock provider started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
