package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/loanpost/payment-engine/internal/config"
	"github.com/loanpost/payment-engine/internal/domain"
	"github.com/loanpost/payment-engine/internal/eventbus"
	"github.com/loanpost/payment-engine/internal/handler"
	"github.com/loanpost/payment-engine/internal/logging"
	"github.com/loanpost/payment-engine/internal/middleware"
	"github.com/loanpost/payment-engine/internal/provider"
	"github.com/loanpost/payment-engine/internal/repository"
	"github.com/loanpost/payment-engine/internal/service"
	"github.com/loanpost/payment-engine/internal/sideeffect"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("payment-engine", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	paymentRepo := repository.NewPaymentRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)

	bus := eventbus.New()
	sideeffect.Register(bus, buildCapabilities(loanRepo, ledgerRepo), slog.Default())

	rail := provider.NewMeridian(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderMemoPrefix)
	paymentSvc := service.NewService(paymentRepo, outboxRepo, bus, rail)

	sweep := service.NewSweep(outboxRepo, bus, slog.Default(),
		time.Duration(cfg.SweepIntervalS)*time.Second, cfg.SweepBatchSize)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweep.Start(sweepCtx)

	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	outboxHandler := handler.NewOutboxHandler(sweep, cfg.SweepBatchSize)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("POST /api/v1/payments", paymentHandler.Create)
	mux.HandleFunc("GET /api/v1/payments/{id}", paymentHandler.Get)
	mux.HandleFunc("POST /api/v1/payments/{id}/transition", paymentHandler.Transition)
	mux.HandleFunc("GET /api/v1/loans/{id}/payments", paymentHandler.ListForLoan)
	mux.HandleFunc("POST /api/v1/payment-events/sweep", outboxHandler.Sweep)
	mux.HandleFunc("POST /api/v1/payment-events/{id}/retry", outboxHandler.Retry)

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// buildCapabilities backs the side-effect handlers with the loan and
// ledger stores. Email delivery is log-only until an outbound mail
// integration is wired by the surrounding application.
func buildCapabilities(loans *repository.LoanRepository, ledger *repository.LedgerRepository) sideeffect.Capabilities {
	return sideeffect.Capabilities{
		SendEmail: func(ctx context.Context, to, subject, body string) error {
			logging.FromContext(ctx).Info("email queued", "to", to, "subject", subject)
			return nil
		},
		UpdateLoanBalance: func(ctx context.Context, loanID uuid.UUID, delta decimal.Decimal) error {
			loan, err := loans.GetByID(ctx, loanID)
			if err != nil {
				return err
			}
			return loans.UpdateBalance(ctx, loanID, loan.Balance.Add(delta), loan.Version)
		},
		UpdateLedger: func(ctx context.Context, loanID, paymentID uuid.UUID, amount decimal.Decimal, entry domain.EntryType) error {
			return ledger.Create(ctx, &domain.LedgerEntry{
				ID:        uuid.New(),
				LoanID:    loanID,
				PaymentID: paymentID,
				EntryType: entry,
				Amount:    amount,
				CreatedAt: time.Now().UTC(),
			})
		},
		LogFailure: func(ctx context.Context, paymentID uuid.UUID, code, message string) error {
			logging.FromContext(ctx).Error("payment failure recorded",
				"payment_id", paymentID, "code", code, "message", message)
			return nil
		},
		GetLoanDetails: func(ctx context.Context, loanID uuid.UUID) (sideeffect.LoanDetails, error) {
			loan, err := loans.GetByID(ctx, loanID)
			if err != nil {
				return sideeffect.LoanDetails{}, err
			}
			return sideeffect.LoanDetails{
				BorrowerName:  loan.BorrowerName,
				BorrowerEmail: loan.BorrowerEmail,
			}, nil
		},
	}
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		var db *sql.DB
		db, err = repository.NewPostgresDB(context.Background(), cfg.DatabaseURL, pool)
		if err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
