// Package http exposes the ledger over a JSON API. Every response uses
// the same envelope: status, message, and an optional data payload.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tenge/internal/cache"
	"tenge/internal/middleware/ratelimit"
	"tenge/internal/middleware/security"
	"tenge/internal/middleware/trace"
	"tenge/internal/services"
)

// Consumer-side slices of the service layer, narrowed to what the
// handlers call so tests can stub them.
type (
	UserOps interface {
		Register(ctx context.Context, email, password string) (*services.Result, error)
		Login(ctx context.Context, email, password string) (*services.Result, error)
		ChangeEmail(ctx context.Context, userID int64, newEmail string) (*services.Result, error)
		ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) (*services.Result, error)
		ChangeCurrency(ctx context.Context, userID int64, newCurrency string) (*services.Result, error)
	}

	AccountOps interface {
		Create(ctx context.Context, title string, amount decimal.Decimal, includeInTotal bool, userID int64) (*services.Result, error)
		List(ctx context.Context, userID int64) (*services.Result, error)
		Update(ctx context.Context, id int64, title string, includeInTotal bool, userID int64) (*services.Result, error)
		Delete(ctx context.Context, id, userID int64) (*services.Result, error)
	}

	CategoryOps interface {
		CreateIncome(ctx context.Context, title string, plan decimal.Decimal, userID int64) (*services.Result, error)
		CreateExpense(ctx context.Context, title string, plan decimal.Decimal, userID int64) (*services.Result, error)
		IncomeReport(ctx context.Context, userID int64) (*services.Result, error)
		ExpenseReport(ctx context.Context, userID int64) (*services.Result, error)
		UpdateIncome(ctx context.Context, id int64, title string, plan decimal.Decimal, userID int64) (*services.Result, error)
		UpdateExpense(ctx context.Context, id int64, title string, plan decimal.Decimal, userID int64) (*services.Result, error)
		DeleteIncome(ctx context.Context, id, userID int64) (*services.Result, error)
		DeleteExpense(ctx context.Context, id, userID int64) (*services.Result, error)
	}

	LedgerOps interface {
		Create(ctx context.Context, in services.CreateTransactionInput) (*services.Result, error)
		Update(ctx context.Context, in services.UpdateTransactionInput) (*services.Result, error)
		Delete(ctx context.Context, id, userID int64) (*services.Result, error)
		List(ctx context.Context, userID int64, year int, month time.Month) (*services.Result, error)
	}
)

type Server struct {
	http.Server

	users      UserOps
	accounts   AccountOps
	categories CategoryOps
	ledger     LedgerOps
	verifier   TokenVerifier

	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter

	// Read-side cache for report-shaped responses, keyed per user so a
	// write invalidates exactly that user's views.
	viewCache *cache.Cache[*services.Result]

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run
// server listening on addr.
func NewServer(addr string, users UserOps, accounts AccountOps, categories CategoryOps, ledger LedgerOps, verifier TokenVerifier) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		users:       users,
		accounts:    accounts,
		categories:  categories,
		ledger:      ledger,
		verifier:    verifier,
		tracer:      trace.NewMiddleware(clientIP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		viewCache:   cache.New[*services.Result](500, 5*time.Minute),
	}
	s.viewCache.StartJanitor(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("PUT /api/user/email", s.requireAuth(s.handleChangeEmail))
	mux.HandleFunc("PUT /api/user/password", s.requireAuth(s.handleChangePassword))
	mux.HandleFunc("PUT /api/user/currency", s.requireAuth(s.handleChangeCurrency))

	mux.HandleFunc("POST /api/accounts", s.requireAuth(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts", s.requireAuth(s.handleListAccounts))
	mux.HandleFunc("PUT /api/accounts/{id}", s.requireAuth(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.requireAuth(s.handleDeleteAccount))

	mux.HandleFunc("POST /api/categories/income", s.requireAuth(s.handleCreateIncomeCategory))
	mux.HandleFunc("GET /api/categories/income", s.requireAuth(s.handleIncomeReport))
	mux.HandleFunc("PUT /api/categories/income/{id}", s.requireAuth(s.handleUpdateIncomeCategory))
	mux.HandleFunc("DELETE /api/categories/income/{id}", s.requireAuth(s.handleDeleteIncomeCategory))
	mux.HandleFunc("POST /api/categories/expense", s.requireAuth(s.handleCreateExpenseCategory))
	mux.HandleFunc("GET /api/categories/expense", s.requireAuth(s.handleExpenseReport))
	mux.HandleFunc("PUT /api/categories/expense/{id}", s.requireAuth(s.handleUpdateExpenseCategory))
	mux.HandleFunc("DELETE /api/categories/expense/{id}", s.requireAuth(s.handleDeleteExpenseCategory))

	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("PUT /api/transactions/{id}", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.requireAuth(s.handleDeleteTransaction))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(func(r *http.Request) string { return clientIP(r) }, nil)

	s.Handler = s.tracer.Middleware(headers.Middleware(limited(mux)))

	return s
}

// Shutdown stops the HTTP server and the background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.viewCache.StopJanitor()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
