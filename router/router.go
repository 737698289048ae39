package router

import (
	"go-bank-ledger/common"
	"go-bank-ledger/handler"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "go-bank-ledger/docs"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health      *handler.HealthHandler
	Account     *handler.AccountHandler
	Transaction *handler.TransactionHandler
	Loan        *handler.LoanHandler
	Penalty     *handler.PenaltyHandler
	Tokens      handler.TokenParser
	Registry    *prometheus.Registry
}

func NewRouter(h Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	if h.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(h.Registry, promhttp.HandlerOpts{Registry: h.Registry}))
	}

	auth := handler.AuthMiddleware(h.Tokens)
	protected := func(fn func(http.ResponseWriter, *http.Request) *common.AppError) http.Handler {
		return auth(handler.ErrorHandlingMiddleware(fn))
	}
	admin := func(fn func(http.ResponseWriter, *http.Request) *common.AppError) http.Handler {
		return auth(handler.AdminMiddleware(handler.ErrorHandlingMiddleware(fn)))
	}

	// Accounts
	mux.Handle("POST /api/accounts", protected(h.Account.CreateAccount))
	mux.Handle("GET /api/accounts", protected(h.Account.ListAccounts))
	mux.Handle("GET /api/accounts/{accountId}", protected(h.Account.GetAccount))
	mux.Handle("POST /api/accounts/{accountId}/withdraw", protected(h.Transaction.Withdraw))
	mux.Handle("GET /api/accounts/{accountId}/transactions", protected(h.Transaction.ListTransactionsForAccount))

	// Transfers
	mux.Handle("POST /api/transfers", protected(h.Transaction.CreateTransfer))
	mux.Handle("POST /api/transfers/external", protected(h.Transaction.CreateExternalTransfer))

	// Loans
	mux.Handle("POST /api/loans", protected(h.Loan.ApplyForLoan))
	mux.Handle("GET /api/loans", protected(h.Loan.ListLoans))
	mux.Handle("GET /api/loans/{loanId}", protected(h.Loan.GetLoan))
	mux.Handle("GET /api/loans/{loanId}/schedule", protected(h.Loan.GetSchedule))
	mux.Handle("GET /api/loans/{loanId}/payments", protected(h.Loan.ListPayments))
	mux.Handle("POST /api/loans/{loanId}/payments", protected(h.Loan.PayEMI))

	// Staff
	mux.Handle("POST /api/admin/accounts/{accountId}/deposit", admin(h.Transaction.Deposit))
	mux.Handle("GET /api/admin/transactions/{transactionId}", admin(h.Transaction.GetTransaction))
	mux.Handle("POST /api/admin/transactions/{transactionId}/reverse", admin(h.Transaction.ReverseTransaction))
	mux.Handle("POST /api/admin/loans/{loanId}/approve", admin(h.Loan.ApproveLoan))
	mux.Handle("POST /api/admin/loans/{loanId}/reject", admin(h.Loan.RejectLoan))
	mux.Handle("GET /api/admin/loans/{loanId}/penalties", admin(h.Penalty.ListLoanPenalties))
	mux.Handle("POST /api/admin/penalties/run", admin(h.Penalty.RunAccrual))
	mux.Handle("GET /api/admin/penalties/summary", admin(h.Penalty.GetSummary))
	mux.Handle("POST /api/admin/penalties/{penaltyId}/waive", admin(h.Penalty.WaivePenalty))
	mux.Handle("POST /api/admin/penalties/{penaltyId}/collect", admin(h.Penalty.CollectPenalty))

	return mux
}
