package handler

import (
	"context"
	"go-bank-ledger/model"
	"go-bank-ledger/service"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockAccountManager struct{ mock.Mock }

func (m *MockAccountManager) CreateNewAccount(ctx context.Context, userID int64, req model.OpenAccountRequest) (*model.Account, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountManager) GetAccount(ctx context.Context, userID, accountID int64) (*model.Account, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountManager) ListAccountsForUser(ctx context.Context, userID int64) ([]*model.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Account), args.Error(1)
}

type MockTransactionProcessor struct{ mock.Mock }

func (m *MockTransactionProcessor) transaction(args mock.Arguments) (*model.Transaction, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionProcessor) Deposit(ctx context.Context, accountID int64, req model.AmountRequest) (*model.Transaction, error) {
	return m.transaction(m.Called(ctx, accountID, req))
}

func (m *MockTransactionProcessor) Withdraw(ctx context.Context, userID, accountID int64, req model.AmountRequest) (*model.Transaction, error) {
	return m.transaction(m.Called(ctx, userID, accountID, req))
}

func (m *MockTransactionProcessor) Transfer(ctx context.Context, userID int64, req model.TransferRequest) (*model.Transaction, error) {
	return m.transaction(m.Called(ctx, userID, req))
}

func (m *MockTransactionProcessor) ExternalTransfer(ctx context.Context, userID int64, req model.ExternalTransferRequest) (*model.Transaction, error) {
	return m.transaction(m.Called(ctx, userID, req))
}

func (m *MockTransactionProcessor) Reverse(ctx context.Context, transactionID int64, reason string) (*model.Transaction, error) {
	return m.transaction(m.Called(ctx, transactionID, reason))
}

func (m *MockTransactionProcessor) GetTransaction(ctx context.Context, transactionID int64) (*model.Transaction, error) {
	return m.transaction(m.Called(ctx, transactionID))
}

func (m *MockTransactionProcessor) ListTransactionsForAccount(ctx context.Context, userID, accountID int64) ([]*model.Transaction, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

type MockLoanServicer struct{ mock.Mock }

func (m *MockLoanServicer) loan(args mock.Arguments) (*model.Loan, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Loan), args.Error(1)
}

func (m *MockLoanServicer) Apply(ctx context.Context, userID int64, req model.LoanApplicationRequest) (*model.Loan, error) {
	return m.loan(m.Called(ctx, userID, req))
}

func (m *MockLoanServicer) Approve(ctx context.Context, loanID int64, remarks string) (*model.Loan, error) {
	return m.loan(m.Called(ctx, loanID, remarks))
}

func (m *MockLoanServicer) Reject(ctx context.Context, loanID int64, remarks string) (*model.Loan, error) {
	return m.loan(m.Called(ctx, loanID, remarks))
}

func (m *MockLoanServicer) PayEMI(ctx context.Context, userID, loanID int64, req model.EMIPaymentRequest) (*model.LoanPayment, error) {
	args := m.Called(ctx, userID, loanID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoanPayment), args.Error(1)
}

func (m *MockLoanServicer) GetLoan(ctx context.Context, userID, loanID int64) (*model.Loan, error) {
	return m.loan(m.Called(ctx, userID, loanID))
}

func (m *MockLoanServicer) ListLoansForUser(ctx context.Context, userID int64) ([]*model.Loan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Loan), args.Error(1)
}

func (m *MockLoanServicer) GetSchedule(ctx context.Context, userID, loanID int64) ([]model.ScheduleEntry, error) {
	args := m.Called(ctx, userID, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ScheduleEntry), args.Error(1)
}

func (m *MockLoanServicer) ListPayments(ctx context.Context, userID, loanID int64) ([]*model.LoanPayment, error) {
	args := m.Called(ctx, userID, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.LoanPayment), args.Error(1)
}

type MockPenaltyManager struct{ mock.Mock }

func (m *MockPenaltyManager) RunForDate(ctx context.Context, asOf time.Time) (*service.PenaltyRunResult, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PenaltyRunResult), args.Error(1)
}

func (m *MockPenaltyManager) Waive(ctx context.Context, penaltyID int64, remarks string) (*model.LoanPenalty, error) {
	args := m.Called(ctx, penaltyID, remarks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoanPenalty), args.Error(1)
}

func (m *MockPenaltyManager) Collect(ctx context.Context, penaltyID int64) (*model.LoanPenalty, error) {
	args := m.Called(ctx, penaltyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoanPenalty), args.Error(1)
}

func (m *MockPenaltyManager) GetSummary(ctx context.Context) (*model.PenaltySummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PenaltySummary), args.Error(1)
}

func (m *MockPenaltyManager) GetLoanPenalties(ctx context.Context, loanID int64) ([]*model.LoanPenalty, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.LoanPenalty), args.Error(1)
}
