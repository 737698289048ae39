package service

import (
	"context"
	"database/sql"
	"go-bank-ledger/model"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for every repository, used by the
// multi-step loan and penalty scenarios. It hands out copies so services
// only see changes they persisted.
type fakeStore struct {
	mu           sync.Mutex
	nextID       int64
	accounts     map[int64]*model.Account
	transactions map[int64]*model.Transaction
	loans        map[int64]*model.Loan
	payments     map[int64][]*model.LoanPayment
	penalties    map[int64]*model.LoanPenalty
	loanLockErr  map[int64]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:       100,
		accounts:     map[int64]*model.Account{},
		transactions: map[int64]*model.Transaction{},
		loans:        map[int64]*model.Loan{},
		payments:     map[int64][]*model.LoanPayment{},
		penalties:    map[int64]*model.LoanPenalty{},
		loanLockErr:  map[int64]error{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addAccount(acc model.Account) *model.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	if acc.Status == "" {
		acc.Status = model.AccountStatusActive
	}
	if acc.Currency == "" {
		acc.Currency = "USD"
	}
	f.accounts[acc.ID] = &acc
	return &acc
}

func (f *fakeStore) addLoan(loan model.Loan) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loans[loan.ID] = &loan
}

func (f *fakeStore) balance(id int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id].Balance
}

func (f *fakeStore) loan(id int64) model.Loan {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.loans[id]
}

func (f *fakeStore) penaltyRows(loanID int64) []model.LoanPenalty {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []model.LoanPenalty
	for _, p := range f.penalties {
		if p.LoanID == loanID {
			rows = append(rows, *p)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].InstallmentNumber < rows[j].InstallmentNumber })
	return rows
}

// accounts

func (f *fakeStore) CreateAccount(_ context.Context, account *model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account.ID = f.id()
	acc := *account
	f.accounts[acc.ID] = &acc
	return nil
}

func (f *fakeStore) GetLastAccountNumber(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last int64
	for _, acc := range f.accounts {
		if acc.AccountNumber > last {
			last = acc.AccountNumber
		}
	}
	return last, nil
}

func (f *fakeStore) GetAccountByID(_ context.Context, id int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *acc
	return &c, nil
}

func (f *fakeStore) GetAccountByNumber(_ context.Context, number int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.AccountNumber == number {
			c := *acc
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetAccountsByUserID(_ context.Context, userID int64) ([]*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Account
	for _, acc := range f.accounts {
		if acc.UserID == userID {
			c := *acc
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetAccountForUpdate(ctx context.Context, _ *sql.Tx, id int64) (*model.Account, error) {
	return f.GetAccountByID(ctx, id)
}

func (f *fakeStore) UpdateAccountBalance(_ context.Context, _ *sql.Tx, id int64, balance decimal.Decimal, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[id].Balance = balance
	f.accounts[id].UpdatedAt = updatedAt
	return nil
}

// transactions

func (f *fakeStore) CreateTransaction(_ context.Context, _ *sql.Tx, t *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.id()
	c := *t
	f.transactions[t.ID] = &c
	return nil
}

func (f *fakeStore) GetTransactionByID(_ context.Context, id int64) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *t
	return &c, nil
}

func (f *fakeStore) GetTransactionForUpdate(ctx context.Context, _ *sql.Tx, id int64) (*model.Transaction, error) {
	return f.GetTransactionByID(ctx, id)
}

func (f *fakeStore) UpdateTransactionStatus(_ context.Context, _ *sql.Tx, id int64, status model.TransactionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions[id].Status = status
	return nil
}

func (f *fakeStore) IsLoanEntry(_ context.Context, _ *sql.Tx, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.loans {
		if l.DisbursementTxID != nil && *l.DisbursementTxID == id {
			return true, nil
		}
	}
	for _, payments := range f.payments {
		for _, p := range payments {
			if p.TransactionID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStore) GetTransactionsByAccountID(_ context.Context, accountID int64, limit int) ([]*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Transaction
	for _, t := range f.transactions {
		if (t.FromAccountID != nil && *t.FromAccountID == accountID) || (t.ToAccountID != nil && *t.ToAccountID == accountID) {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// loans

func (f *fakeStore) CreateLoan(_ context.Context, loan *model.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	loan.ID = f.id()
	c := *loan
	f.loans[loan.ID] = &c
	return nil
}

func (f *fakeStore) GetLoanByID(_ context.Context, id int64) (*model.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loan, ok := f.loans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *loan
	return &c, nil
}

func (f *fakeStore) GetLoanForUpdate(ctx context.Context, _ *sql.Tx, id int64) (*model.Loan, error) {
	f.mu.Lock()
	err := f.loanLockErr[id]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.GetLoanByID(ctx, id)
}

func (f *fakeStore) GetLoansByUserID(_ context.Context, userID int64) ([]*model.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Loan
	for _, loan := range f.loans {
		if loan.UserID == userID {
			c := *loan
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetLoanIDsByStatus(_ context.Context, status model.LoanStatus) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, loan := range f.loans {
		if loan.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeStore) UpdateLoan(_ context.Context, _ *sql.Tx, loan *model.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *loan
	f.loans[loan.ID] = &c
	return nil
}

func (f *fakeStore) UpdateTotalPenalty(_ context.Context, _ *sql.Tx, loanID int64, total decimal.Decimal, updatedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loan := f.loans[loanID]
	if loan.TotalPenalty.Equal(total) {
		return false, nil
	}
	loan.TotalPenalty = total
	loan.UpdatedAt = updatedAt
	return true, nil
}

// payments

func (f *fakeStore) CreatePayment(_ context.Context, _ *sql.Tx, payment *model.LoanPayment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment.ID = f.id()
	c := *payment
	f.payments[payment.LoanID] = append(f.payments[payment.LoanID], &c)
	return nil
}

func (f *fakeStore) GetPaymentsByLoanID(_ context.Context, loanID int64) ([]*model.LoanPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.LoanPayment, 0, len(f.payments[loanID]))
	for _, p := range f.payments[loanID] {
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeStore) GetPaidInstallments(_ context.Context, _ *sql.Tx, loanID int64) (map[int]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	paid := map[int]bool{}
	for _, p := range f.payments[loanID] {
		paid[p.InstallmentNumber] = true
	}
	return paid, nil
}

// penalties

func (f *fakeStore) UpsertPenalty(_ context.Context, _ *sql.Tx, penalty *model.LoanPenalty) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.penalties {
		if p.LoanID == penalty.LoanID && p.InstallmentNumber == penalty.InstallmentNumber {
			if p.Status == model.PenaltyStatusPending {
				p.DaysOverdue = penalty.DaysOverdue
				p.PenaltyAmount = penalty.PenaltyAmount
				p.PenaltyRateUsed = penalty.PenaltyRateUsed
				p.UpdatedAt = penalty.UpdatedAt
			}
			return nil
		}
	}
	c := *penalty
	c.ID = f.id()
	c.Status = model.PenaltyStatusPending
	c.CreatedAt = penalty.UpdatedAt
	f.penalties[c.ID] = &c
	return nil
}

func (f *fakeStore) GetPenaltyByID(_ context.Context, id int64) (*model.LoanPenalty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.penalties[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *p
	return &c, nil
}

func (f *fakeStore) GetPenaltyForUpdate(ctx context.Context, _ *sql.Tx, id int64) (*model.LoanPenalty, error) {
	return f.GetPenaltyByID(ctx, id)
}

func (f *fakeStore) ResolvePenalty(_ context.Context, _ *sql.Tx, id int64, status model.PenaltyStatus, remarks string, resolvedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.penalties[id]
	if p.Status == model.PenaltyStatusPending {
		p.Status = status
		p.Remarks = remarks
		p.ResolvedDate = &resolvedAt
		p.UpdatedAt = resolvedAt
	}
	return nil
}

func (f *fakeStore) ResolvePendingForInstallment(_ context.Context, _ *sql.Tx, loanID int64, installment int, status model.PenaltyStatus, settled decimal.Decimal, resolvedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.penalties {
		if p.LoanID == loanID && p.InstallmentNumber == installment && p.Status == model.PenaltyStatusPending {
			p.Status = status
			p.PenaltyAmount = settled
			p.ResolvedDate = &resolvedAt
			p.UpdatedAt = resolvedAt
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetPenaltiesByLoanID(_ context.Context, loanID int64) ([]*model.LoanPenalty, error) {
	rows := f.penaltyRows(loanID)
	out := make([]*model.LoanPenalty, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (f *fakeStore) SumPendingPenalties(_ context.Context, _ *sql.Tx, loanID int64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := decimal.Zero
	for _, p := range f.penalties {
		if p.LoanID == loanID && p.Status == model.PenaltyStatusPending {
			total = total.Add(p.PenaltyAmount)
		}
	}
	return total, nil
}

func (f *fakeStore) GetSummary(context.Context) (*model.PenaltySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &model.PenaltySummary{}
	loans := map[int64]bool{}
	for _, p := range f.penalties {
		switch p.Status {
		case model.PenaltyStatusPending:
			s.PendingCount++
			s.PendingAmount = s.PendingAmount.Add(p.PenaltyAmount)
			loans[p.LoanID] = true
		case model.PenaltyStatusWaived:
			s.WaivedCount++
			s.WaivedAmount = s.WaivedAmount.Add(p.PenaltyAmount)
		case model.PenaltyStatusCollected:
			s.CollectedCount++
			s.CollectedAmount = s.CollectedAmount.Add(p.PenaltyAmount)
		}
	}
	s.LoansWithPending = len(loans)
	return s, nil
}

// recordingNotifier keeps every event it receives.
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(_ context.Context, event Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}
