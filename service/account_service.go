// file: service/account_service.go

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-bank-ledger/logger"
	"go-bank-ledger/model"
	"go-bank-ledger/repository"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	firstAccountNumber    = int64(1000000000)
	accountNumberAttempts = 3
	pqUniqueViolation     = "23505"
)

// AccountService opens accounts and serves account reads. Balances are never
// cached: every read goes to the accounts table.
type AccountService struct {
	repo repository.IAccountRepository
	now  func() time.Time
}

func NewAccountService(repo repository.IAccountRepository) *AccountService {
	return &AccountService{repo: repo, now: time.Now}
}

// CreateNewAccount opens an ACTIVE, zero-balance account with the next
// sequential account number. A number taken by a concurrent opening is retried.
func (s *AccountService) CreateNewAccount(ctx context.Context, userID int64, req model.OpenAccountRequest) (*model.Account, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id":      userID,
		"account_type": req.Type,
		"currency":     req.Currency,
	})

	if !req.Type.Valid() {
		return nil, &model.ValidationError{Field: "account_type", Message: fmt.Sprintf("unknown type %q", req.Type)}
	}

	var lastErr error
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		lastAccountNumber, err := s.repo.GetLastAccountNumber(ctx)
		if err != nil {
			return nil, err
		}
		newAccountNumber := lastAccountNumber + 1
		if newAccountNumber < firstAccountNumber {
			newAccountNumber = firstAccountNumber
		}

		now := s.now()
		account := &model.Account{
			UserID:        userID,
			AccountNumber: newAccountNumber,
			Type:          req.Type,
			Balance:       decimal.Zero,
			Currency:      strings.ToUpper(req.Currency),
			Status:        model.AccountStatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err = s.repo.CreateAccount(ctx, account)
		if err == nil {
			log.WithField("account_number", account.AccountNumber).Info("Account opened")
			return account, nil
		}
		var pqErr *pq.Error
		if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
			return nil, err
		}
		log.WithField("account_number", newAccountNumber).Warn("Account number already taken, retrying")
		lastErr = err
	}
	return nil, &model.ConcurrencyError{Op: "open_account", Err: lastErr}
}

// GetAccount returns an account. userID 0 skips the ownership check.
func (s *AccountService) GetAccount(ctx context.Context, userID, accountID int64) (*model.Account, error) {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &model.NotFoundError{Resource: "account", ID: strconv.FormatInt(accountID, 10)}
		}
		return nil, err
	}
	if userID != 0 && account.UserID != userID {
		return nil, ErrPermissionDenied
	}
	return account, nil
}

func (s *AccountService) ListAccountsForUser(ctx context.Context, userID int64) ([]*model.Account, error) {
	return s.repo.GetAccountsByUserID(ctx, userID)
}
