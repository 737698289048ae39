package handler

import (
	"context"
	"go-bank-ledger/common"
	"go-bank-ledger/logger"
	"go-bank-ledger/model"
	"go-bank-ledger/service"
	"net/http"

	"github.com/sirupsen/logrus"
)

// TransactionProcessor is implemented by service.TransactionService.
type TransactionProcessor interface {
	Deposit(ctx context.Context, accountID int64, req model.AmountRequest) (*model.Transaction, error)
	Withdraw(ctx context.Context, userID, accountID int64, req model.AmountRequest) (*model.Transaction, error)
	Transfer(ctx context.Context, userID int64, req model.TransferRequest) (*model.Transaction, error)
	ExternalTransfer(ctx context.Context, userID int64, req model.ExternalTransferRequest) (*model.Transaction, error)
	Reverse(ctx context.Context, transactionID int64, reason string) (*model.Transaction, error)
	GetTransaction(ctx context.Context, transactionID int64) (*model.Transaction, error)
	ListTransactionsForAccount(ctx context.Context, userID, accountID int64) ([]*model.Transaction, error)
}

var _ TransactionProcessor = (*service.TransactionService)(nil)

// TransactionHandler holds dependencies for transaction-related handlers.
type TransactionHandler struct {
	service TransactionProcessor
}

// NewTransactionHandler creates a new TransactionHandler with its dependencies.
func NewTransactionHandler(s TransactionProcessor) *TransactionHandler {
	return &TransactionHandler{service: s}
}

// Deposit godoc
// @Summary      Deposit into an account (staff)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        accountId path int true "Account ID"
// @Param        deposit body model.AmountRequest true "Amount and description"
// @Success      201  {object}  model.Transaction
// @Failure      400  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Failure      423  {object}  common.AppError "Account is frozen"
// @Router       /api/admin/accounts/{accountId}/deposit [post]
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) *common.AppError {
	accountID, appErr := pathID(r, "accountId")
	if appErr != nil {
		return appErr
	}
	var req model.AmountRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	transaction, err := h.service.Deposit(r.Context(), accountID, req)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusCreated, transaction)
	return nil
}

// Withdraw godoc
// @Summary      Withdraw from one of my accounts
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        accountId path int true "Account ID"
// @Param        withdrawal body model.AmountRequest true "Amount and description"
// @Success      201  {object}  model.Transaction
// @Failure      400  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Failure      422  {object}  common.AppError "Insufficient funds"
// @Failure      423  {object}  common.AppError "Account is frozen"
// @Router       /api/accounts/{accountId}/withdraw [post]
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := userIDFromContext(r)
	if appErr != nil {
		return appErr
	}
	accountID, appErr := pathID(r, "accountId")
	if appErr != nil {
		return appErr
	}
	var req model.AmountRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	transaction, err := h.service.Withdraw(r.Context(), userID, accountID, req)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusCreated, transaction)
	return nil
}

// CreateTransfer godoc
// @Summary      Transfer money between accounts
// @Description  Moves money between two accounts addressed by account number. The user must own the source account.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        transfer body model.TransferRequest true "Details of the financial transfer"
// @Success      201  {object}  model.Transaction
// @Failure      400  {object}  common.AppError "Invalid amount, same account or currency mismatch"
// @Failure      401  {object}  common.AppError "Unauthorized: Invalid or missing token"
// @Failure      403  {object}  common.AppError "Forbidden: User does not own the source account"
// @Failure      404  {object}  common.AppError "Sender or receiver account not found"
// @Failure      422  {object}  common.AppError "Insufficient funds"
// @Failure      503  {object}  common.AppError "Concurrent update, retry later"
// @Router       /api/transfers [post]
func (h *TransactionHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.TransferRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	userID, appErr := userIDFromContext(r)
	if appErr != nil {
		return appErr
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"from":    req.FromAccountNumber,
		"to":      req.ToAccountNumber,
	}).Info("Transfer request received")

	transaction, err := h.service.Transfer(r.Context(), userID, req)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusCreated, transaction)
	return nil
}

// CreateExternalTransfer godoc
// @Summary      Send money to another bank
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        transfer body model.ExternalTransferRequest true "Source account, beneficiary and amount"
// @Success      201  {object}  model.Transaction
// @Failure      400  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Failure      422  {object}  common.AppError
// @Router       /api/transfers/external [post]
func (h *TransactionHandler) CreateExternalTransfer(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.ExternalTransferRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	userID, appErr := userIDFromContext(r)
	if appErr != nil {
		return appErr
	}

	transaction, err := h.service.ExternalTransfer(r.Context(), userID, req)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusCreated, transaction)
	return nil
}

// ListTransactionsForAccount godoc
// @Summary      List account transaction history
// @Description  Retrieves the transaction history for a specific account owned by the authenticated user.
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        accountId path int true "The ID of the account to retrieve transactions for"
// @Success      200  {array}   model.Transaction "A list of transactions for the account"
// @Failure      400  {object}  common.AppError "Invalid account ID in URL path"
// @Failure      403  {object}  common.AppError "Forbidden: User does not own the specified account"
// @Failure      404  {object}  common.AppError "Account with the specified ID not found"
// @Router       /api/accounts/{accountId}/transactions [get]
func (h *TransactionHandler) ListTransactionsForAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := userIDFromContext(r)
	if appErr != nil {
		return appErr
	}
	accountID, appErr := pathID(r, "accountId")
	if appErr != nil {
		return appErr
	}

	transactions, err := h.service.ListTransactionsForAccount(r.Context(), userID, accountID)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, transactions)
	return nil
}

// GetTransaction godoc
// @Summary      Get a journal entry (staff)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        transactionId path int true "Transaction ID"
// @Success      200  {object}  model.Transaction
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /api/admin/transactions/{transactionId} [get]
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) *common.AppError {
	transactionID, appErr := pathID(r, "transactionId")
	if appErr != nil {
		return appErr
	}

	transaction, err := h.service.GetTransaction(r.Context(), transactionID)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, transaction)
	return nil
}

// ReverseTransaction godoc
// @Summary      Reverse a completed transaction (staff)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        transactionId path int true "Transaction ID"
// @Param        reversal body model.ReversalRequest true "Reason for the reversal"
// @Success      201  {object}  model.Transaction "The compensating REVERSAL entry"
// @Failure      404  {object}  common.AppError
// @Failure      409  {object}  common.AppError "Transaction is not reversible"
// @Failure      422  {object}  common.AppError "Receiver cannot cover the reversal"
// @Router       /api/admin/transactions/{transactionId}/reverse [post]
func (h *TransactionHandler) ReverseTransaction(w http.ResponseWriter, r *http.Request) *common.AppError {
	transactionID, appErr := pathID(r, "transactionId")
	if appErr != nil {
		return appErr
	}
	var req model.ReversalRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	reversal, err := h.service.Reverse(r.Context(), transactionID, req.Reason)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusCreated, reversal)
	return nil
}
