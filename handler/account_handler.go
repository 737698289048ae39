package handler

import (
	"context"
	"go-bank-ledger/common"
	"go-bank-ledger/logger"
	"go-bank-ledger/model"
	"net/http"

	"github.com/sirupsen/logrus"
)

// AccountManager is implemented by service.AccountService.
type AccountManager interface {
	CreateNewAccount(ctx context.Context, userID int64, req model.OpenAccountRequest) (*model.Account, error)
	GetAccount(ctx context.Context, userID, accountID int64) (*model.Account, error)
	ListAccountsForUser(ctx context.Context, userID int64) ([]*model.Account, error)
}

type AccountHandler struct {
	service AccountManager
}

func NewAccountHandler(service AccountManager) *AccountHandler {
	return &AccountHandler{service: service}
}

// CreateAccount godoc
// @Summary      Open a bank account
// @Description  Opens an ACTIVE, zero-balance account for the authenticated user.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        account body model.OpenAccountRequest true "Account type and currency"
// @Success      201  {object}  model.Account
// @Failure      400  {object}  common.AppError
// @Failure      401  {object}  common.AppError
// @Router       /api/accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.OpenAccountRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	userID, appErr := userIDFromContext(r)
	if appErr != nil {
		return appErr
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":      userID,
		"account_type": req.Type,
		"currency":     req.Currency,
	}).Info("Create account request received")

	account, err := h.service.CreateNewAccount(r.Context(), userID, req)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusCreated, account)
	return nil
}

// ListAccounts godoc
// @Summary      List my accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   model.Account
// @Failure      401  {object}  common.AppError
// @Router       /api/accounts [get]
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := userIDFromContext(r)
	if appErr != nil {
		return appErr
	}

	accounts, err := h.service.ListAccountsForUser(r.Context(), userID)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, accounts)
	return nil
}

// GetAccount godoc
// @Summary      Get one of my accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        accountId path int true "Account ID"
// @Success      200  {object}  model.Account
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /api/accounts/{accountId} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := userIDFromContext(r)
	if appErr != nil {
		return appErr
	}
	accountID, appErr := pathID(r, "accountId")
	if appErr != nil {
		return appErr
	}

	account, err := h.service.GetAccount(r.Context(), userID, accountID)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, account)
	return nil
}
