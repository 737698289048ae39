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

// LoanServicer is implemented by service.LoanService.
type LoanServicer interface {
	Apply(ctx context.Context, userID int64, req model.LoanApplicationRequest) (*model.Loan, error)
	Approve(ctx context.Context, loanID int64, remarks string) (*model.Loan, error)
	Reject(ctx context.Context, loanID int64, remarks string) (*model.Loan, error)
	PayEMI(ctx context.Context, userID, loanID int64, req model.EMIPaymentRequest) (*model.LoanPayment, error)
	GetLoan(ctx context.Context, userID, loanID int64) (*model.Loan, error)
	ListLoansForUser(ctx context.Context, userID int64) ([]*model.Loan, error)
	GetSchedule(ctx context.Context, userID, loanID int64) ([]model.ScheduleEntry, error)
	ListPayments(ctx context.Context, userID, loanID int64) ([]*model.LoanPayment, error)
}

var _ LoanServicer = (*service.LoanService)(nil)

type LoanHandler struct {
	service LoanServicer
}

func NewLoanHandler(s LoanServicer) *LoanHandler {
	return &LoanHandler{service: s}
}

// ApplyForLoan godoc
// @Summary      Apply for a loan
// @Description  Records a PENDING loan with its EMI computed up front.
// @Tags         loans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        application body model.LoanApplicationRequest true "Loan terms"
// @Success      201  {object}  model.Loan
// @Failure      400  {object}  common.AppError
// @Router       /api/loans [post]
func (h *LoanHandler) ApplyForLoan(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoanApplicationRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	userID, appErr := userIDFromContext(r)
	if appErr != nil {
		return appErr
	}

	loan, err := h.service.Apply(r.Context(), userID, req)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusCreated, loan)
	return nil
}

// ListLoans godoc
// @Summary      List my loans
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   model.Loan
// @Router       /api/loans [get]
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := userIDFromContext(r)
	if appErr != nil {
		return appErr
	}

	loans, err := h.service.ListLoansForUser(r.Context(), userID)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, loans)
	return nil
}

// GetLoan godoc
// @Summary      Get one of my loans
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        loanId path int true "Loan ID"
// @Success      200  {object}  model.Loan
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /api/loans/{loanId} [get]
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, loanID, appErr := userAndLoan(r)
	if appErr != nil {
		return appErr
	}

	loan, err := h.service.GetLoan(r.Context(), userID, loanID)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, loan)
	return nil
}

// GetSchedule godoc
// @Summary      Repayment schedule of a loan
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        loanId path int true "Loan ID"
// @Success      200  {array}   model.ScheduleEntry
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /api/loans/{loanId}/schedule [get]
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, loanID, appErr := userAndLoan(r)
	if appErr != nil {
		return appErr
	}

	schedule, err := h.service.GetSchedule(r.Context(), userID, loanID)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, schedule)
	return nil
}

// ListPayments godoc
// @Summary      Payment history of a loan
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        loanId path int true "Loan ID"
// @Success      200  {array}   model.LoanPayment
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /api/loans/{loanId}/payments [get]
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, loanID, appErr := userAndLoan(r)
	if appErr != nil {
		return appErr
	}

	payments, err := h.service.ListPayments(r.Context(), userID, loanID)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, payments)
	return nil
}

// PayEMI godoc
// @Summary      Pay the next installment
// @Description  Debits EMI plus any late fee from the given account. The loan closes after its final installment.
// @Tags         loans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        loanId path int true "Loan ID"
// @Param        payment body model.EMIPaymentRequest true "Paying account and optional amount"
// @Success      201  {object}  model.LoanPayment
// @Failure      400  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Failure      409  {object}  common.AppError "Loan is not payable"
// @Failure      422  {object}  common.AppError "Insufficient funds"
// @Router       /api/loans/{loanId}/payments [post]
func (h *LoanHandler) PayEMI(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, loanID, appErr := userAndLoan(r)
	if appErr != nil {
		return appErr
	}
	var req model.EMIPaymentRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":    userID,
		"loan_id":    loanID,
		"account_id": req.AccountID,
	}).Info("EMI payment request received")

	payment, err := h.service.PayEMI(r.Context(), userID, loanID, req)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusCreated, payment)
	return nil
}

// ApproveLoan godoc
// @Summary      Approve and disburse a loan (staff)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        loanId path int true "Loan ID"
// @Param        decision body model.LoanDecisionRequest false "Remarks"
// @Success      200  {object}  model.Loan
// @Failure      404  {object}  common.AppError
// @Failure      409  {object}  common.AppError "Loan is not pending or has no settlement account"
// @Router       /api/admin/loans/{loanId}/approve [post]
func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) *common.AppError {
	return h.decide(w, r, h.service.Approve)
}

// RejectLoan godoc
// @Summary      Reject a pending loan (staff)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        loanId path int true "Loan ID"
// @Param        decision body model.LoanDecisionRequest false "Remarks"
// @Success      200  {object}  model.Loan
// @Failure      404  {object}  common.AppError
// @Failure      409  {object}  common.AppError
// @Router       /api/admin/loans/{loanId}/reject [post]
func (h *LoanHandler) RejectLoan(w http.ResponseWriter, r *http.Request) *common.AppError {
	return h.decide(w, r, h.service.Reject)
}

func (h *LoanHandler) decide(w http.ResponseWriter, r *http.Request, decision func(context.Context, int64, string) (*model.Loan, error)) *common.AppError {
	loanID, appErr := pathID(r, "loanId")
	if appErr != nil {
		return appErr
	}
	var req model.LoanDecisionRequest
	if appErr := decodeOptional(r, &req); appErr != nil {
		return appErr
	}

	loan, err := decision(r.Context(), loanID, req.Remarks)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, loan)
	return nil
}

func userAndLoan(r *http.Request) (int64, int64, *common.AppError) {
	userID, appErr := userIDFromContext(r)
	if appErr != nil {
		return 0, 0, appErr
	}
	loanID, appErr := pathID(r, "loanId")
	if appErr != nil {
		return 0, 0, appErr
	}
	return userID, loanID, nil
}
