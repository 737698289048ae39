package handler

import (
	"context"
	"go-bank-ledger/common"
	"go-bank-ledger/model"
	"go-bank-ledger/service"
	"net/http"
	"time"
)

// PenaltyManager is implemented by service.PenaltyService.
type PenaltyManager interface {
	RunForDate(ctx context.Context, asOf time.Time) (*service.PenaltyRunResult, error)
	Waive(ctx context.Context, penaltyID int64, remarks string) (*model.LoanPenalty, error)
	Collect(ctx context.Context, penaltyID int64) (*model.LoanPenalty, error)
	GetSummary(ctx context.Context) (*model.PenaltySummary, error)
	GetLoanPenalties(ctx context.Context, loanID int64) ([]*model.LoanPenalty, error)
}

var _ PenaltyManager = (*service.PenaltyService)(nil)

// PenaltyHandler serves the staff-only penalty endpoints.
type PenaltyHandler struct {
	service PenaltyManager
	now     func() time.Time
}

func NewPenaltyHandler(s PenaltyManager) *PenaltyHandler {
	return &PenaltyHandler{service: s, now: time.Now}
}

// RunAccrual godoc
// @Summary      Run penalty accrual (staff)
// @Description  Accrues late fees on every overdue installment. Safe to repeat; the optional date (YYYY-MM-DD) defaults to today.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        date query string false "Accrual date, YYYY-MM-DD"
// @Success      200  {object}  service.PenaltyRunResult
// @Failure      400  {object}  common.AppError
// @Router       /api/admin/penalties/run [post]
func (h *PenaltyHandler) RunAccrual(w http.ResponseWriter, r *http.Request) *common.AppError {
	asOf := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			return common.FromError(&model.ValidationError{Field: "date", Message: "must be formatted as YYYY-MM-DD"})
		}
		asOf = parsed
	}

	result, err := h.service.RunForDate(r.Context(), asOf)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, result)
	return nil
}

// GetSummary godoc
// @Summary      Penalty totals by status (staff)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.PenaltySummary
// @Router       /api/admin/penalties/summary [get]
func (h *PenaltyHandler) GetSummary(w http.ResponseWriter, r *http.Request) *common.AppError {
	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, summary)
	return nil
}

// ListLoanPenalties godoc
// @Summary      Penalties of a loan (staff)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        loanId path int true "Loan ID"
// @Success      200  {array}   model.LoanPenalty
// @Failure      404  {object}  common.AppError
// @Router       /api/admin/loans/{loanId}/penalties [get]
func (h *PenaltyHandler) ListLoanPenalties(w http.ResponseWriter, r *http.Request) *common.AppError {
	loanID, appErr := pathID(r, "loanId")
	if appErr != nil {
		return appErr
	}

	penalties, err := h.service.GetLoanPenalties(r.Context(), loanID)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, penalties)
	return nil
}

// WaivePenalty godoc
// @Summary      Waive a pending penalty (staff)
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        penaltyId path int true "Penalty ID"
// @Param        resolution body model.PenaltyResolutionRequest false "Remarks"
// @Success      200  {object}  model.LoanPenalty
// @Failure      404  {object}  common.AppError
// @Failure      409  {object}  common.AppError "Penalty already resolved"
// @Router       /api/admin/penalties/{penaltyId}/waive [post]
func (h *PenaltyHandler) WaivePenalty(w http.ResponseWriter, r *http.Request) *common.AppError {
	penaltyID, appErr := pathID(r, "penaltyId")
	if appErr != nil {
		return appErr
	}
	var req model.PenaltyResolutionRequest
	if appErr := decodeOptional(r, &req); appErr != nil {
		return appErr
	}

	penalty, err := h.service.Waive(r.Context(), penaltyID, req.Remarks)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, penalty)
	return nil
}

// CollectPenalty godoc
// @Summary      Mark a pending penalty collected (staff)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        penaltyId path int true "Penalty ID"
// @Success      200  {object}  model.LoanPenalty
// @Failure      404  {object}  common.AppError
// @Failure      409  {object}  common.AppError "Penalty already resolved"
// @Router       /api/admin/penalties/{penaltyId}/collect [post]
func (h *PenaltyHandler) CollectPenalty(w http.ResponseWriter, r *http.Request) *common.AppError {
	penaltyID, appErr := pathID(r, "penaltyId")
	if appErr != nil {
		return appErr
	}

	penalty, err := h.service.Collect(r.Context(), penaltyID)
	if err != nil {
		return common.FromError(err)
	}

	common.WriteJSON(w, http.StatusOK, penalty)
	return nil
}
