package common

import (
	"encoding/json"
	"errors"
	"go-bank-ledger/logger"
	"go-bank-ledger/model"
	"go-bank-ledger/service"
	"net/http"

	"github.com/sirupsen/logrus"
)

type AppError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// FromError maps a service error onto its HTTP status. Unknown errors become
// a 500 whose message does not leak internals.
func FromError(err error) *AppError {
	var (
		validationErr   *model.ValidationError
		notFoundErr     *model.NotFoundError
		conflictErr     *model.StateConflictError
		fundsErr        *model.InsufficientFundsError
		frozenErr       *model.FrozenAccountError
		concurrencyErr  *model.ConcurrencyError
		alreadyAppError *AppError
	)

	switch {
	case errors.As(err, &alreadyAppError):
		return alreadyAppError
	case errors.As(err, &validationErr):
		return NewAppError(http.StatusBadRequest, validationErr.Error(), nil)
	case errors.As(err, &notFoundErr):
		return NewAppError(http.StatusNotFound, notFoundErr.Error(), nil)
	case errors.As(err, &conflictErr):
		return NewAppError(http.StatusConflict, conflictErr.Error(), nil)
	case errors.As(err, &fundsErr):
		appErr := NewAppError(http.StatusUnprocessableEntity, fundsErr.Error(), nil)
		appErr.Details = map[string]string{
			"available": fundsErr.Available.StringFixed(2),
			"required":  fundsErr.Required.StringFixed(2),
		}
		return appErr
	case errors.As(err, &frozenErr):
		return NewAppError(http.StatusLocked, frozenErr.Error(), nil)
	case errors.As(err, &concurrencyErr):
		return NewAppError(http.StatusServiceUnavailable, "The request conflicted with a concurrent update, please retry", err)
	case errors.Is(err, service.ErrPermissionDenied):
		return NewAppError(http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, service.ErrInvalidToken):
		return NewAppError(http.StatusUnauthorized, err.Error(), nil)
	default:
		return NewAppError(http.StatusInternalServerError, "An internal error occurred", err)
	}
}

func (e *AppError) Send(w http.ResponseWriter) {
	if e.Err != nil {
		logger.Log.WithFields(logrus.Fields{
			"status_code":    e.Code,
			"internal_error": e.Err.Error(),
		}).Error(e.Message)
	}

	WriteJSON(w, e.Code, e)
}

// WriteJSON writes payload as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response body")
	}
}
