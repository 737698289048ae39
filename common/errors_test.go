package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"go-bank-ledger/logger"
	"go-bank-ledger/model"
	"go-bank-ledger/service"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	logger.SetLevel("warn")
	os.Exit(m.Run())
}

func TestFromError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &model.ValidationError{Field: "amount", Message: "must be greater than 0"}, http.StatusBadRequest},
		{"not found", &model.NotFoundError{Resource: "loan", ID: "3"}, http.StatusNotFound},
		{"state conflict", &model.StateConflictError{Resource: "loan", ID: "3", State: "CLOSED", Action: "pay"}, http.StatusConflict},
		{"insufficient funds", &model.InsufficientFundsError{AccountID: 1}, http.StatusUnprocessableEntity},
		{"frozen", &model.FrozenAccountError{AccountID: 1}, http.StatusLocked},
		{"concurrency", &model.ConcurrencyError{Op: "transfer", Err: errors.New("deadlock")}, http.StatusServiceUnavailable},
		{"wrapped permission", fmt.Errorf("withdraw: %w", service.ErrPermissionDenied), http.StatusForbidden},
		{"token", service.ErrInvalidToken, http.StatusUnauthorized},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, FromError(tc.err).Code)
		})
	}
}

func TestFromError_HidesInternalDetails(t *testing.T) {
	appErr := FromError(errors.New("pq: password authentication failed"))

	assert.NotContains(t, appErr.Message, "password")
	assert.Error(t, appErr.Err)
}

func TestAppError_Send(t *testing.T) {
	rr := httptest.NewRecorder()

	FromError(&model.InsufficientFundsError{
		AccountID: 4,
		Available: decimal.RequireFromString("10"),
		Required:  decimal.RequireFromString("25.5"),
	}).Send(rr)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var body struct {
		Code    int               `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, http.StatusUnprocessableEntity, body.Code)
	assert.Equal(t, "10.00", body.Details["available"])
	assert.Equal(t, "25.50", body.Details["required"])
}
