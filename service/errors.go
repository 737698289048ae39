package service

import (
	"errors"
	"go-bank-ledger/model"
)

var (
	ErrSameAccountTransfer = &model.ValidationError{Field: "to_account_number", Message: "cannot transfer money to the same account"}
	ErrCurrencyMismatch    = &model.ValidationError{Field: "currency", Message: "currency mismatch between accounts"}
	ErrInvalidAmount       = &model.ValidationError{Field: "amount", Message: "must be greater than zero"}
	ErrPermissionDenied    = errors.New("you can only operate on your own accounts and loans")
)
