package handler

import (
	"go-bank-ledger/common"
	"net/http"
	"strconv"
)

// ErrorHandlingMiddleware adapts a handler that returns *common.AppError.
func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

func pathID(r *http.Request, name string) (int64, *common.AppError) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewAppError(http.StatusBadRequest, "Invalid "+name+" in URL path", nil)
	}
	return id, nil
}

// decodeOptional treats an empty body as the zero payload.
func decodeOptional(r *http.Request, payload interface{}) *common.AppError {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		if err := common.ValidateStruct(payload); err != nil {
			return common.FromError(err)
		}
		return nil
	}
	return common.ValidateAndDecode(r, payload)
}
