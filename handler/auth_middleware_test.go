package handler

import (
	"go-bank-ledger/service"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	tokens := service.NewTokenService("test-secret")
	userToken, err := tokens.IssueToken(7, "user", time.Hour)
	require.NoError(t, err)
	expiredToken, err := tokens.IssueToken(7, "user", -time.Minute)
	require.NoError(t, err)
	foreignToken, err := service.NewTokenService("other-secret").IssueToken(7, "user", time.Hour)
	require.NoError(t, err)

	var gotUserID int64
	var gotRole string
	protected := AuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value(UserIDKey).(int64)
		gotRole, _ = r.Context().Value(UserRoleKey).(string)
		w.WriteHeader(http.StatusNoContent)
	}))

	testCases := []struct {
		name   string
		header string
		code   int
	}{
		{"valid token", "Bearer " + userToken, http.StatusNoContent},
		{"lowercase scheme", "bearer " + userToken, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + userToken, http.StatusUnauthorized},
		{"expired", "Bearer " + expiredToken, http.StatusUnauthorized},
		{"signed with another key", "Bearer " + foreignToken, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotUserID, gotRole = 0, ""
			req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()

			protected.ServeHTTP(rr, req)

			assert.Equal(t, tc.code, rr.Code)
			if tc.code == http.StatusNoContent {
				assert.Equal(t, int64(7), gotUserID)
				assert.Equal(t, "user", gotRole)
			} else {
				assert.Zero(t, gotUserID)
			}
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	tokens := service.NewTokenService("test-secret")
	adminToken, err := tokens.IssueToken(1, "admin", time.Hour)
	require.NoError(t, err)
	userToken, err := tokens.IssueToken(2, "user", time.Hour)
	require.NoError(t, err)

	protected := AuthMiddleware(tokens)(AdminMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/penalties/summary", nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("regular user is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/penalties/summary", nil)
		req.Header.Set("Authorization", "Bearer "+userToken)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
