package cli

import (
	"bytes"
	"go-bank-ledger/model"
	"go-bank-ledger/service"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccrueDate(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)

	asOf, err := parseAccrueDate("", now)
	require.NoError(t, err)
	assert.Equal(t, now, asOf)

	asOf, err = parseAccrueDate("2024-02-14", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.Local), asOf)

	_, err = parseAccrueDate("14.02.2024", now)
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "cli-test-secret")
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"token", "--user", "5", "--role", "admin", "--ttl", "1h"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, Execute())

	claims, err := service.NewTokenService("cli-test-secret").ParseToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, int64(5), claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestTokenCommand_RejectsMissingUser(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "cli-test-secret")
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"token", "--user", "0"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil); rootCmd.SetErr(nil) })

	assert.Error(t, Execute())
}
