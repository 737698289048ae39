package cli

import (
	"fmt"
	"go-bank-ledger/config"
	"go-bank-ledger/service"
	"time"

	"github.com/spf13/cobra"
)

var (
	tokenUserID int64
	tokenRole   string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token signed with the configured secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUserID <= 0 {
			return fmt.Errorf("--user must be a positive user id")
		}
		if config.AppConfig.JWT.SecretKey == "" {
			return fmt.Errorf("jwt.secret_key is not configured")
		}
		token, err := service.NewTokenService(config.AppConfig.JWT.SecretKey).IssueToken(tokenUserID, tokenRole, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user", 0, "user id carried by the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "user", "role: user or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
