package cli

import (
	"go-bank-ledger/config"
	"go-bank-ledger/logger"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bankd",
	Short: "Ledger and loan servicing engine",
	Long: `bankd runs the banking API and its operational tasks.

Examples:
  bankd migrate up
  bankd serve
  bankd penalties accrue --date 2024-02-14
  bankd token --user 1 --role admin`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Init()
		if err := config.LoadConfig(configPath); err != nil {
			return err
		}
		logger.SetLevel(config.AppConfig.Log.Level)
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing config.yml")
}
