package cli

import (
	"encoding/json"
	"fmt"
	"go-bank-ledger/app"
	"go-bank-ledger/logger"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var penaltiesCmd = &cobra.Command{
	Use:   "penalties",
	Short: "Penalty accrual tasks",
}

var accrueDate string

// penaltiesAccrueCmd is what cron runs once a day. Reruns for the same date
// leave the penalty rows unchanged.
var penaltiesAccrueCmd = &cobra.Command{
	Use:   "accrue",
	Short: "Accrue late fees on overdue installments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := parseAccrueDate(accrueDate, time.Now())
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Penalties.RunForDate(cmd.Context(), asOf)
		if err != nil {
			return err
		}
		logger.Log.WithFields(logrus.Fields{
			"as_of":     result.AsOf.Format(time.DateOnly),
			"scanned":   result.LoansScanned,
			"processed": result.LoansProcessed,
			"upserted":  result.PenaltiesUpserted,
			"failed":    len(result.Failures),
		}).Info("Penalty accrual finished")
		if len(result.Failures) > 0 {
			return fmt.Errorf("%d loans failed during accrual", len(result.Failures))
		}
		return nil
	},
}

var penaltiesSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print penalty totals by status as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.Penalties.GetSummary(cmd.Context())
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	},
}

func parseAccrueDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	asOf, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", raw)
	}
	return asOf, nil
}

func init() {
	penaltiesAccrueCmd.Flags().StringVar(&accrueDate, "date", "", "accrual date (YYYY-MM-DD), defaults to today")
	penaltiesCmd.AddCommand(penaltiesAccrueCmd, penaltiesSummaryCmd)
	rootCmd.AddCommand(penaltiesCmd)
}
