package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// dateOnly drops the clock part of t, keeping its calendar date.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b. It is negative when b is before a.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}

// dailyPenalty is emi · rate% / 30 per overdue day, rounded to cents.
func dailyPenalty(emi, monthlyRatePct decimal.Decimal, daysOverdue int) decimal.Decimal {
	return emi.Mul(monthlyRatePct).Mul(decimal.NewFromInt(int64(daysOverdue))).Div(decimal.NewFromInt(3000)).Round(2)
}

// lateFee charges rate% of the EMI for every started 30-day period past the grace window.
func lateFee(emi, monthlyRatePct decimal.Decimal, daysLate int) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	periods := (daysLate + 29) / 30
	return emi.Mul(monthlyRatePct).Mul(decimal.NewFromInt(int64(periods))).Div(hundred).Round(2)
}
