package service

import (
	"go-bank-ledger/model"

	"github.com/shopspring/decimal"
)

// growthPrecision is the number of decimal places kept while compounding (1+r)^n.
const growthPrecision = 20

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// MonthlyRate converts an annual percentage rate to a monthly fraction.
func MonthlyRate(annualRatePct decimal.Decimal) decimal.Decimal {
	return annualRatePct.Div(twelve).Div(hundred)
}

// CalculateEMI returns the equated monthly installment for a loan,
// P·r·(1+r)^n / ((1+r)^n − 1), rounded to cents. A zero rate spreads the
// principal evenly.
func CalculateEMI(principal, annualRatePct decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if !principal.IsPositive() {
		return decimal.Zero, &model.ValidationError{Field: "principal_amount", Message: "must be greater than zero"}
	}
	if annualRatePct.IsNegative() {
		return decimal.Zero, &model.ValidationError{Field: "interest_rate", Message: "must not be negative"}
	}
	if tenureMonths <= 0 {
		return decimal.Zero, &model.ValidationError{Field: "tenure_months", Message: "must be at least one month"}
	}

	n := decimal.NewFromInt(int64(tenureMonths))
	if annualRatePct.IsZero() {
		return principal.Div(n).Round(2), nil
	}

	r := MonthlyRate(annualRatePct)
	growth := compound(decimal.NewFromInt(1).Add(r), tenureMonths)
	emi := principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return emi.Round(2), nil
}

func compound(base decimal.Decimal, periods int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for i := 0; i < periods; i++ {
		result = result.Mul(base).Round(growthPrecision)
	}
	return result
}

// SplitInstallment divides a payment against balance into its interest and
// principal parts. The principal part never exceeds balance.
func SplitInstallment(balance, monthlyRate, emi decimal.Decimal) (interest, principal decimal.Decimal) {
	interest = balance.Mul(monthlyRate).Round(2)
	principal = emi.Sub(interest)
	if principal.GreaterThan(balance) {
		principal = balance
	}
	if principal.IsNegative() {
		principal = decimal.Zero
	}
	return interest, principal
}

// GenerateSchedule lays out every installment of loan. The last row repays
// whatever principal is left, so its balance is exactly zero.
func GenerateSchedule(loan *model.Loan) ([]model.ScheduleEntry, error) {
	emi := loan.EMIAmount
	if emi.IsZero() {
		var err error
		emi, err = CalculateEMI(loan.PrincipalAmount, loan.InterestRate, loan.TenureMonths)
		if err != nil {
			return nil, err
		}
	}

	r := MonthlyRate(loan.InterestRate)
	balance := loan.PrincipalAmount
	schedule := make([]model.ScheduleEntry, 0, loan.TenureMonths)

	for i := 1; i <= loan.TenureMonths; i++ {
		interest, principal := SplitInstallment(balance, r, emi)
		payment := emi
		if i == loan.TenureMonths || principal.Equal(balance) {
			principal = balance
			payment = principal.Add(interest)
		}
		balance = balance.Sub(principal)
		if balance.IsNegative() {
			balance = decimal.Zero
		}

		schedule = append(schedule, model.ScheduleEntry{
			InstallmentNumber: i,
			DueDate:           loan.DueDate(i),
			EMIAmount:         payment,
			PrincipalAmount:   principal,
			InterestAmount:    interest,
			Balance:           balance,
		})
		if balance.IsZero() {
			break
		}
	}
	return schedule, nil
}
