package credit

import (
	"time"

	"credit-approval/internal/pkg/money"

	"github.com/shopspring/decimal"
)

// Installment is one period of an amortization schedule
type Installment struct {
	Period    int             `json:"period"`
	DueDate   time.Time       `json:"due_date"`
	Payment   decimal.Decimal `json:"payment"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Balance   decimal.Decimal `json:"remaining_balance"`
}

// Schedule builds the fixed-payment amortization schedule of a loan.
// Each period's interest is rounded to currency scale and the last period
// absorbs the rounding so the balance reaches exactly zero.
func Schedule(principal, annualRate decimal.Decimal, tenureMonths int, start time.Time) ([]Installment, error) {
	emi, err := EMI(principal, annualRate, tenureMonths)
	if err != nil {
		return nil, err
	}
	r, err := money.Div(annualRate, monthsPerYearPercent)
	if err != nil {
		return nil, err
	}

	schedule := make([]Installment, 0, tenureMonths)
	remaining := principal
	for period := 1; period <= tenureMonths; period++ {
		interest := money.Round(remaining.Mul(r))
		principalPart := emi.Sub(interest)
		if period == tenureMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
		}
		remaining = remaining.Sub(principalPart)

		schedule = append(schedule, Installment{
			Period:    period,
			DueDate:   start.AddDate(0, period, 0),
			Payment:   principalPart.Add(interest),
			Principal: principalPart,
			Interest:  interest,
			Balance:   remaining,
		})
	}
	return schedule, nil
}
