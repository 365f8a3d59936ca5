package credit

import (
	"credit-approval/internal/core/domain"
	"credit-approval/internal/pkg/money"

	"github.com/shopspring/decimal"
)

var (
	monthsPerYearPercent = decimal.NewFromInt(1200)
	maxAnnualRate        = decimal.NewFromInt(100)
	one                  = decimal.NewFromInt(1)
	two                  = decimal.NewFromInt(2)
)

// impliedRateIterations bounds the bisection in ImpliedAnnualRate.
// 100 / 2^40 is far below the quoted rate scale.
const impliedRateIterations = 40

// Projection is the full repayment obligation of a loan
type Projection struct {
	EMI           decimal.Decimal
	TotalPayable  decimal.Decimal
	TotalInterest decimal.Decimal
}

// EMI returns the fixed monthly installment for a principal at an annual
// percentage rate over tenure months, rounded half-up to currency scale.
//
//	r   = annualRate / 12 / 100
//	EMI = P * r * (1+r)^n / ((1+r)^n - 1)
//
// A zero rate splits the principal evenly.
func EMI(principal, annualRate decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	raw, err := rawEMI(principal, annualRate, tenureMonths)
	if err != nil {
		return decimal.Zero, err
	}
	return money.Round(raw), nil
}

// Project returns the EMI together with the total payable and total interest
func Project(principal, annualRate decimal.Decimal, tenureMonths int) (Projection, error) {
	emi, err := EMI(principal, annualRate, tenureMonths)
	if err != nil {
		return Projection{}, err
	}
	total := emi.Mul(decimal.NewFromInt(int64(tenureMonths)))
	return Projection{
		EMI:           emi,
		TotalPayable:  total,
		TotalInterest: total.Sub(principal),
	}, nil
}

// ImpliedAnnualRate finds the annual rate at which principal is repaid by
// tenure installments of emi. The result is rounded to the quoted rate scale.
func ImpliedAnnualRate(principal, emi decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if err := validateTerms(principal, decimal.Zero, tenureMonths); err != nil {
		return decimal.Zero, err
	}
	if !emi.IsPositive() {
		return decimal.Zero, domain.InvalidInput("installment must be greater than 0")
	}

	floor, err := EMI(principal, decimal.Zero, tenureMonths)
	if err != nil {
		return decimal.Zero, err
	}
	if emi.LessThan(floor) {
		return decimal.Zero, domain.InvalidInput("installments do not cover the principal")
	}
	if emi.Equal(floor) {
		return decimal.Zero, nil
	}

	lo, hi := decimal.Zero, maxAnnualRate
	top, err := rawEMI(principal, hi, tenureMonths)
	if err != nil {
		return decimal.Zero, err
	}
	if emi.GreaterThan(top) {
		return decimal.Zero, domain.InvalidInput("installment implies a rate above %s%%", maxAnnualRate)
	}

	for i := 0; i < impliedRateIterations; i++ {
		mid := lo.Add(hi).Div(two)
		got, err := rawEMI(principal, mid, tenureMonths)
		if err != nil {
			return decimal.Zero, err
		}
		if got.LessThan(emi) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return money.RoundRate(lo.Add(hi).Div(two)), nil
}

// rawEMI is the installment before the final rounding step
func rawEMI(principal, annualRate decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if err := validateTerms(principal, annualRate, tenureMonths); err != nil {
		return decimal.Zero, err
	}

	n := decimal.NewFromInt(int64(tenureMonths))
	if annualRate.IsZero() {
		return money.Div(principal, n)
	}

	r, err := money.Div(annualRate, monthsPerYearPercent)
	if err != nil {
		return decimal.Zero, err
	}
	factor := money.PowInt(one.Add(r), tenureMonths)
	return money.Div(principal.Mul(r).Mul(factor), factor.Sub(one))
}

func validateTerms(principal, annualRate decimal.Decimal, tenureMonths int) error {
	if !principal.IsPositive() {
		return domain.InvalidInput("principal must be greater than 0")
	}
	if annualRate.IsNegative() {
		return domain.InvalidInput("interest rate must not be negative")
	}
	if tenureMonths <= 0 || tenureMonths > domain.MaxTenureMonths {
		return domain.InvalidInput("tenure must be between 1 and %d months", domain.MaxTenureMonths)
	}
	return nil
}
