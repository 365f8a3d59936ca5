package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoanApplicationValidate(t *testing.T) {
	valid := LoanApplication{
		CustomerID:   1,
		Principal:    decimal.RequireFromString("500000.50"),
		InterestRate: decimal.RequireFromString("12.01"),
		TenureMonths: 24,
	}
	assert.NoError(t, valid.Validate())

	trailingZeros := valid
	trailingZeros.InterestRate = decimal.RequireFromString("12.500")
	assert.NoError(t, trailingZeros.Validate())

	tests := []struct {
		name   string
		mutate func(a *LoanApplication)
	}{
		{"missing customer", func(a *LoanApplication) { a.CustomerID = 0 }},
		{"zero principal", func(a *LoanApplication) { a.Principal = decimal.Zero }},
		{"principal too large", func(a *LoanApplication) { a.Principal = decimal.RequireFromString("10000000000000") }},
		{"principal below a cent", func(a *LoanApplication) { a.Principal = decimal.RequireFromString("1000.005") }},
		{"negative rate", func(a *LoanApplication) { a.InterestRate = decimal.RequireFromString("-1") }},
		{"rate above 100", func(a *LoanApplication) { a.InterestRate = decimal.RequireFromString("100.01") }},
		{"rate with three places", func(a *LoanApplication) { a.InterestRate = decimal.RequireFromString("12.004") }},
		{"zero tenure", func(a *LoanApplication) { a.TenureMonths = 0 }},
		{"tenure too long", func(a *LoanApplication) { a.TenureMonths = MaxTenureMonths + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := valid
			tt.mutate(&app)
			assert.ErrorIs(t, app.Validate(), ErrInvalidInput)
		})
	}
}

func TestHasPlaces(t *testing.T) {
	assert.True(t, HasPlaces(decimal.RequireFromString("12"), 2))
	assert.True(t, HasPlaces(decimal.RequireFromString("12.34"), 2))
	assert.True(t, HasPlaces(decimal.RequireFromString("12.340"), 2))
	assert.False(t, HasPlaces(decimal.RequireFromString("12.341"), 2))
}
