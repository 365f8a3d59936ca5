package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventLoanCreated is the type of the event published after a loan commits
const EventLoanCreated = "loan.created"

// LoanCreatedEvent announces a newly committed loan
type LoanCreatedEvent struct {
	Type          string          `json:"type"`
	LoanID        uint            `json:"loan_id"`
	CustomerID    uint            `json:"customer_id"`
	Principal     decimal.Decimal `json:"loan_amount"`
	InterestRate  decimal.Decimal `json:"interest_rate"`
	RateCorrected bool            `json:"rate_corrected"`
	TenureMonths  int             `json:"tenure"`
	EMI           decimal.Decimal `json:"monthly_installment"`
	CreditScore   int             `json:"credit_score"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewLoanCreatedEvent builds the event for a committed loan
func NewLoanCreatedEvent(loan *Loan, score int, corrected bool, at time.Time) LoanCreatedEvent {
	return LoanCreatedEvent{
		Type:          EventLoanCreated,
		LoanID:        loan.ID,
		CustomerID:    loan.CustomerID,
		Principal:     loan.Principal,
		InterestRate:  loan.InterestRate,
		RateCorrected: corrected,
		TenureMonths:  loan.TenureMonths,
		EMI:           loan.EMI,
		CreditScore:   score,
		OccurredAt:    at,
	}
}
