package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxTenureMonths is the longest tenure accepted for a loan
const MaxTenureMonths = 360

// Stored amounts are decimal(15,2) and rates decimal(5,2)
const (
	AmountPlaces = 2
	RatePlaces   = 2
)

var (
	// MaxAmount is the largest amount a decimal(15,2) column holds
	MaxAmount       = decimal.RequireFromString("9999999999999.99")
	// MaxInterestRate is the highest annual rate in percent
	MaxInterestRate = decimal.NewFromInt(100)
)

// HasPlaces reports whether d has no more than places fractional digits.
// Trailing zeros do not count, so 12.500 has one.
func HasPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// Customer represents a customer in the domain layer
type Customer struct {
	ID            uint
	FirstName     string
	LastName      string
	Age           int
	PhoneNumber   int64
	MonthlySalary decimal.Decimal
	ApprovedLimit decimal.Decimal
	CurrentDebt   decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName returns first and last name joined
func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// LoanStatus is the lifecycle state of a historical loan
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "ACTIVE"
	LoanStatusClosed LoanStatus = "CLOSED"
)

// LoanHistoryRecord is one past or current loan as seen by the scoring engine
type LoanHistoryRecord struct {
	Principal      decimal.Decimal
	InterestRate   decimal.Decimal
	TenureMonths   int
	EMI            decimal.Decimal
	EMIsPaidOnTime int
	StartDate      time.Time
	Status         LoanStatus
}

// AmountPaid is the repaid amount implied by on-time installments
func (r LoanHistoryRecord) AmountPaid() decimal.Decimal {
	return r.EMI.Mul(decimal.NewFromInt(int64(r.EMIsPaidOnTime)))
}

// StartYear returns the calendar year the loan started
func (r LoanHistoryRecord) StartYear() int {
	return r.StartDate.Year()
}

// IsActive reports whether the loan still carries an obligation
func (r LoanHistoryRecord) IsActive() bool {
	return r.Status == LoanStatusActive
}

// LoanApplication is a request for credit. It is never persisted as such.
type LoanApplication struct {
	CustomerID   uint
	Principal    decimal.Decimal
	InterestRate decimal.Decimal
	TenureMonths int
}

// Validate checks request fields against the accepted ranges
func (a LoanApplication) Validate() error {
	if a.CustomerID == 0 {
		return InvalidInput("customer_id is required")
	}
	if !a.Principal.IsPositive() {
		return InvalidInput("loan_amount must be greater than 0")
	}
	if a.Principal.GreaterThan(MaxAmount) {
		return InvalidInput("loan_amount must not exceed %s", MaxAmount.String())
	}
	if !HasPlaces(a.Principal, AmountPlaces) {
		return InvalidInput("loan_amount must have at most %d decimal places", AmountPlaces)
	}
	if a.InterestRate.IsNegative() || a.InterestRate.GreaterThan(MaxInterestRate) {
		return InvalidInput("interest_rate must be between 0 and 100")
	}
	if !HasPlaces(a.InterestRate, RatePlaces) {
		return InvalidInput("interest_rate must have at most %d decimal places", RatePlaces)
	}
	if a.TenureMonths < 1 || a.TenureMonths > MaxTenureMonths {
		return InvalidInput("tenure must be between 1 and %d months", MaxTenureMonths)
	}
	return nil
}

// Loan represents an approved loan
type Loan struct {
	ID             uint
	CustomerID     uint
	Principal      decimal.Decimal
	InterestRate   decimal.Decimal
	TenureMonths   int
	EMI            decimal.Decimal
	EMIsPaidOnTime int
	StartDate      time.Time
	EndDate        time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RepaymentsLeft returns the number of monthly installments still due
func (l *Loan) RepaymentsLeft() int {
	left := l.TenureMonths - l.EMIsPaidOnTime
	if left < 0 {
		return 0
	}
	return left
}

// HistoryRecord converts a loan into the scoring engine's input shape
func (l *Loan) HistoryRecord() LoanHistoryRecord {
	status := LoanStatusClosed
	if l.IsActive {
		status = LoanStatusActive
	}
	return LoanHistoryRecord{
		Principal:      l.Principal,
		InterestRate:   l.InterestRate,
		TenureMonths:   l.TenureMonths,
		EMI:            l.EMI,
		EMIsPaidOnTime: l.EMIsPaidOnTime,
		StartDate:      l.StartDate,
		Status:         status,
	}
}

// IngestionStatus is the state of an ingestion job
type IngestionStatus string

const (
	IngestionPending             IngestionStatus = "PENDING"
	IngestionRunning             IngestionStatus = "RUNNING"
	IngestionCompleted           IngestionStatus = "COMPLETED"
	IngestionCompletedWithErrors IngestionStatus = "COMPLETED_WITH_ERRORS"
	IngestionFailed              IngestionStatus = "FAILED"
)

// BatchCounts summarises one entity's rows in an ingestion batch
type BatchCounts struct {
	Total   int `json:"total_rows"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"errors"`
}

// IngestionJob tracks one asynchronous ingestion run
type IngestionJob struct {
	ID         string
	Status     IngestionStatus
	Customers  BatchCounts
	Loans      BatchCounts
	Error      string
	StartedAt  *time.Time
	FinishedAt *time.Time
	CreatedAt  time.Time
}

// IngestionRowFailure records one skipped row of an ingestion batch
type IngestionRowFailure struct {
	JobID   string
	Source  string
	Row     int
	Field   string
	Message string
}
