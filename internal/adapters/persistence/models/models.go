package models

import (
	"time"

	"credit-approval/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// Customers & Loans
// ============================================================

// Customer represents customers table
type Customer struct {
	ID            uint            `gorm:"primaryKey" json:"customer_id"`
	FirstName     string          `gorm:"size:100;not null" json:"first_name"`
	LastName      string          `gorm:"size:100;not null" json:"last_name"`
	Age           int             `gorm:"not null" json:"age"`
	PhoneNumber   int64           `gorm:"index;not null" json:"phone_number"`
	MonthlySalary decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"monthly_salary"`
	ApprovedLimit decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"approved_limit"`
	CurrentDebt   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"current_debt"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Loans []Loan `gorm:"foreignKey:CustomerID" json:"loans,omitempty"`
}

func (Customer) TableName() string {
	return "customers"
}

// ToDomain converts the row into a domain customer
func (c *Customer) ToDomain() *domain.Customer {
	return &domain.Customer{
		ID:            c.ID,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Age:           c.Age,
		PhoneNumber:   c.PhoneNumber,
		MonthlySalary: c.MonthlySalary,
		ApprovedLimit: c.ApprovedLimit,
		CurrentDebt:   c.CurrentDebt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// CustomerFromDomain builds a row from a domain customer
func CustomerFromDomain(c *domain.Customer) *Customer {
	return &Customer{
		ID:            c.ID,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Age:           c.Age,
		PhoneNumber:   c.PhoneNumber,
		MonthlySalary: c.MonthlySalary,
		ApprovedLimit: c.ApprovedLimit,
		CurrentDebt:   c.CurrentDebt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// Loan represents loans table
type Loan struct {
	ID               uint            `gorm:"primaryKey" json:"loan_id"`
	CustomerID       uint            `gorm:"not null;index" json:"customer_id"`
	LoanAmount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"loan_amount"`
	InterestRate     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"interest_rate"`
	Tenure           int             `gorm:"not null" json:"tenure"`
	MonthlyRepayment decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"monthly_repayment"`
	EMIsPaidOnTime   int             `gorm:"column:emis_paid_on_time;not null;default:0" json:"emis_paid_on_time"`
	StartDate        time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate          time.Time       `gorm:"type:date;not null;index" json:"end_date"`
	IsActive         bool            `gorm:"not null;index" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// ToDomain converts the row into a domain loan
func (l *Loan) ToDomain() *domain.Loan {
	return &domain.Loan{
		ID:             l.ID,
		CustomerID:     l.CustomerID,
		Principal:      l.LoanAmount,
		InterestRate:   l.InterestRate,
		TenureMonths:   l.Tenure,
		EMI:            l.MonthlyRepayment,
		EMIsPaidOnTime: l.EMIsPaidOnTime,
		StartDate:      l.StartDate,
		EndDate:        l.EndDate,
		IsActive:       l.IsActive,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

// LoanFromDomain builds a row from a domain loan
func LoanFromDomain(l *domain.Loan) *Loan {
	return &Loan{
		ID:               l.ID,
		CustomerID:       l.CustomerID,
		LoanAmount:       l.Principal,
		InterestRate:     l.InterestRate,
		Tenure:           l.TenureMonths,
		MonthlyRepayment: l.EMI,
		EMIsPaidOnTime:   l.EMIsPaidOnTime,
		StartDate:        l.StartDate,
		EndDate:          l.EndDate,
		IsActive:         l.IsActive,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}

// ============================================================
// Ingestion
// ============================================================

// IngestionJob represents ingestion_jobs table
type IngestionJob struct {
	ID               string     `gorm:"primaryKey;size:36" json:"job_id"`
	Status           string     `gorm:"size:32;not null;index" json:"status"`
	CustomersTotal   int        `gorm:"not null;default:0" json:"customers_total"`
	CustomersCreated int        `gorm:"not null;default:0" json:"customers_created"`
	CustomersUpdated int        `gorm:"not null;default:0" json:"customers_updated"`
	CustomersFailed  int        `gorm:"not null;default:0" json:"customers_failed"`
	LoansTotal       int        `gorm:"not null;default:0" json:"loans_total"`
	LoansCreated     int        `gorm:"not null;default:0" json:"loans_created"`
	LoansUpdated     int        `gorm:"not null;default:0" json:"loans_updated"`
	LoansFailed      int        `gorm:"not null;default:0" json:"loans_failed"`
	Error            string     `gorm:"type:text" json:"error"`
	StartedAt        *time.Time `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (IngestionJob) TableName() string {
	return "ingestion_jobs"
}

// ToDomain converts the row into a domain job
func (j *IngestionJob) ToDomain() *domain.IngestionJob {
	return &domain.IngestionJob{
		ID:     j.ID,
		Status: domain.IngestionStatus(j.Status),
		Customers: domain.BatchCounts{
			Total:   j.CustomersTotal,
			Created: j.CustomersCreated,
			Updated: j.CustomersUpdated,
			Failed:  j.CustomersFailed,
		},
		Loans: domain.BatchCounts{
			Total:   j.LoansTotal,
			Created: j.LoansCreated,
			Updated: j.LoansUpdated,
			Failed:  j.LoansFailed,
		},
		Error:      j.Error,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		CreatedAt:  j.CreatedAt,
	}
}

// IngestionJobFromDomain builds a row from a domain job
func IngestionJobFromDomain(j *domain.IngestionJob) *IngestionJob {
	return &IngestionJob{
		ID:               j.ID,
		Status:           string(j.Status),
		CustomersTotal:   j.Customers.Total,
		CustomersCreated: j.Customers.Created,
		CustomersUpdated: j.Customers.Updated,
		CustomersFailed:  j.Customers.Failed,
		LoansTotal:       j.Loans.Total,
		LoansCreated:     j.Loans.Created,
		LoansUpdated:     j.Loans.Updated,
		LoansFailed:      j.Loans.Failed,
		Error:            j.Error,
		StartedAt:        j.StartedAt,
		FinishedAt:       j.FinishedAt,
		CreatedAt:        j.CreatedAt,
	}
}

// IngestionRowFailure represents ingestion_row_failures table
type IngestionRowFailure struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobID     string    `gorm:"size:36;not null;index" json:"job_id"`
	Source    string    `gorm:"size:32;not null" json:"source"`
	Row       int       `gorm:"column:row_no;not null" json:"row"`
	Field     string    `gorm:"size:64" json:"field"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (IngestionRowFailure) TableName() string {
	return "ingestion_row_failures"
}

// ToDomain converts the row into a domain failure
func (f *IngestionRowFailure) ToDomain() domain.IngestionRowFailure {
	return domain.IngestionRowFailure{
		JobID:   f.JobID,
		Source:  f.Source,
		Row:     f.Row,
		Field:   f.Field,
		Message: f.Message,
	}
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Customer{},
		&Loan{},
		&IngestionJob{},
		&IngestionRowFailure{},
	)
}
