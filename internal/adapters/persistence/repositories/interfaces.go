package repositories

import (
	"context"
	"time"

	"credit-approval/internal/core/domain"

	"github.com/shopspring/decimal"
)

// CustomerRepository defines customer repository interface
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id uint) (*domain.Customer, error)
	Upsert(ctx context.Context, customer *domain.Customer) (created bool, err error)
	UpdateCurrentDebt(ctx context.Context, id uint, debt decimal.Decimal) error
	Exists(ctx context.Context, id uint) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// ActiveTotals aggregates a customer's active obligations
type ActiveTotals struct {
	Principal decimal.Decimal
	EMI       decimal.Decimal
	Count     int64
}

// LoanRepository defines loan repository interface
type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id uint) (*domain.Loan, error)
	ListByCustomer(ctx context.Context, customerID uint, offset, limit int) ([]*domain.Loan, int64, error)
	History(ctx context.Context, customerID uint) ([]domain.LoanHistoryRecord, error)
	ActiveTotals(ctx context.Context, customerID uint) (ActiveTotals, error)
	Upsert(ctx context.Context, loan *domain.Loan) (created bool, err error)
	CustomersWithMaturedLoans(ctx context.Context, asOf time.Time) ([]uint, error)
	CloseMatured(ctx context.Context, customerID uint, asOf time.Time) (int64, error)
}

// IngestionRepository defines ingestion job repository interface
type IngestionRepository interface {
	CreateJob(ctx context.Context, job *domain.IngestionJob) error
	GetJob(ctx context.Context, id string) (*domain.IngestionJob, error)
	UpdateJob(ctx context.Context, job *domain.IngestionJob) error
	AddFailures(ctx context.Context, failures []domain.IngestionRowFailure) error
	ListFailures(ctx context.Context, jobID string) ([]domain.IngestionRowFailure, error)
}

// TxRepositories are bound to the transaction opened by a UnitOfWork
type TxRepositories struct {
	Customers CustomerRepository
	Loans     LoanRepository
}

// UnitOfWork runs a function inside a transaction holding a customer's lock
type UnitOfWork interface {
	WithinCustomerLock(ctx context.Context, customerID uint, fn func(ctx context.Context, customer *domain.Customer, repos TxRepositories) error) error
}
