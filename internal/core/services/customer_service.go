package services

import (
	"context"
	"log"
	"strings"

	"credit-approval/internal/adapters/persistence/repositories"
	"credit-approval/internal/core/domain"
	"credit-approval/internal/pkg/money"

	"github.com/shopspring/decimal"
)

// Registration limits
const (
	MinCustomerAge = 18
	MaxCustomerAge = 120

	minPhoneNumber = 1000000000
	maxPhoneNumber = 9999999999

	// LimitSalaryMultiple is how many monthly salaries make up the approved limit
	LimitSalaryMultiple = 36
)

// CustomerService handles customer registration
type CustomerService struct {
	customerRepo repositories.CustomerRepository
}

// NewCustomerService creates a new customer service
func NewCustomerService(customerRepo repositories.CustomerRepository) *CustomerService {
	return &CustomerService{customerRepo: customerRepo}
}

// RegisterInput represents register customer input
type RegisterInput struct {
	FirstName     string
	LastName      string
	Age           int
	MonthlyIncome decimal.Decimal
	PhoneNumber   int64
}

// Validate checks the registration fields
func (in RegisterInput) Validate() error {
	if strings.TrimSpace(in.FirstName) == "" {
		return domain.InvalidInput("first_name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		return domain.InvalidInput("last_name is required")
	}
	if in.Age < MinCustomerAge || in.Age > MaxCustomerAge {
		return domain.InvalidInput("age must be between %d and %d", MinCustomerAge, MaxCustomerAge)
	}
	if !in.MonthlyIncome.IsPositive() {
		return domain.InvalidInput("monthly_income must be greater than 0")
	}
	if ApprovedLimit(in.MonthlyIncome).GreaterThan(domain.MaxAmount) {
		return domain.InvalidInput("monthly_income is too large")
	}
	if in.PhoneNumber < minPhoneNumber || in.PhoneNumber > maxPhoneNumber {
		return domain.InvalidInput("phone_number must be a 10-digit number")
	}
	return nil
}

// ApprovedLimit is 36 monthly salaries rounded to the nearest lakh
func ApprovedLimit(monthlySalary decimal.Decimal) decimal.Decimal {
	return money.RoundToNearest(monthlySalary.Mul(decimal.NewFromInt(LimitSalaryMultiple)), money.Lakh)
}

// Register creates a customer with a derived approved limit and no debt
func (s *CustomerService) Register(ctx context.Context, input RegisterInput) (*domain.Customer, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	salary := money.Round(input.MonthlyIncome)
	customer := &domain.Customer{
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		Age:           input.Age,
		PhoneNumber:   input.PhoneNumber,
		MonthlySalary: salary,
		ApprovedLimit: ApprovedLimit(salary),
		CurrentDebt:   decimal.Zero,
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}

	log.Printf("👤 Customer %d registered: %s (limit %s)", customer.ID, customer.FullName(), customer.ApprovedLimit.StringFixed(0))
	return customer, nil
}
