package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"credit-approval/internal/adapters/persistence/repositories"
	"credit-approval/internal/core/credit"
	"credit-approval/internal/core/domain"
	"credit-approval/internal/pkg/metrics"
	"credit-approval/internal/pkg/money"

	"github.com/shopspring/decimal"
)

// PublishTimeout bounds how long an approved request waits on the event broker
const PublishTimeout = 5 * time.Second

// MaxEMIShareOfSalary is the percentage of monthly salary that all active
// EMIs together may take up
var MaxEMIShareOfSalary = decimal.NewFromInt(50)

// LoanService orchestrates eligibility checks and loan creation
type LoanService struct {
	customerRepo   repositories.CustomerRepository
	loanRepo       repositories.LoanRepository
	uow            repositories.UnitOfWork
	scoreCache     ScoreCache
	publisher      EventPublisher
	rateMode       credit.RateMode
	publishTimeout time.Duration
	now            func() time.Time
}

// NewLoanService creates a new loan service
func NewLoanService(
	customerRepo repositories.CustomerRepository,
	loanRepo repositories.LoanRepository,
	uow repositories.UnitOfWork,
	scoreCache ScoreCache,
	publisher EventPublisher,
	rateMode credit.RateMode,
) *LoanService {
	return &LoanService{
		customerRepo:   customerRepo,
		loanRepo:       loanRepo,
		uow:            uow,
		scoreCache:     scoreCache,
		publisher:      publisher,
		rateMode:       rateMode,
		publishTimeout: PublishTimeout,
		now:            time.Now,
	}
}

// EligibilityResult is the outcome of a read-only eligibility check
type EligibilityResult struct {
	CustomerID            uint
	Approved              bool
	Rejection             *domain.Rejection
	CreditScore           int
	InterestRate          decimal.Decimal
	CorrectedInterestRate decimal.Decimal
	RateCorrected         bool
	TenureMonths          int
	MonthlyInstallment    decimal.Decimal
	TotalPayable          decimal.Decimal
}

// CreateLoanResult is the outcome of a loan creation request
type CreateLoanResult struct {
	CustomerID         uint
	Approved           bool
	Loan               *domain.Loan
	Rejection          *domain.Rejection
	CreditScore        int
	InterestRate       decimal.Decimal
	RateCorrected      bool
	MonthlyInstallment decimal.Decimal
}

// LoanDetails is a loan together with its borrower
type LoanDetails struct {
	Loan     *domain.Loan
	Customer *domain.Customer
}

// assessment is the shared decision for one application
type assessment struct {
	score      int
	decision   credit.Decision
	projection credit.Projection
	rejection  *domain.Rejection
}

func (a assessment) approved() bool {
	return a.rejection == nil
}

// assess runs the decision steps after the score is known: credit limit,
// slab policy, EMI at the approved rate, then affordability
func (s *LoanService) assess(app domain.LoanApplication, customer *domain.Customer, score int, activeEMI decimal.Decimal) (assessment, error) {
	a := assessment{score: score}

	if app.Principal.GreaterThan(customer.ApprovedLimit) {
		proj, err := credit.Project(app.Principal, app.InterestRate, app.TenureMonths)
		if err != nil {
			return a, err
		}
		a.decision = credit.Decision{InterestRate: app.InterestRate}
		a.projection = proj
		a.rejection = &domain.Rejection{
			Reason:  domain.RejectCreditLimitExceeded,
			Message: fmt.Sprintf("Loan amount exceeds the approved limit of %s.", customer.ApprovedLimit.StringFixed(0)),
		}
		return a, nil
	}

	a.decision = credit.Evaluate(score, app.InterestRate, s.rateMode)
	proj, err := credit.Project(app.Principal, a.decision.InterestRate, app.TenureMonths)
	if err != nil {
		return a, err
	}
	a.projection = proj
	if !a.decision.Approved {
		a.rejection = a.decision.Rejection
		return a, nil
	}

	ceiling := money.Percent(customer.MonthlySalary, MaxEMIShareOfSalary)
	if activeEMI.Add(proj.EMI).GreaterThan(ceiling) {
		a.rejection = &domain.Rejection{
			Reason: domain.RejectAffordabilityExceeded,
			Message: fmt.Sprintf("Total EMIs of %s would exceed 50%% of monthly income (%s).",
				money.Round(activeEMI.Add(proj.EMI)).StringFixed(2), money.Round(ceiling).StringFixed(2)),
		}
	}
	return a, nil
}

// score computes a customer's credit score from the given history
func (s *LoanService) score(history []domain.LoanHistoryRecord, customer *domain.Customer, asOf time.Time) int {
	b := credit.Breakdown(history, customer.ApprovedLimit, asOf)
	if b.NoHistory {
		log.Printf("📊 Customer %d score=%d (no loan history)", customer.ID, b.Score)
		return b.Score
	}
	log.Printf("📊 Customer %d score=%d (repayment=%s active=%s year=%s volume=%s cutoff=%t)",
		customer.ID, b.Score, b.Repayment.StringFixed(1), b.ActiveLoans.StringFixed(1),
		b.CurrentYear.StringFixed(1), b.Volume.StringFixed(1), b.Cutoff)
	return b.Score
}

// cachedScore returns the cached score or computes and caches it
func (s *LoanService) cachedScore(ctx context.Context, customer *domain.Customer, asOf time.Time) (int, error) {
	if score, ok := s.scoreCache.Get(ctx, customer.ID); ok {
		metrics.ScoreCacheHits.WithLabelValues("hit").Inc()
		return score, nil
	}
	metrics.ScoreCacheHits.WithLabelValues("miss").Inc()

	history, err := s.loanRepo.History(ctx, customer.ID)
	if err != nil {
		return 0, fmt.Errorf("load loan history: %w", err)
	}
	score := s.score(history, customer, asOf)
	if err := s.scoreCache.Set(ctx, customer.ID, score); err != nil {
		log.Printf("⚠️ Failed to cache score for customer %d: %v", customer.ID, err)
	}
	return score, nil
}

// CheckEligibility evaluates an application without taking any lock or
// mutating state
func (s *LoanService) CheckEligibility(ctx context.Context, app domain.LoanApplication) (*EligibilityResult, error) {
	started := time.Now()
	defer func() {
		metrics.DecisionDuration.WithLabelValues("check_eligibility").Observe(time.Since(started).Seconds())
	}()

	if err := app.Validate(); err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.GetByID(ctx, app.CustomerID)
	if err != nil {
		return nil, err
	}

	asOf := s.now()
	score, err := s.cachedScore(ctx, customer, asOf)
	if err != nil {
		return nil, err
	}

	totals, err := s.loanRepo.ActiveTotals(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("load active loans: %w", err)
	}

	a, err := s.assess(app, customer, score, totals.EMI)
	if err != nil {
		return nil, err
	}
	recordDecision("check_eligibility", a.rejection)

	return &EligibilityResult{
		CustomerID:            customer.ID,
		Approved:              a.approved(),
		Rejection:             a.rejection,
		CreditScore:           score,
		InterestRate:          app.InterestRate,
		CorrectedInterestRate: a.decision.InterestRate,
		RateCorrected:         a.decision.RateCorrected,
		TenureMonths:          app.TenureMonths,
		MonthlyInstallment:    a.projection.EMI,
		TotalPayable:          a.projection.TotalPayable,
	}, nil
}

// CreateLoan decides and, when approved, persists a loan. The whole decision
// runs under the customer's lock so concurrent requests for one customer
// cannot jointly exceed the affordability ceiling.
func (s *LoanService) CreateLoan(ctx context.Context, app domain.LoanApplication) (*CreateLoanResult, error) {
	started := time.Now()
	defer func() {
		metrics.DecisionDuration.WithLabelValues("create_loan").Observe(time.Since(started).Seconds())
	}()

	if err := app.Validate(); err != nil {
		return nil, err
	}

	result := &CreateLoanResult{CustomerID: app.CustomerID}
	err := s.uow.WithinCustomerLock(ctx, app.CustomerID, func(ctx context.Context, customer *domain.Customer, repos repositories.TxRepositories) error {
		asOf := s.now()

		history, err := repos.Loans.History(ctx, customer.ID)
		if err != nil {
			return fmt.Errorf("load loan history: %w", err)
		}
		score := s.score(history, customer, asOf)

		totals, err := repos.Loans.ActiveTotals(ctx, customer.ID)
		if err != nil {
			return fmt.Errorf("load active loans: %w", err)
		}

		a, err := s.assess(app, customer, score, totals.EMI)
		if err != nil {
			return err
		}
		result.CreditScore = score
		result.InterestRate = a.decision.InterestRate
		result.RateCorrected = a.decision.RateCorrected
		result.MonthlyInstallment = a.projection.EMI
		if !a.approved() {
			result.Rejection = a.rejection
			return nil
		}

		start := startOfDay(asOf)
		loan := &domain.Loan{
			CustomerID:     customer.ID,
			Principal:      app.Principal,
			InterestRate:   a.decision.InterestRate,
			TenureMonths:   app.TenureMonths,
			EMI:            a.projection.EMI,
			EMIsPaidOnTime: 0,
			StartDate:      start,
			EndDate:        start.AddDate(0, app.TenureMonths, 0),
			IsActive:       true,
		}
		if err := repos.Loans.Create(ctx, loan); err != nil {
			return fmt.Errorf("create loan: %w", err)
		}

		// CurrentDebt is the active principal including the new loan
		debt := totals.Principal.Add(loan.Principal)
		if err := repos.Customers.UpdateCurrentDebt(ctx, customer.ID, debt); err != nil {
			return fmt.Errorf("update current debt: %w", err)
		}

		result.Approved = true
		result.Loan = loan
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrResourceBusy) {
			metrics.ResourceBusy.Inc()
		}
		return nil, err
	}

	recordDecision("create_loan", result.Rejection)
	if !result.Approved {
		log.Printf("🚫 Loan rejected for customer %d: %s", app.CustomerID, result.Rejection.Reason)
		return result, nil
	}

	metrics.LoansCreated.Inc()
	log.Printf("✅ Loan %d created for customer %d: amount=%s rate=%s%% tenure=%d emi=%s",
		result.Loan.ID, app.CustomerID, result.Loan.Principal.StringFixed(2),
		result.Loan.InterestRate.String(), result.Loan.TenureMonths, result.Loan.EMI.StringFixed(2))

	if err := s.scoreCache.Invalidate(ctx, app.CustomerID); err != nil {
		log.Printf("⚠️ Failed to invalidate score for customer %d: %v", app.CustomerID, err)
	}
	evt := domain.NewLoanCreatedEvent(result.Loan, result.CreditScore, result.RateCorrected, s.now())
	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.PublishLoanCreated(pubCtx, evt); err != nil {
		log.Printf("⚠️ Failed to publish %s for loan %d: %v", evt.Type, result.Loan.ID, err)
	}

	return result, nil
}

// ViewLoan returns a loan with its customer
func (s *LoanService) ViewLoan(ctx context.Context, loanID uint) (*LoanDetails, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	customer, err := s.customerRepo.GetByID(ctx, loan.CustomerID)
	if err != nil {
		return nil, err
	}
	return &LoanDetails{Loan: loan, Customer: customer}, nil
}

// ViewLoansForCustomer lists a customer's loans with pagination
func (s *LoanService) ViewLoansForCustomer(ctx context.Context, customerID uint, offset, limit int) ([]*domain.Loan, int64, error) {
	exists, err := s.customerRepo.Exists(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, domain.ErrCustomerNotFound
	}
	return s.loanRepo.ListByCustomer(ctx, customerID, offset, limit)
}

// LoanSchedule returns the amortization schedule of a loan
func (s *LoanService) LoanSchedule(ctx context.Context, loanID uint) (*domain.Loan, []credit.Installment, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}
	schedule, err := credit.Schedule(loan.Principal, loan.InterestRate, loan.TenureMonths, loan.StartDate)
	if err != nil {
		return nil, nil, err
	}
	return loan, schedule, nil
}

func recordDecision(operation string, rejection *domain.Rejection) {
	outcome := "approved"
	if rejection != nil {
		outcome = string(rejection.Reason)
	}
	metrics.Decisions.WithLabelValues(operation, outcome).Inc()
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
