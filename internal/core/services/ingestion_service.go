package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"credit-approval/internal/adapters/ingestion"
	"credit-approval/internal/adapters/persistence/repositories"
	"credit-approval/internal/core/domain"
	"credit-approval/internal/pkg/metrics"
	"credit-approval/internal/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ingestion sources
const (
	SourceCustomers = "customers"
	SourceLoans     = "loans"

	CustomerFile = "customer_data"
	LoanFile     = "loan_data"
)

// Accepted column names. The first present non-empty column wins.
var (
	colCustomerID     = []string{"customer_id"}
	colLoanID         = []string{"loan_id"}
	colFirstName      = []string{"first_name"}
	colLastName       = []string{"last_name"}
	colAge            = []string{"age"}
	colPhone          = []string{"phone_number"}
	colSalary         = []string{"monthly_salary"}
	colApprovedLimit  = []string{"approved_limit"}
	colCurrentDebt    = []string{"current_debt"}
	colLoanAmount     = []string{"loan_amount"}
	colTenure         = []string{"tenure"}
	colInterestRate   = []string{"interest_rate"}
	colEMI            = []string{"monthly_repayment", "monthly_payment", "emi"}
	colEMIsPaidOnTime = []string{"emis_paid_on_time"}
	colStartDate      = []string{"start_date", "date_of_approval"}
	colEndDate        = []string{"end_date"}
)

// IngestionService loads customer and loan tables into the datastore
type IngestionService struct {
	ingestionRepo repositories.IngestionRepository
	customerRepo  repositories.CustomerRepository
	loanRepo      repositories.LoanRepository
	uow           repositories.UnitOfWork
	scoreCache    ScoreCache
	queue         JobQueue
	dataDir       string
	now           func() time.Time
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	ingestionRepo repositories.IngestionRepository,
	customerRepo repositories.CustomerRepository,
	loanRepo repositories.LoanRepository,
	uow repositories.UnitOfWork,
	scoreCache ScoreCache,
	queue JobQueue,
	dataDir string,
) *IngestionService {
	return &IngestionService{
		ingestionRepo: ingestionRepo,
		customerRepo:  customerRepo,
		loanRepo:      loanRepo,
		uow:           uow,
		scoreCache:    scoreCache,
		queue:         queue,
		dataDir:       dataDir,
		now:           time.Now,
	}
}

// IngestionReport is a job with its skipped rows
type IngestionReport struct {
	Job      *domain.IngestionJob
	Failures []domain.IngestionRowFailure
}

// BatchResult summarises one ingestion batch
type BatchResult struct {
	Customers domain.BatchCounts
	Loans     domain.BatchCounts
	Failures  []domain.IngestionRowFailure
}

// rowError describes why a row was skipped
type rowError struct {
	field   string
	message string
}

func (e *rowError) Error() string {
	if e.field == "" {
		return e.message
	}
	return e.field + ": " + e.message
}

func fieldError(field, format string, args ...interface{}) *rowError {
	return &rowError{field: field, message: fmt.Sprintf(format, args...)}
}

// Trigger creates a pending job and hands it to the background queue
func (s *IngestionService) Trigger(ctx context.Context) (*domain.IngestionJob, error) {
	job := &domain.IngestionJob{
		ID:     uuid.NewString(),
		Status: domain.IngestionPending,
	}
	if err := s.ingestionRepo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create ingestion job: %w", err)
	}

	if err := s.queue.Enqueue(job.ID); err != nil {
		s.finish(ctx, job, domain.IngestionFailed, err.Error())
		return nil, err
	}

	log.Printf("📥 Ingestion job %s queued", job.ID)
	return job, nil
}

// Status returns a job with its failures
func (s *IngestionService) Status(ctx context.Context, jobID string) (*IngestionReport, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, domain.ErrIngestionJobNotFound
	}
	job, err := s.ingestionRepo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	failures, err := s.ingestionRepo.ListFailures(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &IngestionReport{Job: job, Failures: failures}, nil
}

// Run executes a queued job against the files in the data directory
func (s *IngestionService) Run(ctx context.Context, jobID string) {
	job, err := s.ingestionRepo.GetJob(ctx, jobID)
	if err != nil {
		log.Printf("❌ Ingestion job %s: %v", jobID, err)
		return
	}

	started := s.now()
	job.Status = domain.IngestionRunning
	job.StartedAt = &started
	if err := s.ingestionRepo.UpdateJob(ctx, job); err != nil {
		log.Printf("❌ Ingestion job %s: %v", jobID, err)
		return
	}
	log.Printf("🚀 Ingestion job %s started (data dir %s)", jobID, s.dataDir)

	customers, loans, err := s.readSources()
	if err != nil {
		log.Printf("❌ Ingestion job %s failed: %v", jobID, err)
		s.finish(ctx, job, domain.IngestionFailed, err.Error())
		return
	}

	result, err := s.RunBatch(ctx, jobID, customers, loans)
	if err != nil {
		log.Printf("❌ Ingestion job %s failed: %v", jobID, err)
		s.finish(ctx, job, domain.IngestionFailed, err.Error())
		return
	}

	job.Customers = result.Customers
	job.Loans = result.Loans
	status := domain.IngestionCompleted
	if len(result.Failures) > 0 {
		status = domain.IngestionCompletedWithErrors
	}
	s.finish(ctx, job, status, "")
	log.Printf("✅ Ingestion job %s %s: customers %+v, loans %+v", jobID, status, result.Customers, result.Loans)
}

func (s *IngestionService) finish(ctx context.Context, job *domain.IngestionJob, status domain.IngestionStatus, message string) {
	finished := s.now()
	job.Status = status
	job.Error = message
	job.FinishedAt = &finished
	if err := s.ingestionRepo.UpdateJob(ctx, job); err != nil {
		log.Printf("❌ Failed to save ingestion job %s: %v", job.ID, err)
	}
	metrics.IngestionJobs.WithLabelValues(string(status)).Inc()
}

// readSources reads both tables. A missing file fails the job before any
// row is written.
func (s *IngestionService) readSources() (*ingestion.Table, *ingestion.Table, error) {
	customerPath, err := ingestion.Locate(s.dataDir, CustomerFile)
	if err != nil {
		return nil, nil, err
	}
	loanPath, err := ingestion.Locate(s.dataDir, LoanFile)
	if err != nil {
		return nil, nil, err
	}

	customers, err := ingestion.ReadFile(customerPath)
	if err != nil {
		return nil, nil, err
	}
	loans, err := ingestion.ReadFile(loanPath)
	if err != nil {
		return nil, nil, err
	}
	return customers, loans, nil
}

// RunBatch upserts customers then loans by ID. Invalid rows and rows the
// datastore refuses are skipped and recorded as failures; the batch carries
// on. A failed customer lookup or a cancelled context aborts it, after the
// failures collected so far are saved.
func (s *IngestionService) RunBatch(ctx context.Context, jobID string, customers, loans *ingestion.Table) (*BatchResult, error) {
	result := &BatchResult{}
	fail := func(source string, row int, rerr *rowError) {
		log.Printf("⚠️ Ingestion job %s: %s row %d skipped: %s", jobID, source, row, rerr.Error())
		metrics.IngestionRows.WithLabelValues(source, "failed").Inc()
		result.Failures = append(result.Failures, domain.IngestionRowFailure{
			JobID:   jobID,
			Source:  source,
			Row:     row,
			Field:   rerr.field,
			Message: rerr.message,
		})
	}
	abort := func(err error) (*BatchResult, error) {
		if serr := s.ingestionRepo.AddFailures(context.WithoutCancel(ctx), result.Failures); serr != nil {
			log.Printf("❌ Ingestion job %s: failed to save row failures: %v", jobID, serr)
		}
		return nil, err
	}

	deriveLimit := !customers.HasColumn(colApprovedLimit...)
	known := make(map[uint]bool)
	for _, row := range customers.Rows {
		result.Customers.Total++
		customer, rerr := parseCustomerRow(row, deriveLimit)
		if rerr != nil {
			result.Customers.Failed++
			fail(SourceCustomers, row.Number, rerr)
			continue
		}

		created, err := s.customerRepo.Upsert(ctx, customer)
		if err != nil {
			if ctx.Err() != nil {
				return abort(fmt.Errorf("upsert customer %d: %w", customer.ID, err))
			}
			result.Customers.Failed++
			fail(SourceCustomers, row.Number, saveError(err))
			continue
		}
		known[customer.ID] = true
		countUpsert(&result.Customers, SourceCustomers, created)
	}

	today := startOfDay(s.now())
	touched := make(map[uint]bool)
	for _, row := range loans.Rows {
		result.Loans.Total++
		loan, rerr := parseLoanRow(row, today)
		if rerr == nil {
			var err error
			if rerr, err = s.checkCustomer(ctx, loan.CustomerID, known); err != nil {
				return abort(err)
			}
		}
		if rerr != nil {
			result.Loans.Failed++
			fail(SourceLoans, row.Number, rerr)
			continue
		}

		created, err := s.loanRepo.Upsert(ctx, loan)
		if err != nil {
			if ctx.Err() != nil {
				return abort(fmt.Errorf("upsert loan %d: %w", loan.ID, err))
			}
			result.Loans.Failed++
			fail(SourceLoans, row.Number, saveError(err))
			continue
		}
		touched[loan.CustomerID] = true
		countUpsert(&result.Loans, SourceLoans, created)
	}

	if err := s.ingestionRepo.AddFailures(ctx, result.Failures); err != nil {
		return nil, fmt.Errorf("save row failures: %w", err)
	}

	s.refreshDebt(ctx, touched)
	for id := range known {
		if err := s.scoreCache.Invalidate(ctx, id); err != nil {
			log.Printf("⚠️ Failed to invalidate score for customer %d: %v", id, err)
		}
	}
	return result, nil
}

func countUpsert(counts *domain.BatchCounts, source string, created bool) {
	if created {
		counts.Created++
		metrics.IngestionRows.WithLabelValues(source, "created").Inc()
		return
	}
	counts.Updated++
	metrics.IngestionRows.WithLabelValues(source, "updated").Inc()
}

func saveError(err error) *rowError {
	return &rowError{message: "could not be saved: " + err.Error()}
}

// checkCustomer fails loan rows whose customer is unknown. A lookup error is
// returned as is.
func (s *IngestionService) checkCustomer(ctx context.Context, customerID uint, known map[uint]bool) (*rowError, error) {
	if known[customerID] {
		return nil, nil
	}
	exists, err := s.customerRepo.Exists(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("look up customer %d: %w", customerID, err)
	}
	if !exists {
		return fieldError("customer_id", "customer %d not found", customerID), nil
	}
	known[customerID] = true
	return nil, nil
}

// refreshDebt recomputes CurrentDebt of customers whose loans changed.
// Each customer is updated under its lock, in ascending ID order.
func (s *IngestionService) refreshDebt(ctx context.Context, touched map[uint]bool) {
	ids := make([]uint, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		err := s.uow.WithinCustomerLock(ctx, id, func(ctx context.Context, customer *domain.Customer, repos repositories.TxRepositories) error {
			totals, err := repos.Loans.ActiveTotals(ctx, customer.ID)
			if err != nil {
				return err
			}
			return repos.Customers.UpdateCurrentDebt(ctx, customer.ID, totals.Principal)
		})
		if err != nil {
			log.Printf("⚠️ Failed to refresh current debt for customer %d: %v", id, err)
		}
	}
}

func parseCustomerRow(row ingestion.Row, deriveLimit bool) (*domain.Customer, *rowError) {
	id, rerr := requiredID(row, "customer_id", colCustomerID)
	if rerr != nil {
		return nil, rerr
	}

	first, ok := row.Get(colFirstName...)
	if !ok {
		return nil, fieldError("first_name", "is required")
	}
	last, ok := row.Get(colLastName...)
	if !ok {
		return nil, fieldError("last_name", "is required")
	}

	age, rerr := requiredInt(row, "age", colAge, 0, MaxCustomerAge)
	if rerr != nil {
		return nil, rerr
	}

	phone, rerr := requiredInt(row, "phone_number", colPhone, 1, maxPhoneNumber)
	if rerr != nil {
		return nil, rerr
	}

	salary, rerr := requiredAmount(row, "monthly_salary", colSalary)
	if rerr != nil {
		return nil, rerr
	}

	limit := ApprovedLimit(salary)
	if !deriveLimit {
		if limit, rerr = requiredAmount(row, "approved_limit", colApprovedLimit); rerr != nil {
			return nil, rerr
		}
	}

	debt, rerr := optionalAmount(row, "current_debt", colCurrentDebt)
	if rerr != nil {
		return nil, rerr
	}

	return &domain.Customer{
		ID:            id,
		FirstName:     first,
		LastName:      last,
		Age:           int(age),
		PhoneNumber:   phone,
		MonthlySalary: salary,
		ApprovedLimit: limit,
		CurrentDebt:   debt,
	}, nil
}

func parseLoanRow(row ingestion.Row, today time.Time) (*domain.Loan, *rowError) {
	customerID, rerr := requiredID(row, "customer_id", colCustomerID)
	if rerr != nil {
		return nil, rerr
	}
	loanID, rerr := requiredID(row, "loan_id", colLoanID)
	if rerr != nil {
		return nil, rerr
	}

	principal, rerr := requiredAmount(row, "loan_amount", colLoanAmount)
	if rerr != nil {
		return nil, rerr
	}
	tenure, rerr := requiredInt(row, "tenure", colTenure, 1, domain.MaxTenureMonths)
	if rerr != nil {
		return nil, rerr
	}
	rate, rerr := optionalAmount(row, "interest_rate", colInterestRate)
	if rerr != nil {
		return nil, rerr
	}
	if rate.GreaterThan(domain.MaxInterestRate) {
		return nil, fieldError("interest_rate", "must be between 0 and %s", domain.MaxInterestRate.String())
	}
	emi, rerr := optionalAmount(row, "monthly_repayment", colEMI)
	if rerr != nil {
		return nil, rerr
	}
	paid, rerr := optionalInt(row, "emis_paid_on_time", colEMIsPaidOnTime, 0, domain.MaxTenureMonths)
	if rerr != nil {
		return nil, rerr
	}

	start, rerr := requiredDate(row, "start_date", colStartDate)
	if rerr != nil {
		return nil, rerr
	}
	end, rerr := requiredDate(row, "end_date", colEndDate)
	if rerr != nil {
		return nil, rerr
	}
	if end.Before(start) {
		return nil, fieldError("end_date", "is before start_date")
	}

	return &domain.Loan{
		ID:             loanID,
		CustomerID:     customerID,
		Principal:      principal,
		InterestRate:   money.RoundRate(rate),
		TenureMonths:   int(tenure),
		EMI:            money.Round(emi),
		EMIsPaidOnTime: int(paid),
		StartDate:      start,
		EndDate:        end,
		IsActive:       !end.Before(today),
	}, nil
}

// IDs are stored in signed 64-bit columns on every supported datastore
func requiredID(row ingestion.Row, field string, columns []string) (uint, *rowError) {
	v, rerr := requiredInt(row, field, columns, 1, math.MaxInt64)
	if rerr != nil {
		return 0, rerr
	}
	return uint(v), nil
}

func requiredInt(row ingestion.Row, field string, columns []string, lo, hi int64) (int64, *rowError) {
	raw, ok := row.Get(columns...)
	if !ok {
		return 0, fieldError(field, "is required")
	}
	return parseWhole(field, raw, lo, hi)
}

func optionalInt(row ingestion.Row, field string, columns []string, lo, hi int64) (int64, *rowError) {
	raw, ok := row.Get(columns...)
	if !ok {
		return 0, nil
	}
	return parseWhole(field, raw, lo, hi)
}

// parseWhole accepts "12" as well as spreadsheet renderings like "12.0".
// The range check runs on the decimal so oversized values never wrap.
func parseWhole(field, raw string, lo, hi int64) (int64, *rowError) {
	d, err := money.Parse(raw)
	if err != nil || !d.IsInteger() {
		return 0, fieldError(field, "%q is not a whole number", raw)
	}
	if d.LessThan(decimal.NewFromInt(lo)) || d.GreaterThan(decimal.NewFromInt(hi)) {
		return 0, fieldError(field, "must be between %d and %d", lo, hi)
	}
	return d.IntPart(), nil
}

func requiredAmount(row ingestion.Row, field string, columns []string) (decimal.Decimal, *rowError) {
	raw, ok := row.Get(columns...)
	if !ok {
		return decimal.Zero, fieldError(field, "is required")
	}
	return parseAmount(field, raw)
}

func optionalAmount(row ingestion.Row, field string, columns []string) (decimal.Decimal, *rowError) {
	raw, ok := row.Get(columns...)
	if !ok {
		return decimal.Zero, nil
	}
	return parseAmount(field, raw)
}

func parseAmount(field, raw string) (decimal.Decimal, *rowError) {
	d, err := money.Parse(raw)
	if err != nil {
		return decimal.Zero, fieldError(field, "%q is not a number", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fieldError(field, "must not be negative")
	}
	if d.GreaterThan(domain.MaxAmount) {
		return decimal.Zero, fieldError(field, "must not exceed %s", domain.MaxAmount.String())
	}
	return d, nil
}

func requiredDate(row ingestion.Row, field string, columns []string) (time.Time, *rowError) {
	raw, ok := row.Get(columns...)
	if !ok {
		return time.Time{}, fieldError(field, "is required")
	}
	t, err := ingestion.ParseDate(raw)
	if err != nil {
		return time.Time{}, &rowError{field: field, message: err.Error()}
	}
	return t, nil
}
