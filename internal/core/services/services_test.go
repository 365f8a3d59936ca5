package services

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"credit-approval/internal/adapters/ingestion"
	"credit-approval/internal/adapters/persistence/repositories"
	"credit-approval/internal/adapters/persistence/testdb"
	"credit-approval/internal/core/credit"
	"credit-approval/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeCache struct {
	mu     sync.Mutex
	scores map[uint]int
	drops  []uint
}

func newFakeCache() *fakeCache {
	return &fakeCache{scores: make(map[uint]int)}
}

func (c *fakeCache) Get(_ context.Context, id uint) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.scores[id]
	return s, ok
}

func (c *fakeCache) Set(_ context.Context, id uint, score int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores[id] = score
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scores, id)
	c.drops = append(c.drops, id)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.LoanCreatedEvent
}

func (p *fakePublisher) PublishLoanCreated(_ context.Context, evt domain.LoanCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

type fakeQueue struct {
	ids []string
	err error
}

func (q *fakeQueue) Enqueue(id string) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

type fixture struct {
	db        *gorm.DB
	customers repositories.CustomerRepository
	loans     repositories.LoanRepository
	jobs      repositories.IngestionRepository
	uow       repositories.UnitOfWork
	cache     *fakeCache
	publisher *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	db := testdb.New(t)
	return &fixture{
		db:        db,
		customers: repositories.NewCustomerRepository(db),
		loans:     repositories.NewLoanRepository(db),
		jobs:      repositories.NewIngestionRepository(db),
		uow:       repositories.NewUnitOfWork(db, 5*time.Second),
		cache:     newFakeCache(),
		publisher: &fakePublisher{},
	}
}

func (f *fixture) loanService(mode credit.RateMode) *LoanService {
	return NewLoanService(f.customers, f.loans, f.uow, f.cache, f.publisher, mode)
}

func (f *fixture) register(t *testing.T, salary string) *domain.Customer {
	c, err := NewCustomerService(f.customers).Register(context.Background(), RegisterInput{
		FirstName:     "Asha",
		LastName:      "Rao",
		Age:           34,
		MonthlyIncome: dec(salary),
		PhoneNumber:   9876543210,
	})
	require.NoError(t, err)
	return c
}

func TestApprovedLimit(t *testing.T) {
	assert.True(t, ApprovedLimit(dec("50000")).Equal(dec("1800000")))
	assert.True(t, ApprovedLimit(dec("52345")).Equal(dec("1900000")))
	assert.True(t, ApprovedLimit(dec("1000")).Equal(dec("0")))
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, "100000")

	assert.NotZero(t, c.ID)
	assert.True(t, c.ApprovedLimit.Equal(dec("3600000")))
	assert.True(t, c.CurrentDebt.IsZero())

	stored, err := f.customers.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", stored.FullName())
}

func TestRegisterValidation(t *testing.T) {
	svc := NewCustomerService(newFixture(t).customers)
	valid := RegisterInput{FirstName: "A", LastName: "B", Age: 30, MonthlyIncome: dec("1000"), PhoneNumber: 9876543210}

	cases := map[string]func(in *RegisterInput){
		"missing first name": func(in *RegisterInput) { in.FirstName = " " },
		"underage":           func(in *RegisterInput) { in.Age = 17 },
		"zero income":        func(in *RegisterInput) { in.MonthlyIncome = decimal.Zero },
		"short phone":        func(in *RegisterInput) { in.PhoneNumber = 12345 },
		"income too large":   func(in *RegisterInput) { in.MonthlyIncome = dec("1000000000000") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestCheckEligibilityNewCustomer(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, "100000")

	res, err := f.loanService(credit.RateCorrect).CheckEligibility(context.Background(), domain.LoanApplication{
		CustomerID:   c.ID,
		Principal:    dec("500000"),
		InterestRate: dec("8"),
		TenureMonths: 24,
	})
	require.NoError(t, err)

	// no history scores 50, which sits in the 12% slab
	assert.Equal(t, credit.DefaultScore, res.CreditScore)
	assert.True(t, res.Approved)
	assert.True(t, res.RateCorrected)
	assert.True(t, res.CorrectedInterestRate.Equal(dec("12.01")))
	assert.True(t, res.InterestRate.Equal(dec("8")))

	want, err := credit.EMI(dec("500000"), dec("12.01"), 24)
	require.NoError(t, err)
	assert.True(t, res.MonthlyInstallment.Equal(want), "got %s", res.MonthlyInstallment)

	score, cached := f.cache.Get(context.Background(), c.ID)
	assert.True(t, cached)
	assert.Equal(t, credit.DefaultScore, score)
}

func TestCheckEligibilityLowSlab(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, "100000")
	require.NoError(t, f.cache.Set(context.Background(), c.ID, 20))

	app := domain.LoanApplication{CustomerID: c.ID, Principal: dec("100000"), InterestRate: dec("10"), TenureMonths: 12}

	res, err := f.loanService(credit.RateCorrect).CheckEligibility(context.Background(), app)
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.True(t, res.CorrectedInterestRate.Equal(dec("16.01")))

	res, err = f.loanService(credit.RateReject).CheckEligibility(context.Background(), app)
	require.NoError(t, err)
	assert.False(t, res.Approved)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, domain.RejectRateTooLow, res.Rejection.Reason)
}

func TestCheckEligibilityRejections(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, "100000")
	svc := f.loanService(credit.RateCorrect)
	ctx := context.Background()

	res, err := svc.CheckEligibility(ctx, domain.LoanApplication{CustomerID: c.ID, Principal: dec("4000000"), InterestRate: dec("14"), TenureMonths: 120})
	require.NoError(t, err)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, domain.RejectCreditLimitExceeded, res.Rejection.Reason)

	// 3M over 12 months needs far more than half the salary
	res, err = svc.CheckEligibility(ctx, domain.LoanApplication{CustomerID: c.ID, Principal: dec("3000000"), InterestRate: dec("14"), TenureMonths: 12})
	require.NoError(t, err)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, domain.RejectAffordabilityExceeded, res.Rejection.Reason)

	require.NoError(t, f.cache.Set(ctx, c.ID, 5))
	res, err = svc.CheckEligibility(ctx, domain.LoanApplication{CustomerID: c.ID, Principal: dec("1000"), InterestRate: dec("20"), TenureMonths: 12})
	require.NoError(t, err)
	require.NotNil(t, res.Rejection)
	assert.Equal(t, domain.RejectCreditScoreTooLow, res.Rejection.Reason)
}

func TestCheckEligibilityErrors(t *testing.T) {
	f := newFixture(t)
	svc := f.loanService(credit.RateCorrect)

	_, err := svc.CheckEligibility(context.Background(), domain.LoanApplication{CustomerID: 42, Principal: dec("1000"), InterestRate: dec("12"), TenureMonths: 12})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.CheckEligibility(context.Background(), domain.LoanApplication{CustomerID: 42, Principal: dec("1000"), InterestRate: dec("12"), TenureMonths: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateLoan(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, "100000")
	svc := f.loanService(credit.RateCorrect)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, c.ID, 77))

	res, err := svc.CreateLoan(ctx, domain.LoanApplication{CustomerID: c.ID, Principal: dec("200000"), InterestRate: dec("14"), TenureMonths: 24})
	require.NoError(t, err)
	require.True(t, res.Approved)
	require.NotNil(t, res.Loan)
	assert.NotZero(t, res.Loan.ID)
	assert.True(t, res.Loan.IsActive)
	assert.Equal(t, res.Loan.StartDate.AddDate(0, 24, 0), res.Loan.EndDate)

	stored, err := f.customers.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentDebt.Equal(dec("200000")))

	_, cached := f.cache.Get(ctx, c.ID)
	assert.False(t, cached)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, res.Loan.ID, f.publisher.events[0].LoanID)

	details, err := svc.ViewLoan(ctx, res.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, details.Customer.ID)

	loans, total, err := svc.ViewLoansForCustomer(ctx, c.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, loans, 1)

	_, schedule, err := svc.LoanSchedule(ctx, res.Loan.ID)
	require.NoError(t, err)
	assert.Len(t, schedule, 24)
}

func TestCreateLoanRejectedPersistsNothing(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, "100000")
	svc := f.loanService(credit.RateCorrect)
	ctx := context.Background()

	res, err := svc.CreateLoan(ctx, domain.LoanApplication{CustomerID: c.ID, Principal: dec("4000000"), InterestRate: dec("14"), TenureMonths: 120})
	require.NoError(t, err)
	assert.False(t, res.Approved)
	assert.Nil(t, res.Loan)

	_, total, err := svc.ViewLoansForCustomer(ctx, c.ID, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, f.publisher.events)
}

func TestCreateLoanUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	_, err := f.loanService(credit.RateCorrect).CreateLoan(context.Background(), domain.LoanApplication{CustomerID: 9, Principal: dec("1000"), InterestRate: dec("14"), TenureMonths: 12})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = f.loanService(credit.RateCorrect).ViewLoansForCustomer(context.Background(), 9, 0, 10)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestCreateLoanConcurrentAffordability(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, "100000")
	svc := f.loanService(credit.RateCorrect)

	// each EMI is about 48k against a 50k ceiling, so only one fits
	app := domain.LoanApplication{CustomerID: c.ID, Principal: dec("1000000"), InterestRate: dec("14"), TenureMonths: 24}

	const n = 5
	var wg sync.WaitGroup
	results := make([]*CreateLoanResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateLoan(context.Background(), app)
		}(i)
	}
	wg.Wait()

	approved := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if results[i].Approved {
			approved++
		}
	}
	assert.Equal(t, 1, approved)

	totals, err := f.loans.ActiveTotals(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.Count)
	assert.True(t, totals.EMI.LessThanOrEqual(dec("50000")))
}

const customerCSV = `customer_id,first_name,last_name,age,phone_number,monthly_salary,approved_limit,current_debt
1,Asha,Rao,34,9876543210,50000,1800000,0
2,Ravi,Kumar,41,9123456789,80000,2900000,12000
3,Meera,Iyer,abc,9000000000,60000,2200000,0
`

const loanCSV = `customer_id,loan_id,loan_amount,tenure,interest_rate,monthly_payment,emis_paid_on_time,date_of_approval,end_date
1,101,300000,24,12.5,14192.00,20,2023-01-10,2025-01-10
1,102,200000,36,11.0,6548.00,10,2024-06-01,2099-06-01
2,201,500000,60,10.0,10624.00,30,2022-03-15,2099-03-15
`

func writeSources(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CustomerFile+".csv"), []byte(customerCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, LoanFile+".csv"), []byte(loanCSV), 0o600))
	return dir
}

func (f *fixture) ingestionService(dir string, queue JobQueue) *IngestionService {
	svc := NewIngestionService(f.jobs, f.customers, f.loans, f.uow, f.cache, queue, dir)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestIngestionRun(t *testing.T) {
	f := newFixture(t)
	queue := &fakeQueue{}
	svc := f.ingestionService(writeSources(t), queue)
	ctx := context.Background()

	job, err := svc.Trigger(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionPending, job.Status)
	require.Equal(t, []string{job.ID}, queue.ids)

	svc.Run(ctx, job.ID)

	report, err := svc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionCompletedWithErrors, report.Job.Status)
	assert.Equal(t, domain.BatchCounts{Total: 3, Created: 2, Failed: 1}, report.Job.Customers)
	assert.Equal(t, domain.BatchCounts{Total: 3, Created: 3}, report.Job.Loans)
	assert.NotNil(t, report.Job.FinishedAt)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, SourceCustomers, report.Failures[0].Source)
	assert.Equal(t, 4, report.Failures[0].Row)
	assert.Equal(t, "age", report.Failures[0].Field)

	closed, err := f.loans.GetByID(ctx, 101)
	require.NoError(t, err)
	assert.False(t, closed.IsActive)

	// current debt is recomputed from active loans only
	c1, err := f.customers.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, c1.CurrentDebt.Equal(dec("200000")), "got %s", c1.CurrentDebt)
}

func TestIngestionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.ingestionService(writeSources(t), &fakeQueue{})
	ctx := context.Background()

	first, err := svc.Trigger(ctx)
	require.NoError(t, err)
	svc.Run(ctx, first.ID)

	second, err := svc.Trigger(ctx)
	require.NoError(t, err)
	svc.Run(ctx, second.ID)

	report, err := svc.Status(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCounts{Total: 3, Updated: 2, Failed: 1}, report.Job.Customers)
	assert.Equal(t, domain.BatchCounts{Total: 3, Updated: 3}, report.Job.Loans)

	count, err := f.customers.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestIngestionMissingFile(t *testing.T) {
	f := newFixture(t)
	svc := f.ingestionService(t.TempDir(), &fakeQueue{})
	ctx := context.Background()

	job, err := svc.Trigger(ctx)
	require.NoError(t, err)
	svc.Run(ctx, job.ID)

	report, err := svc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionFailed, report.Job.Status)
	assert.NotEmpty(t, report.Job.Error)

	count, err := f.customers.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngestionQueueFull(t *testing.T) {
	f := newFixture(t)
	svc := f.ingestionService(t.TempDir(), &fakeQueue{err: ErrQueueFull})

	_, err := svc.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestIngestionStatusUnknownJob(t *testing.T) {
	svc := newFixture(t).ingestionService(t.TempDir(), &fakeQueue{})

	_, err := svc.Status(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Status(context.Background(), "7d444840-9dc0-11d1-b245-5ffdce74fad2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseLoanRowErrors(t *testing.T) {
	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	base := map[string]string{
		"customer_id": "1", "loan_id": "7", "loan_amount": "1000", "tenure": "12",
		"interest_rate": "10", "emi": "88", "start_date": "2024-01-01", "end_date": "2025-01-01",
	}

	row := func(overrides map[string]string) ingestion.Row {
		values := make(map[string]string, len(base))
		for k, v := range base {
			values[k] = v
		}
		for k, v := range overrides {
			values[k] = v
		}
		return ingestion.Row{Number: 2, Values: values}
	}

	loan, rerr := parseLoanRow(row(nil), today)
	require.Nil(t, rerr)
	assert.True(t, loan.IsActive)
	assert.True(t, loan.EMI.Equal(dec("88")))

	bad := []struct {
		field string
		value string
	}{
		{"loan_amount", "-5"},
		{"loan_amount", "100000000000000"},
		{"tenure", "1.5"},
		{"tenure", "0"},
		{"tenure", "361"},
		{"tenure", "18446744073709551628"},
		{"interest_rate", "1000"},
		{"emis_paid_on_time", "-1"},
		{"end_date", "2023-01-01"},
		{"loan_id", ""},
		{"loan_id", "18446744073709551617"},
		{"customer_id", "9223372036854775808"},
	}
	for _, tt := range bad {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			_, rerr := parseLoanRow(row(map[string]string{tt.field: tt.value}), today)
			require.NotNil(t, rerr)
			assert.Equal(t, tt.field, rerr.field)
		})
	}
}

func TestJobRunner(t *testing.T) {
	runner := NewJobRunner(2, 4)
	done := make(chan string, 4)
	runner.Start(func(_ context.Context, id string) { done <- id })

	require.NoError(t, runner.Enqueue("a"))
	select {
	case id := <-done:
		assert.Equal(t, "a", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not run")
	}

	runner.Stop()
	assert.Error(t, runner.Enqueue("b"))
}

func TestJobRunnerQueueFull(t *testing.T) {
	runner := NewJobRunner(1, 1)
	require.NoError(t, runner.Enqueue("a"))
	assert.ErrorIs(t, runner.Enqueue("b"), ErrQueueFull)
	runner.Stop()
}

func TestCloseMaturedLoans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.register(t, "100000")

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, l := range []*domain.Loan{
		{CustomerID: c.ID, Principal: dec("100000"), InterestRate: dec("12"), TenureMonths: 12, EMI: dec("8885"), StartDate: start, EndDate: start.AddDate(1, 0, 0), IsActive: true},
		{CustomerID: c.ID, Principal: dec("250000"), InterestRate: dec("12"), TenureMonths: 360, EMI: dec("2572"), StartDate: start, EndDate: start.AddDate(30, 0, 0), IsActive: true},
	} {
		require.NoError(t, f.loans.Create(ctx, l))
	}
	require.NoError(t, f.cache.Set(ctx, c.ID, 60))

	svc := NewCronService(f.loans, f.uow, f.cache, nil, "", "")
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	closed, err := svc.CloseMaturedLoans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	stored, err := f.customers.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentDebt.Equal(dec("250000")))
	_, cached := f.cache.Get(ctx, c.ID)
	assert.False(t, cached)

	closed, err = svc.CloseMaturedLoans(ctx)
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestCronServiceInvalidSchedule(t *testing.T) {
	f := newFixture(t)
	svc := NewCronService(f.loans, f.uow, f.cache, nil, "not a schedule", "")
	assert.Error(t, svc.Start())
}

func TestCreateLoanRejectsUnstorableTerms(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, "100000")
	svc := f.loanService(credit.RateCorrect)
	ctx := context.Background()

	// 12.004 clears the 12% floor but would be stored as 12.00
	_, err := svc.CreateLoan(ctx, domain.LoanApplication{CustomerID: c.ID, Principal: dec("500000"), InterestRate: dec("12.004"), TenureMonths: 24})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CheckEligibility(ctx, domain.LoanApplication{CustomerID: c.ID, Principal: dec("500000.001"), InterestRate: dec("14"), TenureMonths: 24})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	res, err := svc.CreateLoan(ctx, domain.LoanApplication{CustomerID: c.ID, Principal: dec("500000"), InterestRate: dec("12.01"), TenureMonths: 24})
	require.NoError(t, err)
	require.True(t, res.Approved)

	// the schedule rebuilt from the stored loan agrees with the stored EMI
	loan, schedule, err := svc.LoanSchedule(ctx, res.Loan.ID)
	require.NoError(t, err)
	assert.True(t, loan.InterestRate.Equal(dec("12.01")))
	assert.True(t, schedule[0].Payment.Equal(loan.EMI), "got %s want %s", schedule[0].Payment, loan.EMI)
}

func TestCreateLoanLogsMissingHistory(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	f := newFixture(t)
	c := f.register(t, "100000")
	_, err := f.loanService(credit.RateCorrect).CreateLoan(context.Background(), domain.LoanApplication{CustomerID: c.ID, Principal: dec("100000"), InterestRate: dec("14"), TenureMonths: 12})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "score=50 (no loan history)")
	assert.NotContains(t, buf.String(), "repayment=")
}

type stalledPublisher struct {
	err chan error
}

func (p *stalledPublisher) PublishLoanCreated(ctx context.Context, _ domain.LoanCreatedEvent) error {
	<-ctx.Done()
	p.err <- ctx.Err()
	return ctx.Err()
}

func TestCreateLoanDoesNotWaitOnStalledBroker(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, "100000")
	publisher := &stalledPublisher{err: make(chan error, 1)}
	svc := NewLoanService(f.customers, f.loans, f.uow, f.cache, publisher, credit.RateCorrect)
	svc.publishTimeout = 20 * time.Millisecond

	started := time.Now()
	res, err := svc.CreateLoan(context.Background(), domain.LoanApplication{CustomerID: c.ID, Principal: dec("100000"), InterestRate: dec("14"), TenureMonths: 12})
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.ErrorIs(t, <-publisher.err, context.DeadlineExceeded)
}

// unlockedUnitOfWork runs fn without a transaction or any lock
type unlockedUnitOfWork struct {
	customers repositories.CustomerRepository
	loans     repositories.LoanRepository
}

func (u unlockedUnitOfWork) WithinCustomerLock(ctx context.Context, customerID uint, fn func(context.Context, *domain.Customer, repositories.TxRepositories) error) error {
	customer, err := u.customers.GetByID(ctx, customerID)
	if err != nil {
		return err
	}
	return fn(ctx, customer, repositories.TxRepositories{Customers: u.customers, Loans: u.loans})
}

// gatedLoans holds every caller of ActiveTotals until all have read
type gatedLoans struct {
	repositories.LoanRepository
	gate *sync.WaitGroup
}

func (g gatedLoans) ActiveTotals(ctx context.Context, customerID uint) (repositories.ActiveTotals, error) {
	totals, err := g.LoanRepository.ActiveTotals(ctx, customerID)
	g.gate.Done()
	g.gate.Wait()
	return totals, err
}

func createConcurrently(t *testing.T, svc *LoanService, app domain.LoanApplication, n int) (approved int) {
	t.Helper()
	var wg sync.WaitGroup
	results := make([]*CreateLoanResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateLoan(context.Background(), app)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if results[i].Approved {
			approved++
		}
	}
	return approved
}

func TestAffordabilityNeedsCustomerLock(t *testing.T) {
	f := newFixture(t)
	c := f.register(t, "100000")
	app := domain.LoanApplication{CustomerID: c.ID, Principal: dec("1000000"), InterestRate: dec("14"), TenureMonths: 24}

	const n = 3
	gate := &sync.WaitGroup{}
	gate.Add(n)
	uow := unlockedUnitOfWork{customers: f.customers, loans: gatedLoans{LoanRepository: f.loans, gate: gate}}
	svc := NewLoanService(f.customers, f.loans, uow, f.cache, f.publisher, credit.RateCorrect)

	// every request sees no active EMI, so all of them fit on their own
	assert.Equal(t, n, createConcurrently(t, svc, app, n))

	totals, err := f.loans.ActiveTotals(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, totals.EMI.GreaterThan(dec("50000")))
}

func TestCreateLoanConcurrentAcrossConnections(t *testing.T) {
	db := testdb.NewFile(t, 8)
	customers := repositories.NewCustomerRepository(db)
	loans := repositories.NewLoanRepository(db)
	svc := NewLoanService(customers, loans, repositories.NewUnitOfWork(db, 5*time.Second), newFakeCache(), &fakePublisher{}, credit.RateCorrect)

	c, err := NewCustomerService(customers).Register(context.Background(), RegisterInput{
		FirstName: "Asha", LastName: "Rao", Age: 34, MonthlyIncome: dec("100000"), PhoneNumber: 9876543210,
	})
	require.NoError(t, err)

	app := domain.LoanApplication{CustomerID: c.ID, Principal: dec("1000000"), InterestRate: dec("14"), TenureMonths: 24}
	assert.Equal(t, 1, createConcurrently(t, svc, app, 6))

	totals, err := loans.ActiveTotals(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.Count)
	assert.True(t, totals.EMI.LessThanOrEqual(dec("50000")))
}

func readTable(t *testing.T, name, content string) *ingestion.Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	table, err := ingestion.ReadFile(path)
	require.NoError(t, err)
	return table
}

const loanHeader = "customer_id,loan_id,loan_amount,tenure,interest_rate,monthly_payment,emis_paid_on_time,date_of_approval,end_date\n"

func TestRunBatchRejectsOversizedNumbers(t *testing.T) {
	f := newFixture(t)
	svc := f.ingestionService(t.TempDir(), &fakeQueue{})
	ctx := context.Background()
	job, err := svc.Trigger(ctx)
	require.NoError(t, err)

	customers := readTable(t, CustomerFile, `customer_id,first_name,last_name,age,phone_number,monthly_salary,approved_limit,current_debt
1,Asha,Rao,34,9876543210,50000,1800000,0
18446744073709551617,Evil,Wrap,30,99999999999999999999,1,100000,0
2,Ravi,Kumar,41,99999999999999999999,80000,2900000,0
`)
	result, err := svc.RunBatch(ctx, job.ID, customers, readTable(t, LoanFile, loanHeader))
	require.NoError(t, err)

	assert.Equal(t, domain.BatchCounts{Total: 3, Created: 1, Failed: 2}, result.Customers)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, 3, result.Failures[0].Row)
	assert.Equal(t, "customer_id", result.Failures[0].Field)
	assert.Equal(t, 4, result.Failures[1].Row)
	assert.Equal(t, "phone_number", result.Failures[1].Field)

	c1, err := f.customers.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Asha", c1.FirstName)
	assert.Equal(t, int64(9876543210), c1.PhoneNumber)
	assert.True(t, c1.MonthlySalary.Equal(dec("50000")))
}

// flakyCustomers refuses to store one customer and can fail every lookup
type flakyCustomers struct {
	repositories.CustomerRepository
	refuseID  uint
	existsErr error
}

func (r flakyCustomers) Upsert(ctx context.Context, c *domain.Customer) (bool, error) {
	if c.ID == r.refuseID {
		return false, errors.New("out of range value for column 'approved_limit'")
	}
	return r.CustomerRepository.Upsert(ctx, c)
}

func (r flakyCustomers) Exists(ctx context.Context, id uint) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	return r.CustomerRepository.Exists(ctx, id)
}

const threeCustomers = `customer_id,first_name,last_name,age,phone_number,monthly_salary,approved_limit,current_debt
1,Asha,Rao,34,9876543210,50000,1800000,0
2,Ravi,Kumar,41,9123456789,80000,2900000,0
3,Meera,Iyer,29,9000000000,60000,2200000,0
`

func TestRunBatchRecordsRefusedRowsAndContinues(t *testing.T) {
	f := newFixture(t)
	customers := flakyCustomers{CustomerRepository: f.customers, refuseID: 2}
	svc := NewIngestionService(f.jobs, customers, f.loans, f.uow, f.cache, &fakeQueue{}, t.TempDir())
	ctx := context.Background()
	job, err := svc.Trigger(ctx)
	require.NoError(t, err)

	loans := readTable(t, LoanFile, loanHeader+"3,301,100000,12,10,8792,2,2024-01-01,2099-01-01\n")
	result, err := svc.RunBatch(ctx, job.ID, readTable(t, CustomerFile, threeCustomers), loans)
	require.NoError(t, err)

	assert.Equal(t, domain.BatchCounts{Total: 3, Created: 2, Failed: 1}, result.Customers)
	assert.Equal(t, domain.BatchCounts{Total: 1, Created: 1}, result.Loans)

	saved, err := f.jobs.ListFailures(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 3, saved[0].Row)
	assert.Contains(t, saved[0].Message, "could not be saved")

	_, err = f.customers.GetByID(ctx, 3)
	assert.NoError(t, err)
}

func TestRunBatchAbortsOnLookupError(t *testing.T) {
	f := newFixture(t)
	lookupErr := errors.New("connection reset")
	customers := flakyCustomers{CustomerRepository: f.customers, existsErr: lookupErr}
	svc := NewIngestionService(f.jobs, customers, f.loans, f.uow, f.cache, &fakeQueue{}, t.TempDir())
	ctx := context.Background()
	job, err := svc.Trigger(ctx)
	require.NoError(t, err)

	table := readTable(t, CustomerFile, threeCustomers+"4,Bad,Row,abc,9000000001,1000,0,0\n")
	loans := readTable(t, LoanFile, loanHeader+"9,901,100000,12,10,8792,2,2024-01-01,2099-01-01\n")
	_, err = svc.RunBatch(ctx, job.ID, table, loans)
	require.ErrorIs(t, err, lookupErr)

	// failures found before the abort are kept
	saved, err := f.jobs.ListFailures(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "age", saved[0].Field)
}
