package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"credit-approval/internal/adapters/persistence/repositories"
	"credit-approval/internal/core/domain"
	"credit-approval/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
)

// DefaultCloseSchedule runs matured-loan closing shortly after midnight
const DefaultCloseSchedule = "5 0 * * *"

// CronService runs scheduled maintenance jobs
type CronService struct {
	cron           *cron.Cron
	loanRepo       repositories.LoanRepository
	uow            repositories.UnitOfWork
	scoreCache     ScoreCache
	ingestion      *IngestionService
	closeSchedule  string
	ingestSchedule string
	now            func() time.Time
}

// NewCronService creates a new cron service. An empty ingestSchedule
// disables scheduled ingestion.
func NewCronService(
	loanRepo repositories.LoanRepository,
	uow repositories.UnitOfWork,
	scoreCache ScoreCache,
	ingestion *IngestionService,
	closeSchedule, ingestSchedule string,
) *CronService {
	if closeSchedule == "" {
		closeSchedule = DefaultCloseSchedule
	}
	return &CronService{
		cron:           cron.New(),
		loanRepo:       loanRepo,
		uow:            uow,
		scoreCache:     scoreCache,
		ingestion:      ingestion,
		closeSchedule:  closeSchedule,
		ingestSchedule: ingestSchedule,
		now:            time.Now,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.closeSchedule, func() {
		if _, err := s.CloseMaturedLoans(context.Background()); err != nil {
			log.Printf("❌ Close matured loans: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid close schedule %q: %w", s.closeSchedule, err)
	}

	if s.ingestSchedule != "" && s.ingestion != nil {
		if _, err := s.cron.AddFunc(s.ingestSchedule, func() {
			if _, err := s.ingestion.Trigger(context.Background()); err != nil {
				log.Printf("❌ Scheduled ingestion: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid ingest schedule %q: %w", s.ingestSchedule, err)
		}
	}

	s.cron.Start()
	log.Printf("🚀 CronService started (close %q, ingest %q)", s.closeSchedule, s.ingestSchedule)
	return nil
}

// Stop waits for running jobs to finish
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 CronService stopped")
}

// CloseMaturedLoans deactivates loans whose end date has passed and
// recomputes each affected customer's current debt under its lock.
// Customers whose lock is busy are retried on the next run.
func (s *CronService) CloseMaturedLoans(ctx context.Context) (int64, error) {
	today := startOfDay(s.now())
	ids, err := s.loanRepo.CustomersWithMaturedLoans(ctx, today)
	if err != nil {
		return 0, err
	}

	var closed int64
	for _, id := range ids {
		var n int64
		err := s.uow.WithinCustomerLock(ctx, id, func(ctx context.Context, customer *domain.Customer, repos repositories.TxRepositories) error {
			var err error
			if n, err = repos.Loans.CloseMatured(ctx, customer.ID, today); err != nil {
				return err
			}
			totals, err := repos.Loans.ActiveTotals(ctx, customer.ID)
			if err != nil {
				return err
			}
			return repos.Customers.UpdateCurrentDebt(ctx, customer.ID, totals.Principal)
		})
		if err != nil {
			log.Printf("⚠️ Close matured loans for customer %d: %v", id, err)
			continue
		}

		closed += n
		metrics.LoansClosed.Add(float64(n))
		if err := s.scoreCache.Invalidate(ctx, id); err != nil {
			log.Printf("⚠️ Failed to invalidate score for customer %d: %v", id, err)
		}
	}

	if closed > 0 {
		log.Printf("📊 Closed %d matured loans across %d customers", closed, len(ids))
	}
	return closed, nil
}
