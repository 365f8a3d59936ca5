package config

import (
	"context"
	"log"

	"credit-approval/internal/adapters/persistence/repositories"
	"credit-approval/internal/core/domain"
)

// IngestionTrigger starts an asynchronous ingestion run
type IngestionTrigger interface {
	Trigger(ctx context.Context) (*domain.IngestionJob, error)
}

// Seeder handles initial data loading
type Seeder struct {
	customers repositories.CustomerRepository
	ingestion IngestionTrigger
}

// NewSeeder creates a new seeder instance
func NewSeeder(customers repositories.CustomerRepository, ingestion IngestionTrigger) *Seeder {
	return &Seeder{customers: customers, ingestion: ingestion}
}

// Run queues an ingestion job when the customer table is empty. It returns
// the job or nil when nothing was queued.
func (s *Seeder) Run(ctx context.Context) (*domain.IngestionJob, error) {
	count, err := s.customers.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		log.Printf("🌱 Seeding skipped: %d customers present", count)
		return nil, nil
	}

	job, err := s.ingestion.Trigger(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("🌱 Empty datastore, bootstrap ingestion queued as job %s", job.ID)
	return job, nil
}
