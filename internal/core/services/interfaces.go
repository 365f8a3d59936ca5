package services

import (
	"context"

	"credit-approval/internal/core/domain"
)

// Note: repositories and the unit of work are defined in
// internal/adapters/persistence/repositories

// ScoreCache caches credit scores for the read-only eligibility path.
// A failed lookup is a miss.
type ScoreCache interface {
	Get(ctx context.Context, customerID uint) (int, bool)
	Set(ctx context.Context, customerID uint, score int) error
	Invalidate(ctx context.Context, customerID uint) error
}

// EventPublisher announces committed loans
type EventPublisher interface {
	PublishLoanCreated(ctx context.Context, evt domain.LoanCreatedEvent) error
}

// JobQueue runs ingestion jobs in the background
type JobQueue interface {
	Enqueue(jobID string) error
}
