package repositories

import (
	"context"
	"errors"

	"credit-approval/internal/adapters/persistence/models"
	"credit-approval/internal/core/domain"

	"gorm.io/gorm"
)

const failureBatchSize = 200

// ingestionRepository implements IngestionRepository interface
type ingestionRepository struct {
	db *gorm.DB
}

// NewIngestionRepository creates a new ingestion job repository
func NewIngestionRepository(db *gorm.DB) IngestionRepository {
	return &ingestionRepository{db: db}
}

// CreateJob stores a new job
func (r *ingestionRepository) CreateJob(ctx context.Context, job *domain.IngestionJob) error {
	row := models.IngestionJobFromDomain(job)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	job.CreatedAt = row.CreatedAt
	return nil
}

// GetJob gets a job by ID
func (r *ingestionRepository) GetJob(ctx context.Context, id string) (*domain.IngestionJob, error) {
	var row models.IngestionJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrIngestionJobNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// UpdateJob saves status, counters and timestamps of a job
func (r *ingestionRepository) UpdateJob(ctx context.Context, job *domain.IngestionJob) error {
	row := models.IngestionJobFromDomain(job)
	result := r.db.WithContext(ctx).
		Model(&models.IngestionJob{}).
		Where("id = ?", job.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrIngestionJobNotFound
	}
	return nil
}

// AddFailures stores skipped rows of a job
func (r *ingestionRepository) AddFailures(ctx context.Context, failures []domain.IngestionRowFailure) error {
	if len(failures) == 0 {
		return nil
	}
	rows := make([]models.IngestionRowFailure, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, models.IngestionRowFailure{
			JobID:   f.JobID,
			Source:  f.Source,
			Row:     f.Row,
			Field:   f.Field,
			Message: f.Message,
		})
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, failureBatchSize).Error
}

// ListFailures lists the skipped rows of a job in file order
func (r *ingestionRepository) ListFailures(ctx context.Context, jobID string) ([]domain.IngestionRowFailure, error) {
	var rows []models.IngestionRowFailure
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	failures := make([]domain.IngestionRowFailure, 0, len(rows))
	for i := range rows {
		failures = append(failures, rows[i].ToDomain())
	}
	return failures, nil
}
