package handlers

import (
	"errors"
	"time"

	"credit-approval/internal/core/domain"
	"credit-approval/internal/core/services"
	"credit-approval/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// IngestionHandler handles data ingestion endpoints
type IngestionHandler struct {
	ingestionService *services.IngestionService
}

// NewIngestionHandler creates a new ingestion handler
func NewIngestionHandler(ingestionService *services.IngestionService) *IngestionHandler {
	return &IngestionHandler{ingestionService: ingestionService}
}

// JobAcceptedResponse acknowledges a queued ingestion job
type JobAcceptedResponse struct {
	JobAccepted bool   `json:"job_accepted"`
	JobID       string `json:"job_id"`
}

// RowFailureResponse is one skipped row
type RowFailureResponse struct {
	Source  string `json:"source"`
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// JobReportResponse is the state of an ingestion job
type JobReportResponse struct {
	JobID      string               `json:"job_id"`
	Status     string               `json:"status"`
	Customers  domain.BatchCounts   `json:"customers"`
	Loans      domain.BatchCounts   `json:"loans"`
	Error      string               `json:"error,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	StartedAt  *time.Time           `json:"started_at,omitempty"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Failures   []RowFailureResponse `json:"failures"`
}

// Trigger queues an ingestion run over the configured data directory
// @Summary Ingest data
// @Description Queue a background job that loads customer_data and loan_data files
// @Tags Ingestion
// @Produce json
// @Security ApiKeyAuth
// @Success 202 {object} response.Response{data=JobAcceptedResponse}
// @Failure 503 {object} response.Response
// @Router /ingest-data [post]
func (h *IngestionHandler) Trigger(c *fiber.Ctx) error {
	job, err := h.ingestionService.Trigger(c.UserContext())
	if err != nil {
		if errors.Is(err, services.ErrQueueFull) {
			return response.ServiceUnavailable(c, "Ingestion queue is full, please retry", RetryAfterSeconds)
		}
		return handleError(c, err, "queue ingestion")
	}

	return response.Accepted(c, "Ingestion job queued", JobAcceptedResponse{
		JobAccepted: true,
		JobID:       job.ID,
	})
}

// Status returns an ingestion job report
// @Summary Ingestion status
// @Tags Ingestion
// @Produce json
// @Security ApiKeyAuth
// @Param job_id path string true "Job ID"
// @Success 200 {object} response.Response{data=JobReportResponse}
// @Failure 404 {object} response.Response
// @Router /ingest-data/{job_id} [get]
func (h *IngestionHandler) Status(c *fiber.Ctx) error {
	report, err := h.ingestionService.Status(c.UserContext(), c.Params("job_id"))
	if err != nil {
		return handleError(c, err, "load ingestion job")
	}

	job := report.Job
	failures := make([]RowFailureResponse, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, RowFailureResponse{Source: f.Source, Row: f.Row, Field: f.Field, Message: f.Message})
	}

	return response.Success(c, "", JobReportResponse{
		JobID:      job.ID,
		Status:     string(job.Status),
		Customers:  job.Customers,
		Loans:      job.Loans,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		Failures:   failures,
	})
}
