package routes

import (
	"time"

	"credit-approval/internal/adapters/http/handlers"
	"credit-approval/internal/adapters/http/middleware"
	"credit-approval/internal/config"
	"credit-approval/internal/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
)

// Handlers groups the HTTP handlers mounted by Setup
type Handlers struct {
	Health    *handlers.HealthHandler
	Customer  *handlers.CustomerHandler
	Loan      *handlers.LoanHandler
	Ingestion *handlers.IngestionHandler
}

// Setup configures all routes for the application
func Setup(app *fiber.App, h *Handlers, cfg *config.Config) {
	// ============================================================
	// Public routes (no API key)
	// ============================================================
	app.Get("/", h.Health.Root)
	app.Get("/health", h.Health.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)

	// ============================================================
	// API routes
	// ============================================================
	api := app.Group("/api", middleware.APIKeyMiddleware(cfg.APIKeys), middleware.NoCacheHeaders())

	api.Post("/register", middleware.WriteRateLimiter(), h.Customer.Register)

	api.Post("/check-eligibility", h.Loan.CheckEligibility)
	api.Post("/create-loan", middleware.WriteRateLimiter(), h.Loan.CreateLoan)
	api.Get("/view-loan/:loan_id", h.Loan.ViewLoan)
	api.Get("/view-loan/:loan_id/schedule", middleware.PrivateCacheHeaders(5*time.Minute), h.Loan.LoanSchedule)
	api.Get("/view-loans/:customer_id", h.Loan.ViewLoans)

	api.Post("/ingest-data", middleware.WriteRateLimiter(), h.Ingestion.Trigger)
	api.Get("/ingest-data/:job_id", h.Ingestion.Status)
}
