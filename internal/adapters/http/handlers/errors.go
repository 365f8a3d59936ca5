package handlers

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"credit-approval/internal/core/domain"
	"credit-approval/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RetryAfterSeconds is sent with 503 responses for busy customers
const RetryAfterSeconds = 1

// handleError maps domain errors to HTTP responses. Anything unexpected is
// logged and answered with a generic 500.
func handleError(c *fiber.Ctx, err error, action string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": "))
	case errors.Is(err, domain.ErrCustomerNotFound):
		return response.NotFound(c, "Customer not found")
	case errors.Is(err, domain.ErrLoanNotFound):
		return response.NotFound(c, "Loan not found")
	case errors.Is(err, domain.ErrIngestionJobNotFound):
		return response.NotFound(c, "Ingestion job not found")
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Resource not found")
	case errors.Is(err, domain.ErrResourceBusy):
		return response.ServiceUnavailable(c, "Customer is busy, please retry", RetryAfterSeconds)
	default:
		log.Printf("❌ %s %s: %s: %v", c.Method(), c.Path(), action, err)
		return response.InternalServerError(c, "Failed to "+action)
	}
}

// parseID reads a positive integer path parameter
func parseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, domain.InvalidInput("%s must be a positive integer", name)
	}
	return uint(id), nil
}
