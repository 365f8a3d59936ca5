package handlers

import (
	"credit-approval/internal/core/domain"
	"credit-approval/internal/core/services"
	"credit-approval/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CustomerHandler handles customer endpoints
type CustomerHandler struct {
	customerService *services.CustomerService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// RegisterRequest represents register customer request
type RegisterRequest struct {
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Age           int             `json:"age"`
	MonthlyIncome decimal.Decimal `json:"monthly_income" swaggertype:"number"`
	PhoneNumber   int64           `json:"phone_number"`
}

// CustomerResponse is a registered customer
type CustomerResponse struct {
	CustomerID    uint            `json:"customer_id"`
	Name          string          `json:"name"`
	Age           int             `json:"age"`
	MonthlyIncome decimal.Decimal `json:"monthly_income" swaggertype:"number"`
	ApprovedLimit decimal.Decimal `json:"approved_limit" swaggertype:"number"`
	PhoneNumber   int64           `json:"phone_number"`
}

func toCustomerResponse(c *domain.Customer) CustomerResponse {
	return CustomerResponse{
		CustomerID:    c.ID,
		Name:          c.FullName(),
		Age:           c.Age,
		MonthlyIncome: c.MonthlySalary,
		ApprovedLimit: c.ApprovedLimit,
		PhoneNumber:   c.PhoneNumber,
	}
}

// Register registers a new customer
// @Summary Register customer
// @Description Create a customer with an approved limit of 36 monthly salaries rounded to the nearest lakh
// @Tags Customers
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body RegisterRequest true "Customer data"
// @Success 201 {object} response.Response{data=CustomerResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /register [post]
func (h *CustomerHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	customer, err := h.customerService.Register(c.UserContext(), services.RegisterInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Age:           req.Age,
		MonthlyIncome: req.MonthlyIncome,
		PhoneNumber:   req.PhoneNumber,
	})
	if err != nil {
		return handleError(c, err, "register customer")
	}

	return response.Created(c, "Customer registered successfully", toCustomerResponse(customer))
}
