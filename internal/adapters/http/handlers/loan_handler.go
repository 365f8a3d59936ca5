package handlers

import (
	"time"

	"credit-approval/internal/core/credit"
	"credit-approval/internal/core/domain"
	"credit-approval/internal/core/services"
	"credit-approval/internal/pkg/pagination"
	"credit-approval/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// LoanHandler handles eligibility and loan endpoints
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// LoanRequest is the body of check-eligibility and create-loan
type LoanRequest struct {
	CustomerID   uint            `json:"customer_id"`
	LoanAmount   decimal.Decimal `json:"loan_amount" swaggertype:"number"`
	InterestRate decimal.Decimal `json:"interest_rate" swaggertype:"number"`
	Tenure       int             `json:"tenure"`
}

func (r LoanRequest) application() domain.LoanApplication {
	return domain.LoanApplication{
		CustomerID:   r.CustomerID,
		Principal:    r.LoanAmount,
		InterestRate: r.InterestRate,
		TenureMonths: r.Tenure,
	}
}

// EligibilityResponse is the outcome of an eligibility check
type EligibilityResponse struct {
	CustomerID            uint                   `json:"customer_id"`
	Approval              bool                   `json:"approval"`
	InterestRate          decimal.Decimal        `json:"interest_rate" swaggertype:"number"`
	CorrectedInterestRate decimal.Decimal        `json:"corrected_interest_rate" swaggertype:"number"`
	Tenure                int                    `json:"tenure"`
	MonthlyInstallment    decimal.Decimal        `json:"monthly_installment" swaggertype:"number"`
	TotalPayable          decimal.Decimal        `json:"total_payable" swaggertype:"number"`
	CreditScore           int                    `json:"credit_score"`
	RejectionReason       domain.RejectionReason `json:"rejection_reason,omitempty"`
	Message               string                 `json:"message,omitempty"`
}

// CreateLoanResponse is the outcome of a create-loan request
type CreateLoanResponse struct {
	LoanID             *uint                  `json:"loan_id"`
	CustomerID         uint                   `json:"customer_id"`
	LoanApproved       bool                   `json:"loan_approved"`
	Message            string                 `json:"message"`
	MonthlyInstallment decimal.Decimal        `json:"monthly_installment" swaggertype:"number"`
	InterestRate       decimal.Decimal        `json:"interest_rate" swaggertype:"number"`
	RejectionReason    domain.RejectionReason `json:"rejection_reason,omitempty"`
}

// LoanCustomer is the borrower embedded in a loan view
type LoanCustomer struct {
	ID          uint   `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber int64  `json:"phone_number"`
	Age         int    `json:"age"`
}

// LoanDetailResponse is a single loan with its borrower
type LoanDetailResponse struct {
	LoanID             uint            `json:"loan_id"`
	Customer           LoanCustomer    `json:"customer"`
	LoanAmount         decimal.Decimal `json:"loan_amount" swaggertype:"number"`
	InterestRate       decimal.Decimal `json:"interest_rate" swaggertype:"number"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment" swaggertype:"number"`
	Tenure             int             `json:"tenure"`
}

// LoanSummary is one row of a customer's loan list
type LoanSummary struct {
	LoanID             uint            `json:"loan_id"`
	LoanAmount         decimal.Decimal `json:"loan_amount" swaggertype:"number"`
	InterestRate       decimal.Decimal `json:"interest_rate" swaggertype:"number"`
	MonthlyInstallment decimal.Decimal `json:"monthly_installment" swaggertype:"number"`
	RepaymentsLeft     int             `json:"repayments_left"`
}

// LoanPage is one page of a customer's loan list
type LoanPage = pagination.Page[LoanSummary]

// ScheduleResponse is a loan's amortization schedule
type ScheduleResponse struct {
	LoanID       uint                 `json:"loan_id"`
	LoanAmount   decimal.Decimal      `json:"loan_amount" swaggertype:"number"`
	InterestRate decimal.Decimal      `json:"interest_rate" swaggertype:"number"`
	Tenure       int                  `json:"tenure"`
	StartDate    string               `json:"start_date"`
	Installments []credit.Installment `json:"installments"`
}

// CheckEligibility evaluates a loan application without creating it
// @Summary Check eligibility
// @Description Score the customer and apply the approval policy without side effects
// @Tags Loans
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body LoanRequest true "Loan application"
// @Success 200 {object} response.Response{data=EligibilityResponse}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /check-eligibility [post]
func (h *LoanHandler) CheckEligibility(c *fiber.Ctx) error {
	var req LoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	res, err := h.loanService.CheckEligibility(c.UserContext(), req.application())
	if err != nil {
		return handleError(c, err, "check eligibility")
	}

	body := EligibilityResponse{
		CustomerID:            res.CustomerID,
		Approval:              res.Approved,
		InterestRate:          res.InterestRate,
		CorrectedInterestRate: res.CorrectedInterestRate,
		Tenure:                res.TenureMonths,
		MonthlyInstallment:    res.MonthlyInstallment,
		TotalPayable:          res.TotalPayable,
		CreditScore:           res.CreditScore,
	}
	if res.Rejection != nil {
		body.RejectionReason = res.Rejection.Reason
		body.Message = res.Rejection.Message
	}
	return response.Success(c, "Eligibility checked", body)
}

// CreateLoan decides and persists a loan
// @Summary Create loan
// @Description Create a loan when the application is approved. Rejections return 200 with loan_approved false.
// @Tags Loans
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body LoanRequest true "Loan application"
// @Success 201 {object} response.Response{data=CreateLoanResponse}
// @Success 200 {object} response.Response{data=CreateLoanResponse}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /create-loan [post]
func (h *LoanHandler) CreateLoan(c *fiber.Ctx) error {
	var req LoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	res, err := h.loanService.CreateLoan(c.UserContext(), req.application())
	if err != nil {
		return handleError(c, err, "create loan")
	}

	body := CreateLoanResponse{
		CustomerID:         res.CustomerID,
		LoanApproved:       res.Approved,
		MonthlyInstallment: res.MonthlyInstallment,
		InterestRate:       res.InterestRate,
	}
	if !res.Approved {
		body.RejectionReason = res.Rejection.Reason
		body.Message = res.Rejection.Message
		return response.Success(c, "Loan not approved", body)
	}

	body.LoanID = &res.Loan.ID
	body.Message = "Loan approved"
	return response.Created(c, "Loan created successfully", body)
}

// ViewLoan returns a loan with its customer
// @Summary View loan
// @Tags Loans
// @Produce json
// @Security ApiKeyAuth
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} response.Response{data=LoanDetailResponse}
// @Failure 404 {object} response.Response
// @Router /view-loan/{loan_id} [get]
func (h *LoanHandler) ViewLoan(c *fiber.Ctx) error {
	loanID, err := parseID(c, "loan_id")
	if err != nil {
		return handleError(c, err, "view loan")
	}

	details, err := h.loanService.ViewLoan(c.UserContext(), loanID)
	if err != nil {
		return handleError(c, err, "view loan")
	}

	loan, customer := details.Loan, details.Customer
	return response.Success(c, "", LoanDetailResponse{
		LoanID: loan.ID,
		Customer: LoanCustomer{
			ID:          customer.ID,
			FirstName:   customer.FirstName,
			LastName:    customer.LastName,
			PhoneNumber: customer.PhoneNumber,
			Age:         customer.Age,
		},
		LoanAmount:         loan.Principal,
		InterestRate:       loan.InterestRate,
		MonthlyInstallment: loan.EMI,
		Tenure:             loan.TenureMonths,
	})
}

// LoanSchedule returns the amortization schedule of a loan
// @Summary Loan schedule
// @Tags Loans
// @Produce json
// @Security ApiKeyAuth
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} response.Response{data=ScheduleResponse}
// @Failure 404 {object} response.Response
// @Router /view-loan/{loan_id}/schedule [get]
func (h *LoanHandler) LoanSchedule(c *fiber.Ctx) error {
	loanID, err := parseID(c, "loan_id")
	if err != nil {
		return handleError(c, err, "build schedule")
	}

	loan, schedule, err := h.loanService.LoanSchedule(c.UserContext(), loanID)
	if err != nil {
		return handleError(c, err, "build schedule")
	}

	return response.Success(c, "", ScheduleResponse{
		LoanID:       loan.ID,
		LoanAmount:   loan.Principal,
		InterestRate: loan.InterestRate,
		Tenure:       loan.TenureMonths,
		StartDate:    loan.StartDate.Format(time.DateOnly),
		Installments: schedule,
	})
}

// ViewLoans lists a customer's loans
// @Summary View customer loans
// @Tags Loans
// @Produce json
// @Security ApiKeyAuth
// @Param customer_id path int true "Customer ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} response.Response{data=LoanPage}
// @Failure 404 {object} response.Response
// @Router /view-loans/{customer_id} [get]
func (h *LoanHandler) ViewLoans(c *fiber.Ctx) error {
	customerID, err := parseID(c, "customer_id")
	if err != nil {
		return handleError(c, err, "list loans")
	}

	params := pagination.FromQuery(c)
	loans, total, err := h.loanService.ViewLoansForCustomer(c.UserContext(), customerID, params.Offset, params.Limit)
	if err != nil {
		return handleError(c, err, "list loans")
	}

	items := make([]LoanSummary, 0, len(loans))
	for _, l := range loans {
		items = append(items, LoanSummary{
			LoanID:             l.ID,
			LoanAmount:         l.Principal,
			InterestRate:       l.InterestRate,
			MonthlyInstallment: l.EMI,
			RepaymentsLeft:     l.RepaymentsLeft(),
		})
	}

	return response.Success(c, "", pagination.NewPage(items, params, total))
}
