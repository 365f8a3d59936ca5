package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrResourceBusy = errors.New("resource busy, retry later")
)

// Not found errors
var (
	ErrCustomerNotFound     = fmt.Errorf("customer %w", ErrNotFound)
	ErrLoanNotFound         = fmt.Errorf("loan %w", ErrNotFound)
	ErrIngestionJobNotFound = fmt.Errorf("ingestion job %w", ErrNotFound)
)

// InvalidInput wraps ErrInvalidInput with a field-specific message
func InvalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// RejectionReason is a business-rule rejection. It is a result value, not a fault.
type RejectionReason string

const (
	RejectRateTooLow            RejectionReason = "RATE_TOO_LOW"
	RejectAffordabilityExceeded RejectionReason = "AFFORDABILITY_EXCEEDED"
	RejectCreditScoreTooLow     RejectionReason = "CREDIT_SCORE_TOO_LOW"
	RejectCreditLimitExceeded   RejectionReason = "CREDIT_LIMIT_EXCEEDED"
)

// Rejection explains why an application was not approved
type Rejection struct {
	Reason  RejectionReason
	Message string
}
