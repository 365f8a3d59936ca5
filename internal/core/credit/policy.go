package credit

import (
	"fmt"

	"credit-approval/internal/core/domain"

	"github.com/shopspring/decimal"
)

// RateMode decides what happens when a requested rate is under a slab floor
type RateMode string

const (
	// RateCorrect raises the rate just above the floor and approves
	RateCorrect RateMode = "correct"
	// RateReject rejects the application with RATE_TOO_LOW
	RateReject RateMode = "reject"
)

// ParseRateMode maps a config value to a RateMode, defaulting to RateCorrect
func ParseRateMode(s string) (RateMode, error) {
	switch RateMode(s) {
	case "", RateCorrect:
		return RateCorrect, nil
	case RateReject:
		return RateReject, nil
	}
	return "", fmt.Errorf("invalid rate correction mode: '%s' (must be 'correct' or 'reject')", s)
}

// Slab boundaries and floors
var (
	// RateEpsilon is added to a floor when a rate is corrected, since the
	// floor itself does not satisfy the strict "greater than" rule
	RateEpsilon = decimal.RequireFromString("0.01")

	MidSlabFloor = decimal.NewFromInt(12)
	LowSlabFloor = decimal.NewFromInt(16)
)

const (
	highSlabMin = 50 // strictly above
	midSlabMin  = 30
	lowSlabMin  = 10
)

// Decision is the outcome of the approval policy
type Decision struct {
	Approved      bool
	InterestRate  decimal.Decimal
	RateCorrected bool
	Rejection     *domain.Rejection
}

// Evaluate applies the slab policy to a score and a requested annual rate
func Evaluate(score int, requestedRate decimal.Decimal, mode RateMode) Decision {
	switch {
	case score > highSlabMin:
		return approve(requestedRate, false)
	case score >= midSlabMin:
		return applyFloor(score, requestedRate, MidSlabFloor, mode)
	case score >= lowSlabMin:
		return applyFloor(score, requestedRate, LowSlabFloor, mode)
	default:
		return Decision{
			InterestRate: requestedRate,
			Rejection: &domain.Rejection{
				Reason:  domain.RejectCreditScoreTooLow,
				Message: fmt.Sprintf("Credit score too low (%d/100).", score),
			},
		}
	}
}

// applyFloor approves when the rate is above the floor. Otherwise it either
// corrects the rate to just above the floor, or rejects.
func applyFloor(score int, rate, floor decimal.Decimal, mode RateMode) Decision {
	if rate.GreaterThan(floor) {
		return approve(rate, false)
	}
	if mode == RateReject {
		return Decision{
			InterestRate: rate,
			Rejection: &domain.Rejection{
				Reason:  domain.RejectRateTooLow,
				Message: fmt.Sprintf("Interest rate must be above %s%% for credit score %d.", floor.StringFixed(2), score),
			},
		}
	}

	return approve(floor.Add(RateEpsilon), true)
}

func approve(rate decimal.Decimal, corrected bool) Decision {
	return Decision{Approved: true, InterestRate: rate, RateCorrected: corrected}
}
