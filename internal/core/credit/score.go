// Package credit holds the credit-decision engine: scoring, slab policy and
// installment arithmetic. Everything here is pure and safe for concurrent use.
package credit

import (
	"time"

	"credit-approval/internal/core/domain"
	"credit-approval/internal/pkg/money"

	"github.com/shopspring/decimal"
)

// Scoring policy constants
const (
	DefaultScore = 50
	MinScore     = 0
	MaxScore     = 100

	WeightRepayment   = 35
	WeightActiveLoans = 20
	WeightCurrentYear = 15
	WeightVolume      = 30

	// ActiveLoanCeiling is the number of concurrently active loans at which
	// the active-loan sub-score reaches zero
	ActiveLoanCeiling = 5
	// CurrentYearPenalty is deducted from the activity sub-score for every
	// loan started in the current year
	CurrentYearPenalty = 25
)

var hundred = decimal.NewFromInt(100)

// ScoreBreakdown carries the normalised sub-scores (0-100) behind a score
type ScoreBreakdown struct {
	Score       int
	Repayment   decimal.Decimal
	ActiveLoans decimal.Decimal
	CurrentYear decimal.Decimal
	Volume      decimal.Decimal
	// Cutoff is true when historical volume exceeded the approved limit
	Cutoff    bool
	NoHistory bool
}

// Score computes the 0-100 credit score for a customer's loan history
func Score(history []domain.LoanHistoryRecord, approvedLimit decimal.Decimal, asOf time.Time) int {
	return Breakdown(history, approvedLimit, asOf).Score
}

// Breakdown computes the credit score together with its sub-scores
func Breakdown(history []domain.LoanHistoryRecord, approvedLimit decimal.Decimal, asOf time.Time) ScoreBreakdown {
	if len(history) == 0 {
		return ScoreBreakdown{Score: DefaultScore, NoHistory: true}
	}

	volume := decimal.Zero
	for _, rec := range history {
		volume = volume.Add(rec.Principal)
	}
	if !approvedLimit.IsPositive() || volume.GreaterThan(approvedLimit) {
		return ScoreBreakdown{Score: MinScore, Cutoff: true}
	}

	b := ScoreBreakdown{
		Repayment:   repaymentSubScore(history, asOf),
		ActiveLoans: activeLoansSubScore(history),
		CurrentYear: currentYearSubScore(history, asOf.Year()),
		Volume:      volumeSubScore(volume, approvedLimit),
	}

	weighted := b.Repayment.Mul(decimal.NewFromInt(WeightRepayment)).
		Add(b.ActiveLoans.Mul(decimal.NewFromInt(WeightActiveLoans))).
		Add(b.CurrentYear.Mul(decimal.NewFromInt(WeightCurrentYear))).
		Add(b.Volume.Mul(decimal.NewFromInt(WeightVolume)))

	score := int(weighted.DivRound(hundred, money.InternalPrecision).Round(0).IntPart())
	b.Score = clamp(score, MinScore, MaxScore)
	return b
}

// repaymentSubScore is the share of owed installments paid on time
func repaymentSubScore(history []domain.LoanHistoryRecord, asOf time.Time) decimal.Decimal {
	owed, paid := 0, 0
	for _, rec := range history {
		o := emisOwed(rec, asOf)
		owed += o
		paid += minInt(rec.EMIsPaidOnTime, o)
	}
	if owed == 0 {
		return hundred
	}
	ratio := decimal.NewFromInt(int64(paid)).DivRound(decimal.NewFromInt(int64(owed)), money.InternalPrecision)
	return ratio.Mul(hundred)
}

// emisOwed is the number of installments due so far: the full tenure for a
// closed loan, whole months elapsed since start for an active one
func emisOwed(rec domain.LoanHistoryRecord, asOf time.Time) int {
	if rec.TenureMonths <= 0 {
		return 0
	}
	if !rec.IsActive() {
		return rec.TenureMonths
	}
	return clamp(monthsBetween(rec.StartDate, asOf), 0, rec.TenureMonths)
}

func activeLoansSubScore(history []domain.LoanHistoryRecord) decimal.Decimal {
	active := 0
	for _, rec := range history {
		if rec.IsActive() {
			active++
		}
	}
	if active >= ActiveLoanCeiling {
		return decimal.Zero
	}
	remaining := decimal.NewFromInt(int64(ActiveLoanCeiling - active))
	return remaining.Mul(hundred).Div(decimal.NewFromInt(ActiveLoanCeiling))
}

func currentYearSubScore(history []domain.LoanHistoryRecord, year int) decimal.Decimal {
	started := 0
	for _, rec := range history {
		if rec.StartYear() == year {
			started++
		}
	}
	sub := MaxScore - CurrentYearPenalty*started
	if sub < 0 {
		sub = 0
	}
	return decimal.NewFromInt(int64(sub))
}

func volumeSubScore(volume, approvedLimit decimal.Decimal) decimal.Decimal {
	ratio := volume.DivRound(approvedLimit, money.InternalPrecision)
	sub := decimal.NewFromInt(1).Sub(ratio).Mul(hundred)
	if sub.IsNegative() {
		return decimal.Zero
	}
	return sub
}

// monthsBetween counts whole calendar months from start to end
func monthsBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	if end.Day() < start.Day() {
		months--
	}
	return months
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
