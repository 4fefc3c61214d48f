// Package mortgage implements the amortization and affordability engine used
// by the calculators, listing estimates and market analytics.
//
// Every function is pure: inputs are normalized (negative or non-finite values
// become 0) and degenerate cases return 0 instead of NaN or Inf.
package mortgage

import (
	"math"

	"realestate/internal/models"
)

// balanceEpsilon absorbs floating point residue left on the final payment
const balanceEpsilon = 1e-6

// MaxTermYears is the longest loan term the engine amortizes. Longer terms
// are clamped so the period count stays bounded.
const MaxTermYears = 50

// Calculator runs mortgage computations under a lending policy
type Calculator struct {
	Policy Policy
}

// NewCalculator creates a calculator with the given policy
func NewCalculator(policy Policy) *Calculator {
	return &Calculator{Policy: policy.Normalized()}
}

var defaultCalculator = NewCalculator(DefaultPolicy())

// Default returns a calculator using DefaultPolicy
func Default() *Calculator {
	return defaultCalculator
}

// ResolveLoan derives the loan amount, PMI and escrow items using DefaultPolicy
func ResolveLoan(in models.LoanInputs) models.LoanResolution {
	return defaultCalculator.ResolveLoan(in)
}

// SolveAffordability runs the affordability solver using DefaultPolicy
func SolveAffordability(income, debts, expenses, annualRatePct float64, termYears int) models.AffordabilityResult {
	return defaultCalculator.SolveAffordability(income, debts, expenses, annualRatePct, termYears)
}

// Calculate runs the full pipeline using DefaultPolicy
func Calculate(in models.LoanInputs) *models.MortgageResult {
	return defaultCalculator.Calculate(in)
}

// Calculate resolves the loan, computes the payment summary, walks the
// schedule and builds the lifetime breakdown.
func (c *Calculator) Calculate(in models.LoanInputs) *models.MortgageResult {
	in = Normalize(in)

	res := c.ResolveLoan(in)
	pi := MonthlyPayment(res.LoanAmount, in.InterestRateAnnualPct, in.TermYears)
	summary := Summarize(res, pi, in.ExtraMonthlyPayment, in.TermYears)
	schedule := BuildSchedule(res.LoanAmount, in.InterestRateAnnualPct, in.TermYears, in.ExtraMonthlyPayment, pi)

	result := &models.MortgageResult{
		Inputs:            in,
		Resolution:        res,
		Payment:           summary,
		Schedule:          schedule,
		Breakdown:         Breakdown(schedule, res, in.TermYears),
		PayoffPeriods:     len(schedule),
		ScheduledInterest: ScheduledInterest(schedule),
		FullyAmortized:    res.LoanAmount <= 0 || fullyAmortized(schedule),
	}

	if in.ExtraMonthlyPayment > 0 && len(schedule) > 0 {
		baseline := BuildSchedule(res.LoanAmount, in.InterestRateAnnualPct, in.TermYears, 0, pi)
		result.MonthsSaved = len(baseline) - len(schedule)
		result.InterestSaved = ScheduledInterest(baseline) - result.ScheduledInterest
		if result.InterestSaved < 0 {
			result.InterestSaved = 0
		}
	}

	return result
}

// Normalize clamps every input to its valid range: negative or non-finite
// values become 0, the down payment never exceeds the price and the term is
// at most MaxTermYears.
func Normalize(in models.LoanInputs) models.LoanInputs {
	in.Price = sanitize(in.Price)
	in.DownPayment = math.Min(sanitize(in.DownPayment), in.Price)
	in.InterestRateAnnualPct = sanitize(in.InterestRateAnnualPct)
	if in.TermYears < 0 {
		in.TermYears = 0
	}
	if in.TermYears > MaxTermYears {
		in.TermYears = MaxTermYears
	}
	in.PropertyTaxRateAnnualPct = sanitize(in.PropertyTaxRateAnnualPct)
	in.InsuranceRateAnnualPct = sanitize(in.InsuranceRateAnnualPct)
	in.HOAMonthly = sanitize(in.HOAMonthly)
	in.ExtraMonthlyPayment = sanitize(in.ExtraMonthlyPayment)
	return in
}

// monthlyRate converts an annual percentage to a monthly fraction
func monthlyRate(annualRatePct float64) float64 {
	return annualRatePct / 100 / 12
}

// periods returns the number of monthly payments in a term, capped at
// MaxTermYears
func periods(termYears int) int {
	if termYears <= 0 {
		return 0
	}
	if termYears > MaxTermYears {
		termYears = MaxTermYears
	}
	return termYears * 12
}

func sanitize(v float64) float64 {
	if !finite(v) || v < 0 {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
