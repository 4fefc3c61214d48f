package mortgage

import (
	"math"

	"realestate/internal/models"
)

// SolveAffordability computes the largest monthly payment the household can
// carry under the policy's debt-to-income ceiling, and the home price that
// payment sustains as principal and interest over the term.
//
// The price is the present value of an annuity, the inverse of
// MonthlyPayment with the same monthly rate and period count:
//
//	price = payment * (1 - (1+r)^-n) / r
func (c *Calculator) SolveAffordability(income, debts, expenses, annualRatePct float64, termYears int) models.AffordabilityResult {
	income = sanitize(income)
	obligations := sanitize(debts) + sanitize(expenses)
	annualRatePct = sanitize(annualRatePct)

	maxPayment := income*c.Policy.DebtToIncomeCeiling - obligations
	result := models.AffordabilityResult{MaxAffordableMonthlyPayment: maxPayment}

	n := periods(termYears)
	if maxPayment <= 0 || annualRatePct <= 0 || n == 0 {
		return result
	}

	r := monthlyRate(annualRatePct)
	result.MaxAffordablePrice = maxPayment * (1 - math.Pow(1+r, -float64(n))) / r
	return result
}

// Affordability runs the solver for a set of affordability inputs
func (c *Calculator) Affordability(in models.AffordabilityInputs, annualRatePct float64, termYears int) models.AffordabilityResult {
	return c.SolveAffordability(in.MonthlyIncome, in.MonthlyDebts, in.MonthlyExpenses, annualRatePct, termYears)
}
