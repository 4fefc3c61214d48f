// Package investment evaluates a purchase as a rental property on top of
// the mortgage engine.
package investment

import (
	"math"

	"realestate/internal/models"
	"realestate/internal/services/mortgage"
)

// onePercentRule is the rule-of-thumb ratio of monthly rent to price
const onePercentRule = 0.01

// Analyzer computes rental returns for a purchase
type Analyzer struct {
	calc *mortgage.Calculator
}

// New creates an analyzer backed by the given mortgage calculator
func New(calc *mortgage.Calculator) *Analyzer {
	if calc == nil {
		calc = mortgage.Default()
	}
	return &Analyzer{calc: calc}
}

// Analyze computes NOI, cap rate, cash flow and cash-on-cash return.
// Debt service covers principal, interest and PMI; the voluntary extra
// payment is not treated as a cost of holding the property.
func (a *Analyzer) Analyze(in models.InvestmentInputs) models.InvestmentResult {
	loan := mortgage.Normalize(in.Loan)
	res := a.calc.ResolveLoan(loan)
	pi := mortgage.MonthlyPayment(res.LoanAmount, loan.InterestRateAnnualPct, loan.TermYears)

	rent := nonNegative(in.MonthlyRent)
	vacancy := math.Min(nonNegative(in.VacancyRatePct), 100)
	effectiveRent := rent * (1 - vacancy/100)

	operating := nonNegative(in.MonthlyOperatingExpenses) + res.MonthlyPropertyTax + res.MonthlyInsurance + res.HOAMonthly
	debtService := pi + res.PMIMonthly

	result := models.InvestmentResult{
		EffectiveMonthlyRent:  effectiveRent,
		MonthlyOperatingCosts: operating,
		AnnualNOI:             (effectiveRent - operating) * 12,
		MonthlyDebtService:    debtService,
		MonthlyCashFlow:       effectiveRent - operating - debtService,
		CashInvested:          loan.DownPayment + nonNegative(in.ClosingCosts),
	}
	result.AnnualCashFlow = result.MonthlyCashFlow * 12

	if loan.Price > 0 {
		result.CapRatePct = result.AnnualNOI / loan.Price * 100
		result.MeetsOnePercentRule = rent >= loan.Price*onePercentRule
	}
	if result.CashInvested > 0 {
		result.CashOnCashPct = result.AnnualCashFlow / result.CashInvested * 100
	}
	if rent > 0 {
		result.GrossRentMultiplier = loan.Price / (rent * 12)
	}

	return result
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
