package calculator

import (
	"realestate/internal/models"
	"realestate/internal/money"
)

func roundMoney(v float64) float64 {
	return money.Round(v)
}

// RoundResult rounds every currency amount in r to cents. The schedule is
// copied so the engine's output is left untouched.
func RoundResult(r *models.MortgageResult) *models.MortgageResult {
	out := *r

	out.Resolution.LoanAmount = roundMoney(r.Resolution.LoanAmount)
	out.Resolution.PMIMonthly = roundMoney(r.Resolution.PMIMonthly)
	out.Resolution.MonthlyPropertyTax = roundMoney(r.Resolution.MonthlyPropertyTax)
	out.Resolution.MonthlyInsurance = roundMoney(r.Resolution.MonthlyInsurance)
	out.Resolution.HOAMonthly = roundMoney(r.Resolution.HOAMonthly)

	p := &out.Payment
	for _, v := range []*float64{
		&p.PrincipalAndInterest, &p.PMI, &p.PropertyTax, &p.Insurance, &p.HOA,
		&p.ExtraPayment, &p.TotalMonthlyPayment, &p.TotalPaid, &p.TotalInterest,
	} {
		*v = roundMoney(*v)
	}

	out.Schedule = make([]models.AmortizationEntry, len(r.Schedule))
	for i, e := range r.Schedule {
		out.Schedule[i] = models.AmortizationEntry{
			PaymentNumber:    e.PaymentNumber,
			PrincipalPaid:    roundMoney(e.PrincipalPaid),
			InterestPaid:     roundMoney(e.InterestPaid),
			RemainingBalance: roundMoney(e.RemainingBalance),
		}
	}

	out.Breakdown = make(models.PaymentBreakdown, len(r.Breakdown))
	for k, v := range r.Breakdown {
		out.Breakdown[k] = roundMoney(v)
	}

	out.ScheduledInterest = roundMoney(r.ScheduledInterest)
	out.InterestSaved = roundMoney(r.InterestSaved)
	return &out
}

// RoundInvestment rounds currency amounts to cents and percentages to two places
func RoundInvestment(r models.InvestmentResult) models.InvestmentResult {
	for _, v := range []*float64{
		&r.EffectiveMonthlyRent, &r.MonthlyOperatingCosts, &r.AnnualNOI, &r.CapRatePct,
		&r.MonthlyDebtService, &r.MonthlyCashFlow, &r.AnnualCashFlow, &r.CashInvested,
		&r.CashOnCashPct, &r.GrossRentMultiplier,
	} {
		*v = roundMoney(*v)
	}
	return r
}
