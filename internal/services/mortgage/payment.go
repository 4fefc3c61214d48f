package mortgage

import (
	"math"

	"realestate/internal/models"
)

// MonthlyPayment returns the fixed principal-and-interest payment of a
// fully amortizing loan:
//
//	PI = L * r / (1 - (1+r)^-n)
//
// with r the monthly rate and n the number of monthly payments. A
// non-positive loan, rate or term yields 0.
func MonthlyPayment(loanAmount, annualRatePct float64, termYears int) float64 {
	loanAmount = sanitize(loanAmount)
	annualRatePct = sanitize(annualRatePct)
	n := periods(termYears)
	if loanAmount <= 0 || annualRatePct <= 0 || n == 0 {
		return 0
	}

	r := monthlyRate(annualRatePct)
	return loanAmount * r / (1 - math.Pow(1+r, -float64(n)))
}

// Summarize combines principal and interest with the escrow items into the
// total monthly payment and lifetime totals. The voluntary extra payment is
// part of the reported monthly cash outlay.
func Summarize(res models.LoanResolution, monthlyPI, extraMonthlyPayment float64, termYears int) models.PaymentSummary {
	n := periods(termYears)
	extra := sanitize(extraMonthlyPayment)
	monthlyPI = sanitize(monthlyPI)

	total := monthlyPI + res.PMIMonthly + res.MonthlyPropertyTax + res.MonthlyInsurance + res.HOAMonthly + extra
	totalPaid := total * float64(n)

	return models.PaymentSummary{
		PrincipalAndInterest: monthlyPI,
		PMI:                  res.PMIMonthly,
		PropertyTax:          res.MonthlyPropertyTax,
		Insurance:            res.MonthlyInsurance,
		HOA:                  res.HOAMonthly,
		ExtraPayment:         extra,
		TotalMonthlyPayment:  total,
		NumberOfPayments:     n,
		TotalPaid:            totalPaid,
		TotalInterest:        totalPaid - res.LoanAmount,
	}
}
