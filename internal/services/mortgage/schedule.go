package mortgage

import (
	"realestate/internal/models"
)

// BuildSchedule walks the loan balance one payment at a time. Each period
// pays interest on the outstanding balance; the rest of the payment plus any
// extra goes to principal. The final payment never overshoots the balance.
//
// The schedule ends when the balance reaches zero, after termYears*12
// periods, or as soon as a payment would not reduce the balance, in which
// case the entries emitted so far are returned. A positive loan at a zero
// rate with no extra payment has a zero payment and so an empty schedule;
// callers detect that with fullyAmortized, which MortgageResult reports as
// FullyAmortized.
func BuildSchedule(loanAmount, annualRatePct float64, termYears int, extraMonthlyPayment, monthlyPI float64) []models.AmortizationEntry {
	balance := sanitize(loanAmount)
	extra := sanitize(extraMonthlyPayment)
	monthlyPI = sanitize(monthlyPI)
	n := periods(termYears)
	if balance <= 0 || n == 0 {
		return []models.AmortizationEntry{}
	}

	r := monthlyRate(sanitize(annualRatePct))
	schedule := make([]models.AmortizationEntry, 0, n)

	for i := 1; i <= n; i++ {
		interest := balance * r
		principal := monthlyPI - interest + extra
		if principal <= 0 {
			break
		}
		if principal > balance {
			principal = balance
		}

		balance -= principal
		if balance < balanceEpsilon {
			balance = 0
		}

		schedule = append(schedule, models.AmortizationEntry{
			PaymentNumber:    i,
			PrincipalPaid:    principal,
			InterestPaid:     interest,
			RemainingBalance: balance,
		})

		if balance <= 0 {
			break
		}
	}

	return schedule
}

// fullyAmortized reports whether a schedule ends with the balance paid off
func fullyAmortized(schedule []models.AmortizationEntry) bool {
	return len(schedule) > 0 && schedule[len(schedule)-1].RemainingBalance <= 0
}

// ScheduledInterest sums the interest actually paid over a schedule
func ScheduledInterest(schedule []models.AmortizationEntry) float64 {
	var total float64
	for _, e := range schedule {
		total += e.InterestPaid
	}
	return total
}

// Breakdown totals each payment category over the life of the loan.
// Principal, interest and PMI accrue while the loan is outstanding; taxes,
// insurance and HOA accrue over the full term.
func Breakdown(schedule []models.AmortizationEntry, res models.LoanResolution, termYears int) models.PaymentBreakdown {
	var principal, interest float64
	for _, e := range schedule {
		principal += e.PrincipalPaid
		interest += e.InterestPaid
	}

	n := float64(periods(termYears))
	breakdown := models.PaymentBreakdown{
		models.CategoryPrincipal: principal,
		models.CategoryInterest:  interest,
		models.CategoryTaxes:     res.MonthlyPropertyTax * n,
		models.CategoryInsurance: res.MonthlyInsurance * n,
		models.CategoryPMI:       res.PMIMonthly * float64(len(schedule)),
	}
	if res.HOAMonthly > 0 {
		breakdown[models.CategoryHOA] = res.HOAMonthly * n
	}
	return breakdown
}
