package cli

import (
	"fmt"
	"strconv"
	"strings"

	"realestate/internal/models"
)

// PaymentTable summarizes the monthly payment and lifetime totals
func PaymentTable(res *models.MortgageResult) Table {
	p := res.Payment
	rows := [][]string{
		{"Home price", FormatWhole(res.Inputs.Price)},
		{"Down payment", fmt.Sprintf("%s (%s)", FormatWhole(res.Inputs.DownPayment), FormatPercent(res.Resolution.DownPaymentPct))},
		{"Loan amount", FormatMoney(res.Resolution.LoanAmount)},
		{"Rate / term", fmt.Sprintf("%s / %dy", FormatRate(res.Inputs.InterestRateAnnualPct), res.Inputs.TermYears)},
		Separator,
		{"Principal & interest", FormatMoney(p.PrincipalAndInterest)},
		{"Property tax", FormatMoney(p.PropertyTax)},
		{"Insurance", FormatMoney(p.Insurance)},
		{"PMI", FormatMoney(p.PMI)},
		{"HOA", FormatMoney(p.HOA)},
	}
	if p.ExtraPayment > 0 {
		rows = append(rows, []string{"Extra principal", FormatMoney(p.ExtraPayment)})
	}
	rows = append(rows,
		Separator,
		[]string{"Monthly payment", FormatMoney(p.TotalMonthlyPayment)},
		[]string{"Total paid", FormatMoney(p.TotalPaid)},
		[]string{"Total interest", FormatMoney(p.TotalInterest)},
	)
	if res.MonthsSaved > 0 {
		rows = append(rows,
			[]string{"Paid off in", FormatMonths(res.PayoffPeriods)},
			[]string{"Time saved", FormatMonths(res.MonthsSaved)},
			[]string{"Interest saved", FormatMoney(res.InterestSaved)},
		)
	}
	return Table{Title: "Payment", Rows: rows}
}

// BreakdownLines renders the lifetime cost share per category as bars
func BreakdownLines(b models.PaymentBreakdown, width int) string {
	var total float64
	for _, v := range b {
		total += v
	}

	var sb strings.Builder
	for _, cat := range models.BreakdownCategories {
		v := b[cat]
		if v <= 0 {
			continue
		}
		sb.WriteString(RenderHorizontalBar(cat, v, total, width))
		sb.WriteString("  ")
		sb.WriteString(FormatWhole(v))
		sb.WriteString("\n")
	}
	return sb.String()
}

// ScheduleTable lists amortization periods. With yearly set, periods are
// rolled up into one row per loan year.
func ScheduleTable(schedule []models.AmortizationEntry, yearly bool) Table {
	t := Table{Title: "Amortization schedule"}
	if !yearly {
		t.Headers = []string{"#", "Principal", "Interest", "Balance"}
		for _, e := range schedule {
			t.Rows = append(t.Rows, []string{
				strconv.Itoa(e.PaymentNumber),
				FormatMoney(e.PrincipalPaid),
				FormatMoney(e.InterestPaid),
				FormatMoney(e.RemainingBalance),
			})
		}
		return t
	}

	t.Headers = []string{"Year", "Principal", "Interest", "Balance"}
	var principal, interest float64
	for i, e := range schedule {
		principal += e.PrincipalPaid
		interest += e.InterestPaid
		if e.PaymentNumber%12 == 0 || i == len(schedule)-1 {
			t.Rows = append(t.Rows, []string{
				strconv.Itoa((e.PaymentNumber + 11) / 12),
				FormatMoney(principal),
				FormatMoney(interest),
				FormatMoney(e.RemainingBalance),
			})
			principal, interest = 0, 0
		}
	}
	return t
}

// BalanceSparkline plots the remaining balance over the schedule
func BalanceSparkline(schedule []models.AmortizationEntry, points int) string {
	if len(schedule) == 0 || points <= 0 {
		return ""
	}
	step := max(len(schedule)/points, 1)
	values := make([]float64, 0, points)
	for i := 0; i < len(schedule); i += step {
		values = append(values, schedule[i].RemainingBalance)
	}
	return RenderSparkline(values)
}

// AffordabilityTable shows the maximum payment and price a household can carry
func AffordabilityTable(in models.AffordabilityInputs, res models.AffordabilityResult, ratePct float64, termYears int) Table {
	return Table{
		Title: "Affordability",
		Rows: [][]string{
			{"Monthly income", FormatMoney(in.MonthlyIncome)},
			{"Monthly debts", FormatMoney(in.MonthlyDebts)},
			{"Monthly expenses", FormatMoney(in.MonthlyExpenses)},
			{"Rate / term", fmt.Sprintf("%s / %dy", FormatRate(ratePct), termYears)},
			Separator,
			{"Max monthly payment", FormatMoney(res.MaxAffordableMonthlyPayment)},
			{"Max home price", FormatWhole(res.MaxAffordablePrice)},
		},
	}
}

// InvestmentTable shows rental return metrics
func InvestmentTable(res models.InvestmentResult) Table {
	onePct := "no"
	if res.MeetsOnePercentRule {
		onePct = "yes"
	}
	return Table{
		Title: "Rental investment",
		Rows: [][]string{
			{"Effective rent", FormatMoney(res.EffectiveMonthlyRent)},
			{"Operating costs", FormatMoney(res.MonthlyOperatingCosts)},
			{"Debt service", FormatMoney(res.MonthlyDebtService)},
			Separator,
			{"Monthly cash flow", Signal(FormatMoney(res.MonthlyCashFlow), res.MonthlyCashFlow >= 0)},
			{"Annual cash flow", Signal(FormatMoney(res.AnnualCashFlow), res.AnnualCashFlow >= 0)},
			{"Annual NOI", FormatMoney(res.AnnualNOI)},
			{"Cash invested", FormatMoney(res.CashInvested)},
			Separator,
			{"Cap rate", FormatRate(res.CapRatePct)},
			{"Cash on cash", FormatRate(res.CashOnCashPct)},
			{"Gross rent multiplier", fmt.Sprintf("%.1f", res.GrossRentMultiplier)},
			{"1% rule", onePct},
		},
	}
}
