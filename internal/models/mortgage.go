package models

// LoanInputs are the purchase parameters for a single mortgage calculation.
// Rates are annual percentages (3.5 means 3.5%).
type LoanInputs struct {
	Price                    float64 `json:"price"`
	DownPayment              float64 `json:"down_payment"`
	InterestRateAnnualPct    float64 `json:"interest_rate"`
	TermYears                int     `json:"term_years"`
	PropertyTaxRateAnnualPct float64 `json:"property_tax_rate"`
	InsuranceRateAnnualPct   float64 `json:"insurance_rate"`
	HOAMonthly               float64 `json:"hoa_monthly"`
	ExtraMonthlyPayment      float64 `json:"extra_monthly_payment"`
}

// AffordabilityInputs describe a household's monthly cash position
type AffordabilityInputs struct {
	MonthlyIncome   float64 `json:"monthly_income"`
	MonthlyDebts    float64 `json:"monthly_debts"`
	MonthlyExpenses float64 `json:"monthly_expenses"`
}

// LoanResolution is derived from LoanInputs: the financed amount and the
// monthly escrow items that ride on top of principal and interest.
type LoanResolution struct {
	LoanAmount         float64 `json:"loan_amount"`
	DownPaymentPct     float64 `json:"down_payment_pct"` // fraction, 0.2 = 20%
	PMIMonthly         float64 `json:"pmi_monthly"`
	MonthlyPropertyTax float64 `json:"monthly_property_tax"`
	MonthlyInsurance   float64 `json:"monthly_insurance"`
	HOAMonthly         float64 `json:"hoa_monthly"`
}

// PaymentSummary aggregates the monthly payment and lifetime totals
type PaymentSummary struct {
	PrincipalAndInterest float64 `json:"principal_and_interest"`
	PMI                  float64 `json:"pmi"`
	PropertyTax          float64 `json:"property_tax"`
	Insurance            float64 `json:"insurance"`
	HOA                  float64 `json:"hoa"`
	ExtraPayment         float64 `json:"extra_payment"`
	TotalMonthlyPayment  float64 `json:"total_monthly_payment"`
	NumberOfPayments     int     `json:"number_of_payments"`
	TotalPaid            float64 `json:"total_paid"`
	// TotalInterest is total paid over the full term minus the loan amount.
	// Escrow, PMI, HOA and extra payments are included in it.
	TotalInterest float64 `json:"total_interest"`
}

// AmortizationEntry is one payment period of a schedule (1-indexed)
type AmortizationEntry struct {
	PaymentNumber    int     `json:"payment_number"`
	PrincipalPaid    float64 `json:"principal_paid"`
	InterestPaid     float64 `json:"interest_paid"`
	RemainingBalance float64 `json:"remaining_balance"`
}

// Payment breakdown categories
const (
	CategoryPrincipal = "Principal"
	CategoryInterest  = "Interest"
	CategoryTaxes     = "Taxes"
	CategoryInsurance = "Insurance"
	CategoryPMI       = "PMI"
	CategoryHOA       = "HOA"
)

// BreakdownCategories lists categories in display order
var BreakdownCategories = []string{
	CategoryPrincipal,
	CategoryInterest,
	CategoryTaxes,
	CategoryInsurance,
	CategoryPMI,
	CategoryHOA,
}

// PaymentBreakdown maps a category to its cumulative lifetime amount
type PaymentBreakdown map[string]float64

// AffordabilityResult is the output of the affordability solver.
// A non-positive MaxAffordableMonthlyPayment means nothing is affordable.
type AffordabilityResult struct {
	MaxAffordableMonthlyPayment float64 `json:"max_affordable_monthly_payment"`
	MaxAffordablePrice          float64 `json:"max_affordable_price"`
}

// MortgageResult is the full output of one calculator run
type MortgageResult struct {
	Inputs     LoanInputs          `json:"inputs"`
	Resolution LoanResolution      `json:"resolution"`
	Payment    PaymentSummary      `json:"payment"`
	Schedule   []AmortizationEntry `json:"schedule"`
	Breakdown  PaymentBreakdown    `json:"breakdown"`

	PayoffPeriods     int     `json:"payoff_periods"`
	ScheduledInterest float64 `json:"scheduled_interest"` // sum of InterestPaid
	MonthsSaved       int     `json:"months_saved"`       // versus the same loan without extra payments
	InterestSaved     float64 `json:"interest_saved"`

	// FullyAmortized is false when the schedule stops before the balance is
	// paid off, e.g. a positive loan at 0% with no extra payment
	FullyAmortized bool `json:"fully_amortized"`
}

// InvestmentInputs extend a purchase with rental assumptions
type InvestmentInputs struct {
	Loan                     LoanInputs `json:"loan"`
	MonthlyRent              float64    `json:"monthly_rent"`
	VacancyRatePct           float64    `json:"vacancy_rate"`
	MonthlyOperatingExpenses float64    `json:"monthly_operating_expenses"`
	ClosingCosts             float64    `json:"closing_costs"`
}

// InvestmentResult contains rental property return metrics
type InvestmentResult struct {
	EffectiveMonthlyRent  float64 `json:"effective_monthly_rent"`
	MonthlyOperatingCosts float64 `json:"monthly_operating_costs"` // opex + taxes + insurance + HOA
	AnnualNOI             float64 `json:"annual_noi"`
	CapRatePct            float64 `json:"cap_rate_pct"`
	MonthlyDebtService    float64 `json:"monthly_debt_service"` // P&I + PMI
	MonthlyCashFlow       float64 `json:"monthly_cash_flow"`
	AnnualCashFlow        float64 `json:"annual_cash_flow"`
	CashInvested          float64 `json:"cash_invested"`
	CashOnCashPct         float64 `json:"cash_on_cash_pct"`
	GrossRentMultiplier   float64 `json:"gross_rent_multiplier"`
	MeetsOnePercentRule   bool    `json:"meets_one_percent_rule"`
}
